package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"brasul/fretes/internal/catalog"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/services"
)

const searchErrorMessage = "Erro ao buscar fretes"

// RestFreightHandler handles REST requests for freight listings.
type RestFreightHandler struct {
	freightService  services.IFreightService
	referralService services.IReferralService
	gate            *services.SearchGate
	catalog         *catalog.Catalog
	loc             *time.Location
	now             func() time.Time
}

// NewRestFreightHandler creates a new RestFreightHandler.
func NewRestFreightHandler(
	freightService services.IFreightService,
	referralService services.IReferralService,
	gate *services.SearchGate,
	cat *catalog.Catalog,
	loc *time.Location,
) *RestFreightHandler {
	if gate == nil {
		gate = services.NewSearchGate()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &RestFreightHandler{
		freightService:  freightService,
		referralService: referralService,
		gate:            gate,
		catalog:         cat,
		loc:             loc,
		now:             time.Now,
	}
}

func queryBool(c *gin.Context, key string) bool {
	b, err := strconv.ParseBool(c.Query(key))
	return err == nil && b
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func filterValuesFromQuery(c *gin.Context) freight.FilterValues {
	return freight.FilterValues{
		Origin:        c.DefaultQuery("origin", freight.AllSentinel),
		Destination:   c.DefaultQuery("destination", freight.AllSentinel),
		OriginState:   c.DefaultQuery("origin_state", freight.AllSentinel),
		CargoType:     c.DefaultQuery("cargo_type", freight.AllSentinel),
		TruckType:     c.DefaultQuery("truck_type", freight.AllSentinel),
		MinValue:      c.Query("min_value"),
		MaxValue:      c.Query("max_value"),
		MinWeight:     c.Query("min_weight"),
		MaxWeight:     c.Query("max_weight"),
		Refrigerated:  queryBool(c, "refrigerated"),
		RequiresMopp:  queryBool(c, "requires_mopp"),
		TollIncluded:  queryBool(c, "toll_included"),
		ShowPerKmRate: queryBool(c, "show_per_km_rate"),
	}
}

// SearchFreights handles GET /v1/freight. Searches are gated per X-SPA
// session: a request superseded by a newer one answers 409.
func (h *RestFreightHandler) SearchFreights(c *gin.Context) {
	values := filterValuesFromQuery(c)

	ctx, finish := h.gate.Begin(c.Request.Context(), c.GetHeader("X-SPA"))
	result, err := h.freightService.Search(ctx, values, queryInt(c, "page"), queryInt(c, "page_size"))
	if staleErr := finish(); staleErr != nil {
		c.JSON(http.StatusConflict, gin.H{"stale": true})
		return
	}
	if err != nil {
		_ = c.Error(err)
		var verr *freight.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"data": []freight.View{}, "error": verr.Message, "field": verr.Field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"data": []freight.View{}, "error": searchErrorMessage})
		return
	}

	opts := freight.PresentOptions{ShowPerKmRate: values.ShowPerKmRate, Location: h.loc}
	views := make([]freight.View, 0, len(result.Items))
	for _, fr := range result.Items {
		views = append(views, freight.Present(fr, opts))
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      views,
		"total":     result.Total,
		"page":      result.Page,
		"page_size": result.PageSize,
	})
}

// GetFreightByID handles GET /v1/freight/:id. An ?ag=<code> naming an active
// agent puts the code into the contact link.
func (h *RestFreightHandler) GetFreightByID(c *gin.Context) {
	id := c.Param("id")
	fr, err := h.freightService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Erro ao carregar frete")
		return
	}

	view := freight.Present(*fr, freight.PresentOptions{
		ShowPerKmRate: queryBool(c, "show_per_km_rate"),
		Location:      h.loc,
	})

	agentCode := c.Query("ag")
	link, err := h.referralService.ContactLink(c.Request.Context(), id, agentCode)
	if err != nil && agentCode != "" {
		_ = c.Error(err)
		link, err = h.referralService.ContactLink(c.Request.Context(), id, "")
	}
	if err != nil {
		_ = c.Error(err)
	} else {
		view.ContactLink = link
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

// PublishFreight handles POST /v1/freight.
func (h *RestFreightHandler) PublishFreight(c *gin.Context) {
	var in services.PublishInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}

	fr, err := h.freightService.Publish(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Erro ao publicar frete")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": freight.Present(*fr, freight.PresentOptions{Location: h.loc})})
}

// GetFacets handles GET /v1/freight/facets
func (h *RestFreightHandler) GetFacets(c *gin.Context) {
	facets, err := h.freightService.Facets(c.Request.Context())
	if err != nil {
		respondError(c, err, "Erro ao carregar filtros")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": facets})
}

// GetLastUpdate handles GET /v1/freight/last-update
func (h *RestFreightHandler) GetLastUpdate(c *gin.Context) {
	at, err := h.freightService.LastUpdate(c.Request.Context())
	if err != nil {
		respondError(c, err, "Erro ao carregar última atualização")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"at":    at,
		"label": freight.FormatUpdateTime(at, h.now(), h.loc),
	}})
}

// GetCatalog handles GET /v1/freight/catalog
func (h *RestFreightHandler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.catalog})
}

type contactRequest struct {
	AgentCode string `json:"agent_code"`
}

// ContactFreight handles POST /v1/freight/:id/contact. With an agent code the
// contact is recorded as a referral.
func (h *RestFreightHandler) ContactFreight(c *gin.Context) {
	var req contactRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
			return
		}
	}

	id := c.Param("id")
	var (
		link string
		err  error
	)
	if req.AgentCode != "" {
		link, err = h.referralService.RecordReferral(c.Request.Context(), id, req.AgentCode)
	} else {
		link, err = h.referralService.ContactLink(c.Request.Context(), id, "")
	}
	if err != nil {
		respondError(c, err, "Erro ao gerar contato")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"link": link}})
}

// ResolveReferral handles GET /v1/referral?<code>&<id>, the landing of an
// agent share link.
func (h *RestFreightHandler) ResolveReferral(c *gin.Context) {
	agentCode, freightID := freight.ParseReferralQuery(c.Request.URL.RawQuery)
	if agentCode == "" || freightID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Link de agenciador inválido"})
		return
	}

	fr, err := h.freightService.FindByID(c.Request.Context(), freightID)
	if err != nil {
		respondError(c, err, "Erro ao carregar frete")
		return
	}
	link, err := h.referralService.ContactLink(c.Request.Context(), freightID, agentCode)
	if err != nil {
		respondError(c, err, "Erro ao gerar contato")
		return
	}

	view := freight.Present(*fr, freight.PresentOptions{Location: h.loc})
	view.ContactLink = link
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"agent_code": agentCode,
		"freight":    view,
	}})
}
