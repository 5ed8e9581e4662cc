package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"brasul/fretes/internal/services"
)

// RestMunicipalityHandler serves the city autocomplete.
type RestMunicipalityHandler struct {
	municipalityService services.IMunicipalityService
}

// NewRestMunicipalityHandler creates a new RestMunicipalityHandler.
func NewRestMunicipalityHandler(municipalityService services.IMunicipalityService) *RestMunicipalityHandler {
	return &RestMunicipalityHandler{municipalityService: municipalityService}
}

// SearchMunicipalities handles GET /v1/municipalities?q=&state=&limit=
func (h *RestMunicipalityHandler) SearchMunicipalities(c *gin.Context) {
	query, ok := c.GetQuery("q")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search query parameter 'q'"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}

	results, err := h.municipalityService.Search(c.Request.Context(), query, c.Query("state"), limit)
	if err != nil {
		respondError(c, err, "Erro ao buscar municípios")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}
