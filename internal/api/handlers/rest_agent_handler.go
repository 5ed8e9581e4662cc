package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"brasul/fretes/internal/services"
)

// RestAgentHandler handles REST requests related to referral agents.
type RestAgentHandler struct {
	agentService    services.IAgentService
	referralService services.IReferralService
}

// NewRestAgentHandler creates a new RestAgentHandler.
func NewRestAgentHandler(agentService services.IAgentService, referralService services.IReferralService) *RestAgentHandler {
	return &RestAgentHandler{agentService: agentService, referralService: referralService}
}

// PublicAgent is the agent data shown to visitors.
type PublicAgent struct {
	Code string `json:"code"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

// NextCode handles GET /v1/agents/next-code. The code is a preview; the
// registration allocates its own.
func (h *RestAgentHandler) NextCode(c *gin.Context) {
	code, err := h.agentService.GenerateAgentCode(c.Request.Context())
	if err != nil {
		respondError(c, err, "Erro ao gerar código")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"code": code}})
}

// RegisterAgent handles POST /v1/agents
func (h *RestAgentHandler) RegisterAgent(c *gin.Context) {
	var in services.AgentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}

	agent, err := h.agentService.RegisterAgent(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Erro ao cadastrar agenciador")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": agent})
}

// GetAgentByCode handles GET /v1/agents/:code
func (h *RestAgentHandler) GetAgentByCode(c *gin.Context) {
	agent, err := h.agentService.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err, "Erro ao carregar agenciador")
		return
	}
	if !agent.Active {
		c.JSON(http.StatusNotFound, gin.H{"error": "Não encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": PublicAgent{Code: agent.Code, Name: agent.Name, City: agent.City}})
}

// ShareLink handles GET /v1/agents/:code/link?freight_id=<id>
func (h *RestAgentHandler) ShareLink(c *gin.Context) {
	link, err := h.referralService.ShareLink(c.Param("code"), c.Query("freight_id"))
	if err != nil {
		respondError(c, err, "Erro ao gerar link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"link": link}})
}
