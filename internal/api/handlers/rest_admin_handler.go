package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brasul/fretes/internal/services"
)

// RestAdminHandler serves the operator endpoints under /v1/admin.
type RestAdminHandler struct {
	agentService     services.IAgentService
	referralService  services.IReferralService
	freightService   services.IFreightService
	defaultRetention time.Duration
}

// NewRestAdminHandler creates a new RestAdminHandler.
func NewRestAdminHandler(
	agentService services.IAgentService,
	referralService services.IReferralService,
	freightService services.IFreightService,
	defaultRetention time.Duration,
) *RestAdminHandler {
	return &RestAdminHandler{
		agentService:     agentService,
		referralService:  referralService,
		freightService:   freightService,
		defaultRetention: defaultRetention,
	}
}

// ListAgents handles GET /v1/admin/agents?active=true
func (h *RestAdminHandler) ListAgents(c *gin.Context) {
	agents, err := h.agentService.List(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		respondError(c, err, "Failed to list agents")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": agents})
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetAgentActive handles POST /v1/admin/agents/:code/active
func (h *RestAdminHandler) SetAgentActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'active' is required"})
		return
	}

	code := c.Param("code")
	if err := h.agentService.SetActive(c.Request.Context(), code, *req.Active); err != nil {
		respondError(c, err, "Failed to update agent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"code": code, "active": *req.Active}})
}

// ListReferrals handles GET /v1/admin/referrals?agent_code=&limit=
func (h *RestAdminHandler) ListReferrals(c *gin.Context) {
	limit := queryInt(c, "limit")
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	refs, err := h.referralService.ListReferrals(c.Request.Context(), c.Query("agent_code"), limit)
	if err != nil {
		respondError(c, err, "Failed to list referrals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": refs})
}

type cleanupRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

// Cleanup handles POST /v1/admin/cleanup. Without a body the configured
// retention applies.
func (h *RestAdminHandler) Cleanup(c *gin.Context) {
	var req cleanupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	olderThan := h.defaultRetention
	if req.OlderThanDays != 0 {
		olderThan = time.Duration(req.OlderThanDays) * 24 * time.Hour
	}

	deleted, err := h.freightService.Cleanup(c.Request.Context(), olderThan)
	if err != nil {
		respondError(c, err, "Failed to clean up freights")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"deleted":         deleted,
		"older_than_days": int(olderThan / (24 * time.Hour)),
	}})
}
