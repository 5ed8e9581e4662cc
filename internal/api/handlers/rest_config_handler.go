package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"brasul/fretes/internal/config"
	"brasul/fretes/internal/freight"
)

// PublicConfig is the client-visible part of the configuration.
type PublicConfig struct {
	AppName       string `json:"app_name"`
	SiteURL       string `json:"site_url"`
	WhatsAppPhone string `json:"whatsapp_phone"`
	PageSize      int    `json:"page_size"`
	PageSizes     []int  `json:"page_sizes"`
	Timezone      string `json:"timezone"`
}

// RestConfigHandler handles requests for the /config REST endpoint.
type RestConfigHandler struct {
	public PublicConfig
}

// NewRestConfigHandler creates a new RestConfigHandler.
func NewRestConfigHandler(cfg *config.Config) *RestConfigHandler {
	public := PublicConfig{
		AppName:       cfg.AppName,
		SiteURL:       cfg.SiteURL,
		WhatsAppPhone: cfg.WhatsAppPhone,
		PageSize:      freight.NewPage(0, cfg.PageSize, freight.DefaultPageSize).Size,
		PageSizes:     []int{freight.DefaultPageSize, freight.LargePageSize},
	}
	if cfg.Timezone != nil {
		public.Timezone = cfg.Timezone.String()
	}
	return &RestConfigHandler{public: public}
}

// GetPublicConfig handles GET /v1/config
func (h *RestConfigHandler) GetPublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.public})
}
