package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"brasul/fretes/internal/api/handlers"
	"brasul/fretes/internal/api/middleware"
	"brasul/fretes/internal/captcha"
	"brasul/fretes/internal/catalog"
	"brasul/fretes/internal/config"
	"brasul/fretes/internal/email"
	"brasul/fretes/internal/services"
)

// Submissions are rarer than reads; these buckets apply per client on top of
// the captcha requirement.
var (
	publishLimits  = middleware.Limits{SoftRate: 0.1, SoftBurst: 3, HardRate: 0.05, HardBurst: 5}
	registerLimits = middleware.Limits{SoftRate: 0.05, SoftBurst: 2, HardRate: 0.02, HardBurst: 3}
	contactLimits  = middleware.Limits{SoftRate: 0.5, SoftBurst: 5, HardRate: 1, HardBurst: 10}
)

// Services bundles what the public API needs.
type Services struct {
	Freights       services.IFreightService
	Agents         services.IAgentService
	Referrals      services.IReferralService
	Municipalities services.IMunicipalityService
	Gate           *services.SearchGate
	Catalog        *catalog.Catalog
	Verifier       captcha.ITurnstileVerifier
}

// SetupRouter configures the main Gin engine. The returned stop function ends
// the rate limiter's background cleanup.
func SetupRouter(cfg *config.Config, svc Services, logger *zap.Logger) (*gin.Engine, func()) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if svc.Verifier == nil {
		svc.Verifier = captcha.NewTurnstileVerifier(cfg, logger)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger.Named("http")))

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, logger)
	rateLimiter.SetEndpointLimits(http.MethodPost, "/v1/freight", publishLimits)
	rateLimiter.SetEndpointLimits(http.MethodPost, "/v1/agents", registerLimits)
	rateLimiter.SetEndpointLimits(http.MethodPost, "/v1/freight/:id/contact", contactLimits)

	// Order matters: the limiter reads the captcha result.
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.CaptchaMiddleware(cfg, svc.Verifier, logger))
	r.Use(rateLimiter.Limit())

	freightHandler := handlers.NewRestFreightHandler(svc.Freights, svc.Referrals, svc.Gate, svc.Catalog, cfg.Timezone)
	agentHandler := handlers.NewRestAgentHandler(svc.Agents, svc.Referrals)
	municipalityHandler := handlers.NewRestMunicipalityHandler(svc.Municipalities)
	configHandler := handlers.NewRestConfigHandler(cfg)
	adminHandler := handlers.NewRestAdminHandler(svc.Agents, svc.Referrals, svc.Freights, cfg.FreightRetention)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		v1.GET("/config", configHandler.GetPublicConfig)

		v1.GET("/freight", freightHandler.SearchFreights)
		v1.GET("/freight/facets", freightHandler.GetFacets)
		v1.GET("/freight/last-update", freightHandler.GetLastUpdate)
		v1.GET("/freight/catalog", freightHandler.GetCatalog)
		v1.GET("/freight/:id", freightHandler.GetFreightByID)
		v1.POST("/freight", middleware.RequireHuman(), freightHandler.PublishFreight)
		v1.POST("/freight/:id/contact", freightHandler.ContactFreight)
		v1.GET("/referral", freightHandler.ResolveReferral)

		v1.GET("/agents/next-code", agentHandler.NextCode)
		v1.POST("/agents", middleware.RequireHuman(), agentHandler.RegisterAgent)
		v1.GET("/agents/:code", agentHandler.GetAgentByCode)
		v1.GET("/agents/:code/link", agentHandler.ShareLink)

		v1.GET("/municipalities", municipalityHandler.SearchMunicipalities)

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			admin.GET("/agents", adminHandler.ListAgents)
			admin.POST("/agents/:code/active", adminHandler.SetAgentActive)
			admin.GET("/referrals", adminHandler.ListReferrals)
			admin.POST("/cleanup", adminHandler.Cleanup)
		}
	}

	return r, rateLimiter.Stop
}

type serviceRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments"`
}

// mockEmailPollInterval spaces the Redis reads of getTestEmail.
var mockEmailPollInterval = 200 * time.Millisecond

// SetupServiceRouter configures the service Gin engine, meant to be bound to
// localhost. rdb may be nil when no mock email store is available.
func SetupServiceRouter(rdb *redis.Client, shutdownChan chan<- struct{}, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("service_api")

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.POST("/api", func(c *gin.Context) {
		var req serviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "ping":
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "pong"})
		case "shutdown":
			logger.Info("shutdown requested")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				logger.Warn("shutdown already signaled")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments, logger)
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail polls Redis for an email captured by the mock sender and
// deletes it once read. Arguments: [templateId, email].
func getTestEmail(c *gin.Context, rdb *redis.Client, rawArgs json.RawMessage, logger *zap.Logger) {
	if rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Mock email store not configured"})
		return
	}
	var args []string
	if err := json.Unmarshal(rawArgs, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
		return
	}
	key := email.MockEmailKey(args[1], args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var raw string
	found := false
poll:
	for i := 0; i < 10; i++ {
		val, err := rdb.Get(ctx, key).Result()
		if err == nil {
			raw, found = val, true
			rdb.Del(ctx, key)
			break
		}
		if !errors.Is(err, redis.Nil) {
			logger.Error("failed to read mock email", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		select {
		case <-ctx.Done():
			break poll
		case <-time.After(mockEmailPollInterval):
		}
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", key)})
		return
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		logger.Error("failed to decode mock email", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
