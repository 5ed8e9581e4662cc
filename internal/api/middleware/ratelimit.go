package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"brasul/fretes/internal/config"
)

const (
	clientCleanupInterval = 10 * time.Minute
	clientIdleTimeout     = 30 * time.Minute
)

// Limits configures the soft and hard token buckets of one endpoint.
type Limits struct {
	SoftRate  float64 // tokens per second
	SoftBurst int
	HardRate  float64 // tokens per second
	HardBurst int
}

type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware manages rate limiting for API endpoints.
type RateLimiterMiddleware struct {
	clients   map[string]*clientLimiter
	endpoints map[string]Limits
	defaults  Limits
	mu        sync.Mutex
	logger    *zap.Logger
	now       func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiterMiddleware creates a RateLimiterMiddleware and starts its
// cleanup loop. Call Stop to end the loop.
func NewRateLimiterMiddleware(cfg *config.Config, logger *zap.Logger) *RateLimiterMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	rm := &RateLimiterMiddleware{
		clients:   make(map[string]*clientLimiter),
		endpoints: make(map[string]Limits),
		defaults: Limits{
			SoftRate:  float64(cfg.RateLimitSoftRefillRate),
			SoftBurst: cfg.RateLimitSoftBucketSize,
			HardRate:  float64(cfg.RateLimitHardRefillRate),
			HardBurst: cfg.RateLimitHardBucketSize,
		},
		logger: logger.Named("ratelimit"),
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go rm.cleanupLoop(clientCleanupInterval)
	return rm
}

// SetEndpointLimits overrides the default limits for one route. Clients get a
// separate bucket pair per overridden route.
func (rm *RateLimiterMiddleware) SetEndpointLimits(method, path string, limits Limits) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.endpoints[endpointKey(method, path)] = limits
}

// Stop ends the cleanup loop and waits for it to exit.
func (rm *RateLimiterMiddleware) Stop() {
	rm.stopOnce.Do(func() { close(rm.stop) })
	<-rm.done
}

func endpointKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// getClientIdentifier creates a unique key based on IP, Fingerprint, and SPA Session ID.
func getClientIdentifier(c *gin.Context) string {
	return c.ClientIP() + "|" + c.GetHeader("X-BFP") + "|" + c.GetHeader("X-SPA")
}

// getClientLimiter retrieves or creates the limiters for a client on an endpoint.
func (rm *RateLimiterMiddleware) getClientLimiter(clientKey, endpoint string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limits, override := rm.endpoints[endpoint]
	key := clientKey
	if override {
		key = clientKey + "|" + endpoint
	} else {
		limits = rm.defaults
	}

	limiter, exists := rm.clients[key]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(limits.SoftRate), limits.SoftBurst),
			hardLimiter: rate.NewLimiter(rate.Limit(limits.HardRate), limits.HardBurst),
		}
		rm.clients[key] = limiter
	}
	limiter.lastSeen = rm.now()
	return limiter
}

func (rm *RateLimiterMiddleware) cleanupLoop(interval time.Duration) {
	defer close(rm.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stop:
			return
		case <-ticker.C:
			rm.cleanupClients()
		}
	}
}

// cleanupClients removes clients idle for longer than clientIdleTimeout.
func (rm *RateLimiterMiddleware) cleanupClients() int {
	rm.mu.Lock()
	count := 0
	now := rm.now()
	for id, client := range rm.clients {
		if now.Sub(client.lastSeen) > clientIdleTimeout {
			delete(rm.clients, id)
			count++
		}
	}
	rm.mu.Unlock()
	if count > 0 {
		rm.logger.Debug("removed idle clients", zap.Int("count", count))
	}
	return count
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		endpoint := endpointKey(c.Request.Method, c.FullPath())
		limiter := rm.getClientLimiter(clientKey, endpoint)

		if !limiter.hardLimiter.Allow() {
			rm.logger.Info("hard rate limit exceeded", zap.String("client", clientKey), zap.String("endpoint", endpoint))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		// Verified humans skip the soft bucket.
		if !c.GetBool(ContextKeyIsHumanVerified) && !limiter.softLimiter.Allow() {
			rm.logger.Info("soft rate limit exceeded", zap.String("client", clientKey), zap.String("endpoint", endpoint))
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"error": "Captcha validation required"})
			return
		}

		c.Next()
	}
}
