package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"brasul/fretes/internal/config"
)

func newTestLimiter(t *testing.T, cfg *config.Config) *RateLimiterMiddleware {
	t.Helper()
	rm := NewRateLimiterMiddleware(cfg, nil)
	t.Cleanup(rm.Stop)
	return rm
}

func setupRateLimitEngine(rm *RateLimiterMiddleware, verifier *MockTurnstileVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CaptchaMiddleware(&config.Config{}, verifier, nil))
	r.Use(rm.Limit())
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.POST("/submit", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	return r
}

func doRequest(r *gin.Engine, method, path, addr string, headers map[string]string) int {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	req.RemoteAddr = addr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterMiddleware_HardLimit(t *testing.T) {
	rm := newTestLimiter(t, &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	})
	router := setupRateLimitEngine(rm, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "1.2.3.4:12345", nil))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "GET", "/test", "1.2.3.4:12345", nil))
	// Another client has its own buckets.
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "1.2.3.5:12345", nil))
}

func TestRateLimiterMiddleware_SoftLimit_CaptchaRequired(t *testing.T) {
	rm := newTestLimiter(t, &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	})
	router := setupRateLimitEngine(rm, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "5.6.7.8:12345", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "5.6.7.8:12345"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Contains(t, w.Body.String(), "Captcha validation required")
}

func TestRateLimiterMiddleware_SoftLimit_BypassWithHumanToken(t *testing.T) {
	rm := newTestLimiter(t, &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	})
	verifier := new(MockTurnstileVerifier)
	verifier.On("ValidateHumanToken", "valid-xct", "9.1.2.3", "", "").Return(true)
	router := setupRateLimitEngine(rm, verifier)

	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "9.1.2.3:12345", nil))
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "9.1.2.3:12345", map[string]string{"X-C-T": "valid-xct"}))
	verifier.AssertExpectations(t)
}

func TestRateLimiterMiddleware_ClientKeyIncludesHeaders(t *testing.T) {
	rm := newTestLimiter(t, &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	})
	router := setupRateLimitEngine(rm, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "1.1.1.1:1", map[string]string{"X-SPA": "a"}))
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "1.1.1.1:1", map[string]string{"X-SPA": "b"}))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "GET", "/test", "1.1.1.1:1", map[string]string{"X-SPA": "a"}))
}

func TestRateLimiterMiddleware_EndpointLimits(t *testing.T) {
	rm := newTestLimiter(t, &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	})
	rm.SetEndpointLimits(http.MethodPost, "/submit", Limits{SoftRate: 10, SoftBurst: 10, HardRate: 1, HardBurst: 1})
	router := setupRateLimitEngine(rm, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doRequest(router, "POST", "/submit", "7.7.7.7:1", nil))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "POST", "/submit", "7.7.7.7:1", nil))
	// The default bucket for the same client is untouched.
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "7.7.7.7:1", nil))
}

func TestRateLimiterMiddleware_CleanupClients(t *testing.T) {
	rm := newTestLimiter(t, &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rm.now = func() time.Time { return now }

	rm.getClientLimiter("idle", "GET /test")
	now = now.Add(20 * time.Minute)
	rm.getClientLimiter("active", "GET /test")
	now = now.Add(15 * time.Minute)

	assert.Equal(t, 1, rm.cleanupClients())
	rm.mu.Lock()
	_, idleKept := rm.clients["idle"]
	_, activeKept := rm.clients["active"]
	rm.mu.Unlock()
	assert.False(t, idleKept)
	assert.True(t, activeKept)
}

func TestRateLimiterMiddleware_StopIsIdempotent(t *testing.T) {
	rm := NewRateLimiterMiddleware(&config.Config{}, nil)
	rm.Stop()
	rm.Stop()
}
