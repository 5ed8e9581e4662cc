package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"brasul/fretes/internal/auth"
	"brasul/fretes/internal/cache"
	"brasul/fretes/internal/catalog"
	"brasul/fretes/internal/config"
	"brasul/fretes/internal/events"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/services"
	"brasul/fretes/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubVerifier accepts the human token "human" and nothing else.
type stubVerifier struct{}

func (stubVerifier) Verify(context.Context, string, string) (bool, error) { return false, nil }
func (stubVerifier) GenerateHumanToken(string, string, string, string, time.Duration) (string, error) {
	return "human", nil
}
func (stubVerifier) ValidateHumanToken(token, _, _, _ string) bool { return token == "human" }

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:               "router-secret",
		AllowedOrigins:          []string{"*"},
		Timezone:                time.UTC,
		PageSize:                50,
		FreightRetention:        30 * 24 * time.Hour,
		WhatsAppServiceURL:      "https://wa.me/",
		WhatsAppPhone:           "5538000000000",
		SiteURL:                 "https://fretes.example",
		RateLimitSoftBucketSize: 1000,
		RateLimitSoftRefillRate: 1000,
		RateLimitHardBucketSize: 1000,
		RateLimitHardRefillRate: 1000,
	}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	st := store.NewMemoryStore()
	st.SeedMunicipalities([]models.Municipality{{ID: 1, Name: "Montes Claros", State: "MG"}})
	logger := zap.NewNop()
	cat := catalog.Default()

	svc := Services{
		Freights:       services.NewFreightService(st, cat, cache.NewMemoryCache(), events.NopPublisher{}, logger, services.FreightServiceOptions{}),
		Agents:         services.NewAgentService(st, services.NopEmailQueue{}, events.NopPublisher{}, logger),
		Referrals:      services.NewReferralService(st, services.NopEmailQueue{}, events.NopPublisher{}, services.ContactSettings{ServiceURL: cfg.WhatsAppServiceURL, Phone: cfg.WhatsAppPhone, SiteURL: cfg.SiteURL}, logger),
		Municipalities: services.NewMunicipalityService(st, logger),
		Gate:           services.NewSearchGate(),
		Catalog:        cat,
		Verifier:       stubVerifier{},
	}
	r, stop := SetupRouter(cfg, svc, logger)
	t.Cleanup(stop)
	return r, st
}

func request(r *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:1234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

var human = map[string]string{"X-C-T": "human"}

func TestRouter_Ping(t *testing.T) {
	r, _ := setupTestRouter(t)
	w := request(r, "GET", "/v1/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouter_PublishRequiresCaptcha(t *testing.T) {
	r, _ := setupTestRouter(t)
	in := map[string]interface{}{
		"origin":      "Montes Claros, MG",
		"destination": "São Paulo, SP",
		"cargo_type":  "Grãos",
		"truck_type":  "Carreta",
		"contact":     "38999990000",
		"value":       5000,
	}

	w := request(r, "POST", "/v1/freight", in, nil)
	assert.Equal(t, http.StatusTeapot, w.Code)

	w = request(r, "POST", "/v1/freight", in, human)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["data"].(map[string]interface{})["id"].(string)

	w = request(r, "GET", "/v1/freight?origin=montes", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])

	w = request(r, "GET", "/v1/freight/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["data"].(map[string]interface{})["contact_link"], "https://wa.me/5538000000000?text=")
}

func TestRouter_AgentReferralFlow(t *testing.T) {
	r, st := setupTestRouter(t)
	require.NoError(t, st.InsertFreight(context.Background(), &models.Freight{
		Base:      models.Base{ID: "f1"},
		Origin:    "Montes Claros, MG",
		CreatedAt: time.Now(),
		Status:    models.FreightStatusAvailable,
	}))

	w := request(r, "GET", "/v1/agents/next-code", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10000", decode(t, w)["data"].(map[string]interface{})["code"])

	w = request(r, "POST", "/v1/agents", map[string]string{"name": "Ana", "email": "ana@example.com", "phone": "38999990000"}, human)
	require.Equal(t, http.StatusCreated, w.Code)
	code := decode(t, w)["data"].(map[string]interface{})["code"].(string)
	assert.Equal(t, "10000", code)

	w = request(r, "POST", "/v1/freight/f1/contact", map[string]string{"agent_code": code}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["data"].(map[string]interface{})["link"], "Agenciador%3A%2010000")

	w = request(r, "GET", "/v1/referral?10000&f1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	refs, err := st.ListReferrals(context.Background(), code, 0)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	r, _ := setupTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, request(r, "GET", "/v1/admin/agents", nil, nil).Code)

	userToken, err := auth.GenerateJWT("visitante", false, "router-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(r, "GET", "/v1/admin/agents", nil, map[string]string{"Authorization": "Bearer " + userToken}).Code)

	adminToken, err := auth.GenerateJWT("operador", true, "router-secret", time.Hour)
	require.NoError(t, err)
	w := request(r, "POST", "/v1/admin/cleanup", nil, map[string]string{"Authorization": "Bearer " + adminToken})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["data"].(map[string]interface{})["deleted"])
}

func TestRouter_Municipalities(t *testing.T) {
	r, _ := setupTestRouter(t)
	w := request(r, "GET", "/v1/municipalities?q=montes%20claros", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "Montes Claros, MG", data[0].(map[string]interface{})["label"])
}

func TestServiceRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	r := SetupServiceRouter(nil, shutdown, nil)

	w := request(r, "GET", "/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, "POST", "/api", map[string]interface{}{"method": "nope"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(r, "POST", "/api", map[string]interface{}{"method": "getTestEmail", "arguments": []string{"agent_welcome", "a@b.c"}}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = request(r, "POST", "/api", map[string]interface{}{"method": "shutdown"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signaled")
	}

	// A second request must not block on the full channel.
	shutdown <- struct{}{}
	w = request(r, "POST", "/api", map[string]interface{}{"method": "shutdown"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
