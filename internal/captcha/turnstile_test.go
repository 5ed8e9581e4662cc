package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brasul/fretes/internal/config"
)

func TestVerify_NoSecretKeyPasses(t *testing.T) {
	v := NewTurnstileVerifier(&config.Config{JwtSecret: "s"}, zap.NewNop())
	ok, err := v.Verify(context.Background(), "anything", "1.1.1.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_SiteVerify(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		success := got["response"] == "good"
		_ = json.NewEncoder(w).Encode(CloudflareResponse{Success: success})
	}))
	defer srv.Close()

	cfg := &config.Config{
		CloudflareTurnstileSecretKey: "cf-secret",
		CloudflareSiteVerifyURL:      srv.URL,
		JwtSecret:                    "s",
	}
	v := NewTurnstileVerifier(cfg, nil)

	ok, err := v.Verify(context.Background(), "good", "2.2.2.2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cf-secret", got["secret"])
	assert.Equal(t, "2.2.2.2", got["remoteip"])

	ok, err = v.Verify(context.Background(), "bad", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewTurnstileVerifier(&config.Config{
		CloudflareTurnstileSecretKey: "cf-secret",
		CloudflareSiteVerifyURL:      srv.URL,
	}, nil)

	ok, err := v.Verify(context.Background(), "good", "")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestHumanToken_RoundTrip(t *testing.T) {
	v := NewTurnstileVerifier(&config.Config{JwtSecret: "s"}, nil)

	token, err := v.GenerateHumanToken("", "3.3.3.3", "fp", "spa", time.Minute)
	require.NoError(t, err)

	assert.True(t, v.ValidateHumanToken(token, "3.3.3.3", "fp", "spa"))
	assert.False(t, v.ValidateHumanToken(token, "4.4.4.4", "fp", "spa"))
	assert.False(t, v.ValidateHumanToken(token, "3.3.3.3", "other", "spa"))
	assert.False(t, v.ValidateHumanToken(token, "3.3.3.3", "fp", "other"))
	assert.False(t, v.ValidateHumanToken("garbage", "3.3.3.3", "fp", "spa"))
}

func TestHumanToken_Expired(t *testing.T) {
	v := NewTurnstileVerifier(&config.Config{JwtSecret: "s"}, nil)

	token, err := v.GenerateHumanToken("", "3.3.3.3", "fp", "spa", -time.Minute)
	require.NoError(t, err)
	assert.False(t, v.ValidateHumanToken(token, "3.3.3.3", "fp", "spa"))
}
