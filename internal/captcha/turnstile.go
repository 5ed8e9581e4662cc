package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"brasul/fretes/internal/config"
)

const humanTokenIssuer = "fretes-captcha"

// ITurnstileVerifier defines the interface for verifying Cloudflare Turnstile tokens.
type ITurnstileVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
	GenerateHumanToken(subject, ip, fingerprint, spaSession string, ttl time.Duration) (string, error)
	ValidateHumanToken(tokenString, ip, fingerprint, spaSession string) bool
}

// CloudflareResponse is the expected structure from the siteverify endpoint.
type CloudflareResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	Action      string   `json:"action"`
	CData       string   `json:"cdata"`
}

type turnstileVerifier struct {
	secretKey  string
	verifyURL  string
	jwtSecret  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTurnstileVerifier creates a new Turnstile verifier.
func NewTurnstileVerifier(cfg *config.Config, logger *zap.Logger) ITurnstileVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &turnstileVerifier{
		secretKey:  cfg.CloudflareTurnstileSecretKey,
		verifyURL:  cfg.CloudflareSiteVerifyURL,
		jwtSecret:  cfg.JwtSecret,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger.Named("turnstile"),
	}
}

// Verify calls the Cloudflare siteverify endpoint. Without a secret key every
// challenge passes, which keeps local development usable.
func (v *turnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if v.secretKey == "" {
		v.logger.Warn("turnstile secret key not configured, skipping verification")
		return true, nil
	}

	formData := map[string]string{
		"secret":   v.secretKey,
		"response": token,
	}
	if remoteIP != "" {
		formData["remoteip"] = remoteIP
	}

	jsonData, err := json.Marshal(formData)
	if err != nil {
		return false, fmt.Errorf("failed to encode turnstile request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return false, fmt.Errorf("failed to create turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Error("siteverify call failed", zap.Error(err))
		return false, fmt.Errorf("failed to contact turnstile service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read turnstile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("siteverify returned non-OK status",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return false, fmt.Errorf("turnstile verification failed with status %d", resp.StatusCode)
	}

	var cfResp CloudflareResponse
	if err := json.Unmarshal(body, &cfResp); err != nil {
		return false, fmt.Errorf("failed to parse turnstile response: %w", err)
	}

	if !cfResp.Success {
		v.logger.Info("turnstile verification unsuccessful", zap.Strings("error_codes", cfResp.ErrorCodes))
	}

	return cfResp.Success, nil
}

// HumanTokenClaims defines the structure for the X-C-T token.
type HumanTokenClaims struct {
	IP          string `json:"ip"`
	Fingerprint string `json:"bfp"`
	SPASession  string `json:"spa"`
	jwt.RegisteredClaims
}

// GenerateHumanToken creates a signed token confirming successful captcha validation.
func (v *turnstileVerifier) GenerateHumanToken(subject, ip, fingerprint, spaSession string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &HumanTokenClaims{
		IP:          ip,
		Fingerprint: fingerprint,
		SPASession:  spaSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    humanTokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(v.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign human token: %w", err)
	}
	return tokenString, nil
}

// ValidateHumanToken validates the X-C-T token against current request details.
func (v *turnstileVerifier) ValidateHumanToken(tokenString, ip, fingerprint, spaSession string) bool {
	claims := &HumanTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.jwtSecret), nil
	}, jwt.WithIssuer(humanTokenIssuer))

	if err != nil || !token.Valid {
		v.logger.Debug("invalid human token", zap.Error(err))
		return false
	}

	if claims.IP != ip || claims.Fingerprint != fingerprint || claims.SPASession != spaSession {
		v.logger.Debug("human token mismatch",
			zap.String("token_ip", claims.IP), zap.String("ip", ip),
			zap.String("token_bfp", claims.Fingerprint), zap.String("bfp", fingerprint),
			zap.String("token_spa", claims.SPASession), zap.String("spa", spaSession))
		return false
	}

	return true
}
