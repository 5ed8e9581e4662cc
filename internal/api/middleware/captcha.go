package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brasul/fretes/internal/captcha"
	"brasul/fretes/internal/config"
)

const (
	// ContextKeyIsHumanVerified holds the key for captcha status in Gin context.
	ContextKeyIsHumanVerified = "isHumanVerified"
)

// CaptchaMiddleware handles Cloudflare Turnstile verification (X-C-V) and token (X-C-T) checks.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		fingerprint := c.GetHeader("X-BFP")
		spaSession := c.GetHeader("X-SPA")
		humanToken := c.GetHeader("X-C-T")
		challenge := c.GetHeader("X-C-V")

		isHuman := false

		if humanToken != "" && verifier.ValidateHumanToken(humanToken, clientIP, fingerprint, spaSession) {
			isHuman = true
		}

		if !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, clientIP)
			if err != nil {
				// Treated as non-human; the rate limiter decides what happens next.
				logger.Warn("turnstile verification error", zap.String("ip", clientIP), zap.Error(err))
			} else if verified {
				isHuman = true
				token, tokenErr := verifier.GenerateHumanToken("", clientIP, fingerprint, spaSession, cfg.CaptchaTokenTTL)
				if tokenErr != nil {
					logger.Error("failed to issue human token", zap.Error(tokenErr))
				} else {
					c.Header("X-C-T", token)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}

// RequireHuman rejects requests that CaptchaMiddleware did not verify.
func RequireHuman() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextKeyIsHumanVerified) {
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"error": "Captcha validation required"})
			return
		}
		c.Next()
	}
}
