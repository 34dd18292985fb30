// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements shared-secret authentication for webhook routes.
// Telegram echoes the secret configured at setWebhook time in the
// X-Telegram-Bot-Api-Secret-Token header; Chatwoot installations are
// configured to send a custom X-Webhook-Token header. The expected secret is
// per platform instance and resolved from storage on every delivery, so
// rotating a secret takes effect immediately.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Webhook secret headers per origin platform.
const (
	// HeaderTelegramSecret is set by Telegram on every webhook delivery when
	// the webhook was registered with a secret_token.
	HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"
	// HeaderWebhookToken is the custom header configured on Chatwoot (and
	// other generic) webhook integrations.
	HeaderWebhookToken = "X-Webhook-Token"
)

// SecretLookup resolves the expected webhook secret for a platform instance.
// Returning an empty secret with a nil error means the instance has no
// secret configured and the delivery is accepted as-is.
type SecretLookup func(ctx context.Context, instanceID string) (string, error)

// WebhookAuth returns a Gin middleware that authenticates webhook deliveries
// for the instance named by the :id route parameter.
//
// Behavior:
//   - lookup failure (unknown or inactive instance): 401, without revealing
//     whether the instance exists
//   - no secret configured: accepted
//   - otherwise the header value must match in constant time, else 401
func WebhookAuth(header string, lookup SecretLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		want, err := lookup(c.Request.Context(), c.Param("id"))
		if err != nil {
			unauthorized(c)
			return
		}
		if want == "" {
			c.Next()
			return
		}
		got := c.GetHeader(header)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			unauthorized(c)
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    "webhook authentication failed",
	})
}
