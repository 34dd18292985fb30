package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func authRouter(lookup SecretLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/telegram/:id", WebhookAuth(HeaderTelegramSecret, lookup), func(c *gin.Context) {
		c.String(http.StatusOK, "delivered")
	})
	return r
}

func TestWebhookAuth_ValidSecret(t *testing.T) {
	r := authRouter(func(_ context.Context, id string) (string, error) {
		if id != "bot-1" {
			t.Fatalf("lookup id = %q", id)
		}
		return "s3cret", nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram/bot-1", nil)
	req.Header.Set(HeaderTelegramSecret, "s3cret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
}

func TestWebhookAuth_WrongOrMissingSecret(t *testing.T) {
	r := authRouter(func(context.Context, string) (string, error) { return "s3cret", nil })

	for name, header := range map[string]string{
		"wrong secret": "nope",
		"no header":    "",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram/bot-1", nil)
		if header != "" {
			req.Header.Set(HeaderTelegramSecret, header)
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d; want 401", name, w.Code)
		}
	}
}

func TestWebhookAuth_NoSecretConfigured(t *testing.T) {
	r := authRouter(func(context.Context, string) (string, error) { return "", nil })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/telegram/bot-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200 when no secret is configured", w.Code)
	}
}

func TestWebhookAuth_UnknownInstance(t *testing.T) {
	r := authRouter(func(context.Context, string) (string, error) {
		return "", errors.New("not found")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram/ghost", nil)
	req.Header.Set(HeaderTelegramSecret, "anything")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401 for unknown instance", w.Code)
	}
}
