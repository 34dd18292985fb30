// Bot webhook admin handlers.
//
// This file exposes the endpoints that manage a bot's Telegram-side webhook
// registration:
//   - PUT /bots/{id}/webhook   (point Telegram's deliveries at this bridge)
//   - GET /bots/{id}/webhook   (inspect the current registration)
//
// Registration sends the bot's stored webhook secret along, so subsequent
// deliveries authenticate against the intake middleware without any extra
// coordination step.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chatbridge/go-bridge-backend/internal/platform"
	"github.com/chatbridge/go-bridge-backend/internal/platform/telegram"
)

// BotWebhookService manages a bot's webhook registration on the Telegram
// side. Implementations must honor the provided context.
type BotWebhookService interface {
	// RegisterWebhook points Telegram's deliveries for the bot at url.
	RegisterWebhook(ctx context.Context, botID, url string) error
	// WebhookInfo reports the bot's current registration.
	WebhookInfo(ctx context.Context, botID string) (*telegram.WebhookStatus, error)
}

// SetBotWebhookRequest is the JSON payload for registering a bot's webhook.
type SetBotWebhookRequest struct {
	URL string `json:"url" binding:"required" example:"https://bridge.example.com/webhooks/telegram/141add05-4415-4938-b5a1-17e0d3171aff"`
}

// failBotWebhook translates platform-level errors into HTTP responses.
func failBotWebhook(c *gin.Context, err error) {
	var ue *platform.UpstreamError
	switch {
	case errors.Is(err, platform.ErrNotConfigured):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "telegram bot not found or inactive")
	case errors.As(err, &ue):
		fail(c, http.StatusBadGateway, ErrCodeWebhookFailed, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeWebhookFailed, err.Error())
	}
}

// SetBotWebhook godoc
// @ID          setBotWebhook
// @Summary     Register a bot's Telegram webhook
// @Description Points Telegram's update deliveries for the bot at the given URL.
// @Description The bot's stored webhook secret is registered alongside.
// @Tags        Bots
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Telegram bot ID (UUID)"  format(uuid)
// @Param       body  body  handlers.SetBotWebhookRequest  true  "Webhook target"
//
// @Success     200  {object} map[string]string
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Bot not found or inactive"
// @Failure     502  {object} handlers.ErrorResponse "Telegram rejected the registration"
// @Router      /bots/{id}/webhook [put]
func (h *Handlers) SetBotWebhook(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "bot id must be a UUID")
		return
	}

	var req SetBotWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "webhook url must be an absolute http(s) URL")
		return
	}

	if err := h.bots.RegisterWebhook(c.Request.Context(), id, req.URL); err != nil {
		failBotWebhook(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "registered", "url": req.URL})
}

// GetBotWebhook godoc
// @ID          getBotWebhook
// @Summary     Inspect a bot's Telegram webhook registration
// @Tags        Bots
// @Produce     json
//
// @Param       id  path  string  true  "Telegram bot ID (UUID)"  format(uuid)
//
// @Success     200  {object} telegram.WebhookStatus
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Bot not found or inactive"
// @Failure     502  {object} handlers.ErrorResponse "Telegram request failed"
// @Router      /bots/{id}/webhook [get]
func (h *Handlers) GetBotWebhook(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "bot id must be a UUID")
		return
	}

	status, err := h.bots.WebhookInfo(c.Request.Context(), id)
	if err != nil {
		failBotWebhook(c, err)
		return
	}
	ok(c, http.StatusOK, status)
}
