// Webhook HTTP handlers.
//
// This file exposes the inbound delivery endpoints:
//   - POST /webhooks/telegram/{id}
//   - POST /webhooks/chatwoot/{id}
//   - POST /webhooks/ai/{id}
//
// The {id} names the configured platform instance that received the event;
// raw payloads do not self-identify which instance they belong to.
//
// Response semantics follow webhook etiquette: a structurally valid event is
// always answered 200 with the routing outcome in the body, even when every
// forward failed. Returning 5xx for downstream failures would make the
// origin platform retry or disable the webhook over problems it cannot fix.
// Only malformed payloads earn a 400.
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/routing"
)

// WebhookService normalizes raw webhook payloads and routes the result.
type WebhookService interface {
	Handle(ctx context.Context, origin domain.Platform, instanceID string, payload []byte) (routing.Outcome, error)
}

// TelegramWebhook godoc
// @ID          telegramWebhook
// @Summary     Receive a Telegram Bot API update
// @Description Accepts one update for the bot named in the path and routes any text message it carries.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Telegram-Bot-Api-Secret-Token  header  string  false "Webhook secret configured at setWebhook time"
// @Param       id       path  string  true  "Telegram bot ID (UUID)"  format(uuid)
// @Param       payload  body  object  true  "Bot API update"
//
// @Success     200  {object} routing.Outcome
// @Failure     400  {object} handlers.ErrorResponse "Malformed payload"
// @Failure     401  {object} handlers.ErrorResponse "Webhook authentication failed"
// @Router      /webhooks/telegram/{id} [post]
func (h *Handlers) TelegramWebhook(c *gin.Context) {
	h.webhook(c, domain.PlatformTelegram)
}

// ChatwootWebhook godoc
// @ID          chatwootWebhook
// @Summary     Receive a Chatwoot webhook event
// @Description Accepts one event for the account named in the path. Agent replies are routed;
// @Description other event types are acknowledged without action.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Webhook-Token  header  string  false "Shared webhook secret"
// @Param       id       path  string  true  "Chatwoot account ID (UUID)"  format(uuid)
// @Param       payload  body  object  true  "Webhook event"
//
// @Success     200  {object} routing.Outcome
// @Failure     400  {object} handlers.ErrorResponse "Malformed payload"
// @Failure     401  {object} handlers.ErrorResponse "Webhook authentication failed"
// @Router      /webhooks/chatwoot/{id} [post]
func (h *Handlers) ChatwootWebhook(c *gin.Context) {
	h.webhook(c, domain.PlatformChatwoot)
}

// AIWebhook godoc
// @ID          aiWebhook
// @Summary     Receive an AI app push message
// @Description Accepts an app-initiated message for the Dify app named in the path.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       id       path  string  true  "Dify app ID (UUID)"  format(uuid)
// @Param       payload  body  object  true  "Push event"
//
// @Success     200  {object} routing.Outcome
// @Failure     400  {object} handlers.ErrorResponse "Malformed payload"
// @Router      /webhooks/ai/{id} [post]
func (h *Handlers) AIWebhook(c *gin.Context) {
	h.webhook(c, domain.PlatformDify)
}

// webhook reads the raw body and hands it to the broker. The body is already
// capped by the router-level size limiter.
func (h *Handlers) webhook(c *gin.Context, origin domain.Platform) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}

	out, err := h.hooks.Handle(c.Request.Context(), origin, c.Param("id"), payload)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed webhook payload")
		return
	}
	ok(c, http.StatusOK, out)
}
