// Package telegram implements the Telegram side of the bridge: a thin client
// over the Bot API plus the Forwarder that delivers agent and AI replies back
// into Telegram chats.
package telegram

import (
	"context"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
)

// Client wraps a Bot API handle for one bot instance.
//
// The handle is built without the library's initial getMe probe so that
// construction never touches the network; validity is checked explicitly via
// TestConnection.
type Client struct {
	bot *tgbotapi.BotAPI
}

// NewClient builds a client for the given bot token. baseURL overrides the
// API host (self-hosted Bot API servers); empty means api.telegram.org.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	endpoint := tgbotapi.APIEndpoint
	if baseURL != "" {
		endpoint = strings.TrimRight(baseURL, "/") + "/bot%s/%s"
	}
	bot.SetAPIEndpoint(endpoint)
	return &Client{bot: bot}
}

// SendMessage delivers text to a chat and returns the new message id.
// The Bot API library carries no context; the HTTP client timeout set at
// construction bounds the call.
func (c *Client) SendMessage(_ context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, &platform.UpstreamError{
			Platform: domain.PlatformTelegram,
			Op:       "sendMessage",
			Err:      err,
		}
	}
	return sent.MessageID, nil
}

// GetMe fetches the bot's own identity, proving the token is valid.
func (c *Client) GetMe(_ context.Context) (tgbotapi.User, error) {
	me, err := c.bot.GetMe()
	if err != nil {
		return tgbotapi.User{}, &platform.UpstreamError{
			Platform: domain.PlatformTelegram,
			Op:       "getMe",
			Err:      err,
		}
	}
	return me, nil
}

// SetWebhook points the bot's webhook at url, with the given secret token
// echoed back by Telegram on every delivery. The request is assembled by
// hand: the library's WebhookConfig cannot carry a secret token.
func (c *Client) SetWebhook(_ context.Context, url, secret string) error {
	params := make(tgbotapi.Params)
	params["url"] = url
	params.AddNonEmpty("secret_token", secret)
	if _, err := c.bot.MakeRequest("setWebhook", params); err != nil {
		return &platform.UpstreamError{Platform: domain.PlatformTelegram, Op: "setWebhook", Err: err}
	}
	return nil
}

// GetWebhookInfo reports the bot's current webhook registration.
func (c *Client) GetWebhookInfo(_ context.Context) (tgbotapi.WebhookInfo, error) {
	info, err := c.bot.GetWebhookInfo()
	if err != nil {
		return tgbotapi.WebhookInfo{}, &platform.UpstreamError{
			Platform: domain.PlatformTelegram,
			Op:       "getWebhookInfo",
			Err:      err,
		}
	}
	return info, nil
}
