package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/cache"
	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
	"github.com/chatbridge/go-bridge-backend/internal/repo"
)

// Forwarder delivers bridged messages into Telegram chats.
//
// Bot API handles are cached per instance id so repeated forwards do not
// re-read credentials from the database on every message.
type Forwarder struct {
	DB      *gorm.DB
	Timeout time.Duration

	clients *cache.TTL[*Client]
}

// NewForwarder builds a Telegram forwarder. cacheTTL bounds how long a bot's
// client handle (and thus its credentials) may be reused before re-reading
// the instance row.
func NewForwarder(db *gorm.DB, timeout, cacheTTL time.Duration) *Forwarder {
	return &Forwarder{
		DB:      db,
		Timeout: timeout,
		clients: cache.New[*Client](cacheTTL),
	}
}

// Platform implements platform.Forwarder.
func (f *Forwarder) Platform() domain.Platform { return domain.PlatformTelegram }

func (f *Forwarder) client(ctx context.Context, botID string) (*Client, error) {
	if c, ok := f.clients.Get(botID); ok {
		return c, nil
	}
	bot, err := repo.GetActiveTelegramBot(ctx, f.DB, botID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("telegram bot %s: %w", botID, platform.ErrNotConfigured)
		}
		return nil, err
	}
	c := NewClient(bot.BotToken, bot.APIEndpoint, f.Timeout)
	f.clients.Set(botID, c)
	return c, nil
}

// Forward implements platform.Forwarder. The destination chat is derived
// from the message origin: Chatwoot-origin messages are mapped back through
// the conversation link, any other origin carries the Telegram chat id
// directly in ConversationID.
func (f *Forwarder) Forward(ctx context.Context, req platform.ForwardRequest) (platform.ForwardResult, error) {
	var res platform.ForwardResult
	res.Target = domain.PlatformTelegram

	chatID, err := f.destinationChat(ctx, req.Message)
	if err != nil {
		return res, err
	}

	client, err := f.client(ctx, req.InstanceID)
	if err != nil {
		return res, err
	}

	msgID, err := client.SendMessage(ctx, chatID, req.Message.Content)
	if err != nil {
		return res, err
	}

	log.Debug().
		Str("bot_id", req.InstanceID).
		Int64("chat_id", chatID).
		Int("message_id", msgID).
		Msg("forwarded to telegram")

	res.ConversationID = strconv.FormatInt(chatID, 10)
	return res, nil
}

func (f *Forwarder) destinationChat(ctx context.Context, msg domain.CanonicalMessage) (int64, error) {
	raw := msg.ConversationID
	if msg.Platform == domain.PlatformChatwoot {
		cwID, err := strconv.Atoi(msg.ConversationID)
		if err != nil {
			return 0, fmt.Errorf("invalid chatwoot conversation id %q: %w", msg.ConversationID, err)
		}
		link, err := repo.FindLinkByChatwootConversation(ctx, f.DB, cwID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return 0, fmt.Errorf("no conversation link for chatwoot conversation %d: %w", cwID, platform.ErrNotConfigured)
			}
			return 0, err
		}
		raw = link.ExternalChatID
	}

	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", raw, err)
	}
	return chatID, nil
}

// WebhookStatus is the slice of Telegram's webhook registration surfaced by
// the admin API.
type WebhookStatus struct {
	URL            string `json:"url"`
	PendingUpdates int    `json:"pending_update_count"`
	LastErrorDate  int    `json:"last_error_date,omitempty"`
	LastError      string `json:"last_error_message,omitempty"`
}

// RegisterWebhook points the bot's Telegram-side webhook at url. The bot's
// stored webhook secret is registered alongside, so deliveries carry the
// token the intake middleware checks.
func (f *Forwarder) RegisterWebhook(ctx context.Context, botID, url string) error {
	bot, err := repo.GetActiveTelegramBot(ctx, f.DB, botID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("telegram bot %s: %w", botID, platform.ErrNotConfigured)
		}
		return err
	}
	client, err := f.client(ctx, botID)
	if err != nil {
		return err
	}
	if err := client.SetWebhook(ctx, url, bot.WebhookSecret); err != nil {
		return err
	}
	log.Info().Str("bot_id", botID).Str("url", url).Msg("telegram webhook registered")
	return nil
}

// WebhookInfo reports the bot's current Telegram-side webhook registration.
func (f *Forwarder) WebhookInfo(ctx context.Context, botID string) (*WebhookStatus, error) {
	client, err := f.client(ctx, botID)
	if err != nil {
		return nil, err
	}
	info, err := client.GetWebhookInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &WebhookStatus{
		URL:            info.URL,
		PendingUpdates: info.PendingUpdateCount,
		LastErrorDate:  info.LastErrorDate,
		LastError:      info.LastErrorMessage,
	}, nil
}

// TestConnection implements platform.Forwarder by calling getMe with the
// stored token.
func (f *Forwarder) TestConnection(ctx context.Context, instanceID string) error {
	client, err := f.client(ctx, instanceID)
	if err != nil {
		return err
	}
	_, err = client.GetMe(ctx)
	return err
}
