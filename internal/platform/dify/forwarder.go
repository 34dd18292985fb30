package dify

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

// Forwarder relays user messages to a Dify app and returns its answer as the
// ForwardResult reply so the routing engine can chain it onward.
//
// When conversation history is enabled, the app-issued continuity token is
// persisted on the conversation link and replayed on subsequent calls;
// otherwise every message opens a fresh Dify conversation.
type Forwarder struct {
	DB            *gorm.DB
	Timeout       time.Duration
	EnableHistory bool

	clients *cache.TTL[*Client]
}

// NewForwarder builds a Dify forwarder.
func NewForwarder(db *gorm.DB, timeout, cacheTTL time.Duration, enableHistory bool) *Forwarder {
	return &Forwarder{
		DB:            db,
		Timeout:       timeout,
		EnableHistory: enableHistory,
		clients:       cache.New[*Client](cacheTTL),
	}
}

// Platform implements platform.Forwarder.
func (f *Forwarder) Platform() domain.Platform { return domain.PlatformDify }

func (f *Forwarder) client(ctx context.Context, appID string) (*Client, error) {
	if c, ok := f.clients.Get(appID); ok {
		return c, nil
	}
	app, err := repo.GetActiveDifyApp(ctx, f.DB, appID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("dify app %s: %w", appID, platform.ErrNotConfigured)
		}
		return nil, err
	}
	c := NewClient(app.BaseURL, app.APIKey, f.Timeout)
	f.clients.Set(appID, c)
	return c, nil
}

// Forward implements platform.Forwarder.
func (f *Forwarder) Forward(ctx context.Context, req platform.ForwardRequest) (platform.ForwardResult, error) {
	var res platform.ForwardResult
	res.Target = domain.PlatformDify

	if req.Mapping == nil {
		return res, errors.New("dify forward requires a mapping")
	}

	client, err := f.client(ctx, req.InstanceID)
	if err != nil {
		return res, err
	}

	link, err := f.resolveLink(ctx, req)
	if err != nil {
		return res, err
	}

	chatReq := ChatRequest{
		Query: req.Message.Content,
		User:  fmt.Sprintf("telegram:%s", req.Message.SenderID),
	}
	if f.EnableHistory && link.DifyConversationID != nil {
		chatReq.ConversationID = *link.DifyConversationID
	}

	resp, err := client.SendChatMessage(ctx, chatReq)
	if err != nil {
		return res, err
	}

	if f.EnableHistory && resp.ConversationID != "" &&
		(link.DifyConversationID == nil || *link.DifyConversationID != resp.ConversationID) {
		if err := repo.SetDifyConversation(ctx, f.DB, link.ID, resp.ConversationID); err != nil {
			// The answer was produced; losing the token only costs continuity.
			log.Warn().Err(err).Str("link_id", link.ID).Msg("failed to persist dify conversation token")
		}
	}

	log.Debug().
		Str("app_id", req.InstanceID).
		Str("conversation_id", resp.ConversationID).
		Msg("forwarded to dify")

	res.Reply = string(resp.Answer)
	res.ConversationID = resp.ConversationID
	return res, nil
}

// resolveLink locates the conversation link for the message. Links are keyed
// by Telegram chat id, so a Chatwoot-origin message must be mapped back
// through its desk conversation id rather than treated as a chat id; the two
// id spaces overlap.
func (f *Forwarder) resolveLink(ctx context.Context, req platform.ForwardRequest) (*domain.ConversationLink, error) {
	if req.Message.Platform == domain.PlatformChatwoot {
		cwID, err := strconv.Atoi(req.Message.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("invalid chatwoot conversation id %q: %w", req.Message.ConversationID, err)
		}
		link, err := repo.FindLinkByChatwootConversation(ctx, f.DB, cwID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("no conversation link for chatwoot conversation %d: %w", cwID, platform.ErrNotConfigured)
			}
			return nil, err
		}
		return link, nil
	}
	return repo.GetOrCreateLink(ctx, f.DB,
		req.Mapping.SourcePlatformID,
		req.Message.ConversationID,
		req.Message.Meta(domain.MetaChatType),
	)
}

// TestConnection implements platform.Forwarder by probing the parameters
// endpoint with the stored key.
func (f *Forwarder) TestConnection(ctx context.Context, instanceID string) error {
	client, err := f.client(ctx, instanceID)
	if err != nil {
		return err
	}
	return client.GetParameters(ctx)
}
