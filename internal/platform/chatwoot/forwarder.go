package chatwoot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/cache"
	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
	"github.com/chatbridge/go-bridge-backend/internal/repo"
)

// DefaultInboxName is used when provisioning the bridge inbox on first
// forward to an account that has none recorded.
const DefaultInboxName = "Telegram Bridge"

// EchoMarker prefixes the source_id of every message the bridge writes into
// Chatwoot. Chatwoot fires a message_created webhook for those writes too;
// the broker recognises the marker and drops the echo instead of routing it
// back out.
const EchoMarker = "bridge-echo:"

// Forwarder mirrors Telegram conversations into Chatwoot.
//
// On first contact from a Telegram chat it provisions the account-side
// plumbing lazily: the API inbox (once per account), then a contact and a
// conversation (once per chat), recording the conversation id on the
// conversation link so subsequent messages go straight to CreateMessage.
type Forwarder struct {
	DB        *gorm.DB
	Timeout   time.Duration
	InboxName string

	clients *cache.TTL[*Client]
}

// NewForwarder builds a Chatwoot forwarder.
func NewForwarder(db *gorm.DB, timeout, cacheTTL time.Duration) *Forwarder {
	return &Forwarder{
		DB:        db,
		Timeout:   timeout,
		InboxName: DefaultInboxName,
		clients:   cache.New[*Client](cacheTTL),
	}
}

// Platform implements platform.Forwarder.
func (f *Forwarder) Platform() domain.Platform { return domain.PlatformChatwoot }

func (f *Forwarder) account(ctx context.Context, id string) (*domain.ChatwootAccount, *Client, error) {
	acc, err := repo.GetActiveChatwootAccount(ctx, f.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, fmt.Errorf("chatwoot account %s: %w", id, platform.ErrNotConfigured)
		}
		return nil, nil, err
	}
	if c, ok := f.clients.Get(id); ok {
		return acc, c, nil
	}
	c := NewClient(acc.BaseURL, acc.AccessToken, acc.AccountID, f.Timeout)
	f.clients.Set(id, c)
	return acc, c, nil
}

// ensureInbox returns the bridge inbox id, provisioning it on first use.
func (f *Forwarder) ensureInbox(ctx context.Context, client *Client, acc *domain.ChatwootAccount) (int, error) {
	if acc.InboxID != 0 {
		return acc.InboxID, nil
	}

	inboxes, err := client.ListInboxes(ctx)
	if err != nil {
		return 0, err
	}
	var inboxID int
	for _, ib := range inboxes {
		if ib.Name == f.InboxName {
			inboxID = ib.ID
			break
		}
	}
	if inboxID == 0 {
		created, err := client.CreateInbox(ctx, f.InboxName)
		if err != nil {
			return 0, err
		}
		inboxID = created.ID
		log.Info().Str("account_id", acc.ID).Int("inbox_id", inboxID).Msg("provisioned chatwoot bridge inbox")
	}

	if err := repo.UpdateChatwootInbox(ctx, f.DB, acc.ID, inboxID); err != nil {
		return 0, err
	}
	acc.InboxID = inboxID
	return inboxID, nil
}

// identifier is the stable contact key for a Telegram chat.
func identifier(botID, chatID string) string {
	return fmt.Sprintf("telegram:%s:%s", botID, chatID)
}

// ensureConversation returns the Chatwoot conversation id for a link,
// creating contact and conversation when the link has none recorded.
func (f *Forwarder) ensureConversation(ctx context.Context, client *Client, inboxID int, link *domain.ConversationLink, senderName string) (int, error) {
	if link.ChatwootConversationID != nil {
		return *link.ChatwootConversationID, nil
	}

	ident := identifier(link.TelegramBotID, link.ExternalChatID)

	// The create call is not idempotent on the remote side: search by
	// source id first so a lost local write or a racing delivery reuses
	// the existing conversation instead of opening a duplicate.
	if conv, err := client.FindConversationBySourceID(ctx, inboxID, ident); err != nil {
		return 0, err
	} else if conv != nil {
		if err := repo.SetChatwootConversation(ctx, f.DB, link.ID, conv.ID); err != nil {
			return 0, err
		}
		link.ChatwootConversationID = &conv.ID
		return conv.ID, nil
	}

	contact, err := client.SearchContact(ctx, ident)
	if err != nil {
		return 0, err
	}
	if contact == nil {
		name := senderName
		if name == "" {
			name = "Telegram user " + link.ExternalChatID
		}
		contact, err = client.CreateContact(ctx, ContactPayload{
			InboxID:    inboxID,
			Name:       name,
			Identifier: ident,
		})
		if err != nil {
			return 0, err
		}
	}

	conv, err := client.CreateConversation(ctx, ConversationPayload{
		SourceID:  ident,
		InboxID:   inboxID,
		ContactID: contact.ID,
		Status:    "open",
	})
	if err != nil {
		return 0, err
	}

	if err := repo.SetChatwootConversation(ctx, f.DB, link.ID, conv.ID); err != nil {
		return 0, err
	}
	link.ChatwootConversationID = &conv.ID
	return conv.ID, nil
}

// Forward implements platform.Forwarder. Telegram-origin messages land as
// incoming desk messages; AI-origin replies land as outgoing ones so agents
// see both sides of the exchange.
func (f *Forwarder) Forward(ctx context.Context, req platform.ForwardRequest) (platform.ForwardResult, error) {
	var res platform.ForwardResult
	res.Target = domain.PlatformChatwoot

	if req.Mapping == nil {
		return res, errors.New("chatwoot forward requires a mapping")
	}

	acc, client, err := f.account(ctx, req.InstanceID)
	if err != nil {
		return res, err
	}
	inboxID, err := f.ensureInbox(ctx, client, acc)
	if err != nil {
		return res, err
	}

	link, err := repo.GetOrCreateLink(ctx, f.DB,
		req.Mapping.SourcePlatformID,
		req.Message.ConversationID,
		req.Message.Meta(domain.MetaChatType),
	)
	if err != nil {
		return res, err
	}

	convID, err := f.ensureConversation(ctx, client, inboxID, link, req.Message.SenderName)
	if err != nil {
		return res, err
	}

	messageType := "incoming"
	if req.Message.Platform == domain.PlatformDify {
		messageType = "outgoing"
	}
	msg, err := client.CreateMessage(ctx, convID, MessagePayload{
		Content:     req.Message.Content,
		MessageType: messageType,
		SourceID:    EchoMarker + uuid.NewString(),
	})
	if err != nil {
		return res, err
	}

	log.Debug().
		Str("account_id", req.InstanceID).
		Int("conversation_id", convID).
		Int("message_id", msg.ID).
		Str("message_type", messageType).
		Msg("forwarded to chatwoot")

	res.ConversationID = strconv.Itoa(convID)
	return res, nil
}

// TestConnection implements platform.Forwarder by fetching the account
// object with the stored token.
func (f *Forwarder) TestConnection(ctx context.Context, instanceID string) error {
	_, client, err := f.account(ctx, instanceID)
	if err != nil {
		return err
	}
	_, err = client.GetAccount(ctx)
	return err
}
