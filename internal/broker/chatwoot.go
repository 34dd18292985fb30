package broker

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform/chatwoot"
)

// chatwootSender is the message author in a webhook event.
type chatwootSender struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// chatwootEventMessage is one message embedded in a webhook event.
type chatwootEventMessage struct {
	ID          int             `json:"id"`
	Content     string          `json:"content"`
	MessageType any             `json:"message_type"`
	Private     bool            `json:"private"`
	SourceID    string          `json:"source_id"`
	Sender      *chatwootSender `json:"sender"`
}

// chatwootEvent is the envelope common to the webhook events the bridge
// consumes. message_created events carry the message fields at the top
// level; conversation_updated carries a message list on the conversation.
type chatwootEvent struct {
	Event        string          `json:"event"`
	ID           int             `json:"id"`
	Content      string          `json:"content"`
	MessageType  any             `json:"message_type"`
	Private      bool            `json:"private"`
	SourceID     string          `json:"source_id"`
	Sender       *chatwootSender `json:"sender"`
	Conversation *struct {
		ID       int                    `json:"id"`
		Messages []chatwootEventMessage `json:"messages"`
	} `json:"conversation"`
}

// messageTypeString tolerates Chatwoot's two encodings of message_type:
// webhook payloads use strings ("incoming"/"outgoing"), embedded message
// objects use the API's integers (0 incoming, 1 outgoing).
func messageTypeString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 1 {
			return "outgoing"
		}
		return "incoming"
	}
	return ""
}

// normalizeChatwoot converts a Chatwoot webhook event into a canonical
// message.
//
// Only outgoing agent replies are routable: incoming messages in the bridge
// inbox are the bridge's own writes (dropped via the echo marker), private
// notes stay inside the desk, and contact_updated is informational. Unknown
// event types are no-ops so webhook delivery never fails over them.
func normalizeChatwoot(accountID string, payload []byte) (domain.CanonicalMessage, bool, error) {
	var ev chatwootEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.CanonicalMessage{}, false, err
	}

	switch ev.Event {
	case "message_created":
		if ev.Conversation == nil {
			return domain.CanonicalMessage{}, false, nil
		}
		return chatwootMessageToCanonical(accountID, ev.Conversation.ID, chatwootEventMessage{
			ID:          ev.ID,
			Content:     ev.Content,
			MessageType: ev.MessageType,
			Private:     ev.Private,
			SourceID:    ev.SourceID,
			Sender:      ev.Sender,
		})

	case "conversation_updated":
		if ev.Conversation == nil || len(ev.Conversation.Messages) == 0 {
			return domain.CanonicalMessage{}, false, nil
		}
		last := ev.Conversation.Messages[len(ev.Conversation.Messages)-1]
		return chatwootMessageToCanonical(accountID, ev.Conversation.ID, last)

	case "contact_updated":
		// Informational only.
		return domain.CanonicalMessage{}, false, nil

	default:
		return domain.CanonicalMessage{}, false, nil
	}
}

func chatwootMessageToCanonical(accountID string, conversationID int, m chatwootEventMessage) (domain.CanonicalMessage, bool, error) {
	if strings.TrimSpace(m.Content) == "" {
		return domain.CanonicalMessage{}, false, nil
	}
	if m.Private {
		return domain.CanonicalMessage{}, false, nil
	}
	if strings.HasPrefix(m.SourceID, chatwoot.EchoMarker) {
		return domain.CanonicalMessage{}, false, nil
	}
	if messageTypeString(m.MessageType) != "outgoing" {
		return domain.CanonicalMessage{}, false, nil
	}

	msg := domain.CanonicalMessage{
		Platform:       domain.PlatformChatwoot,
		InstanceID:     accountID,
		ConversationID: strconv.Itoa(conversationID),
		Content:        m.Content,
		Metadata:       map[string]string{},
	}
	if m.Sender != nil {
		msg.SenderID = strconv.Itoa(m.Sender.ID)
		msg.SenderName = m.Sender.Name
		if m.Sender.Type == "agent_bot" {
			msg.Metadata[domain.MetaIsBot] = "true"
		}
	}
	return msg, true, nil
}
