package broker

import (
	"encoding/json"
	"strings"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

// difyEvent is the minimal payload accepted on the AI webhook. Dify apps
// normally answer synchronously during a forward; this endpoint exists for
// app-initiated pushes (scheduled or tool-triggered messages).
type difyEvent struct {
	Event          string `json:"event"`
	ChatID         string `json:"chat_id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	Answer         string `json:"answer"`
}

// normalizeDify converts an app-initiated push into a canonical message.
// ChatID addresses the Telegram-side chat of the conversation. Anything
// other than a well-formed "message" event is a no-op.
func normalizeDify(appID string, payload []byte) (domain.CanonicalMessage, bool, error) {
	var ev difyEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.CanonicalMessage{}, false, err
	}
	if ev.Event != "message" {
		return domain.CanonicalMessage{}, false, nil
	}
	content := ev.Content
	if content == "" {
		content = ev.Answer
	}
	if strings.TrimSpace(content) == "" || ev.ChatID == "" {
		return domain.CanonicalMessage{}, false, nil
	}

	return domain.CanonicalMessage{
		Platform:       domain.PlatformDify,
		InstanceID:     appID,
		ConversationID: ev.ChatID,
		SenderName:     "AI Assistant",
		Content:        content,
		Metadata:       map[string]string{},
	}, true, nil
}
