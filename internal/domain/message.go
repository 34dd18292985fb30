// Package domain – canonical message envelope.
//
// CanonicalMessage is the platform-agnostic form every inbound webhook payload
// is normalized into before routing. It is ephemeral: produced once per
// webhook invocation by the message broker, consumed by the routing engine,
// never persisted.
package domain

// Well-known metadata keys carried on a CanonicalMessage. The boolean-valued
// keys ("true"/"false") act as loop and test guards.
const (
	// MetaForwarded marks a message that was itself produced by a forward;
	// such messages are never routed again.
	MetaForwarded = "forwarded"
	// MetaIsBot marks a message authored by a bot identity.
	MetaIsBot = "is_bot"
	// MetaTestMode marks synthetic messages emitted by connection tests.
	MetaTestMode = "test_mode"

	MetaChatType = "chat_type"
	MetaUsername = "username"
	MetaLanguage = "language"
	MetaPrivate  = "private"
)

// CanonicalMessage is the normalized envelope for one inbound message.
//
// InstanceID is the configured platform-instance id (bot / account / app)
// that received the webhook. Raw payloads do not self-identify the instance,
// so the broker attaches it from the webhook URL before routing.
type CanonicalMessage struct {
	Platform       Platform
	InstanceID     string
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	Metadata       map[string]string
}

// Meta returns the metadata value for key, or "" when absent.
func (m CanonicalMessage) Meta(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// WithMeta returns a copy of the message with key set in its metadata bag.
func (m CanonicalMessage) WithMeta(key, value string) CanonicalMessage {
	meta := make(map[string]string, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		meta[k] = v
	}
	meta[key] = value
	m.Metadata = meta
	return m
}

// ShouldProcess reports whether the message is eligible for routing.
// Messages flagged as forwarded, bot-authored, or test-mode are rejected
// here, before any mapping lookup, to break forward → webhook → forward
// cycles between the platforms.
func (m CanonicalMessage) ShouldProcess() bool {
	for _, key := range []string{MetaForwarded, MetaIsBot, MetaTestMode} {
		if m.Meta(key) == "true" {
			return false
		}
	}
	return true
}

// IsGroup reports whether the message originated in a group conversation.
func (m CanonicalMessage) IsGroup() bool {
	return m.Meta(MetaChatType) == "group" || m.Meta(MetaChatType) == "supergroup"
}
