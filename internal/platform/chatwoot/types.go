package chatwoot

// Inbox is a Chatwoot inbox. The bridge provisions one API-channel inbox per
// account and funnels every linked Telegram chat through it.
type Inbox struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type inboxListResponse struct {
	Payload []Inbox `json:"payload"`
}

// InboxPayload creates an API-channel inbox.
type InboxPayload struct {
	Name    string       `json:"name"`
	Channel InboxChannel `json:"channel"`
}

type InboxChannel struct {
	Type       string `json:"type"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// Contact is a Chatwoot contact. Identifier carries the bridge's stable key
// for the Telegram chat so repeat lookups find the same contact.
type Contact struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

type contactSearchResponse struct {
	Payload []Contact `json:"payload"`
}

// ContactPayload creates a contact.
type ContactPayload struct {
	InboxID    int    `json:"inbox_id"`
	Name       string `json:"name,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// Conversation is a Chatwoot conversation.
type Conversation struct {
	ID       int    `json:"id"`
	InboxID  int    `json:"inbox_id"`
	SourceID string `json:"source_id,omitempty"`
}

type conversationListResponse struct {
	Data struct {
		Payload []Conversation `json:"payload"`
	} `json:"data"`
}

// ConversationPayload creates a conversation bound to a contact and inbox.
type ConversationPayload struct {
	SourceID  string `json:"source_id,omitempty"`
	InboxID   int    `json:"inbox_id"`
	ContactID int    `json:"contact_id"`
	Status    string `json:"status,omitempty"`
}

// MessagePayload appends a message to a conversation. MessageType is
// "incoming" for end-user text and "outgoing" for bridged bot/AI replies.
// SourceID carries the bridge echo marker; the webhook broker drops
// message_created events that echo it back.
type MessagePayload struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Private     bool   `json:"private"`
	SourceID    string `json:"source_id,omitempty"`
}

// Message is a message object returned by the Chatwoot API.
type Message struct {
	ID             int    `json:"id"`
	Content        string `json:"content"`
	ConversationID int    `json:"conversation_id"`
}

// Account is the account object used for connection probing.
type Account struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
