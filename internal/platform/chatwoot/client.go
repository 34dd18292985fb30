// Package chatwoot implements the support-desk side of the bridge: a resty
// client over the Chatwoot application API plus the Forwarder that mirrors
// Telegram conversations into desk conversations.
package chatwoot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
)

// Client talks to one Chatwoot account.
type Client struct {
	http      *resty.Client
	accountID string
}

// NewClient builds a client for the given account. accessToken is sent via
// the api_access_token header on every request.
func NewClient(baseURL, accessToken, accountID string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("api_access_token", accessToken).
			SetTimeout(timeout),
		accountID: accountID,
	}
}

func upstream(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &platform.UpstreamError{Platform: domain.PlatformChatwoot, Op: op, Err: err}
	}
	return &platform.UpstreamError{
		Platform: domain.PlatformChatwoot,
		Op:       op,
		Status:   resp.StatusCode(),
		Err:      fmt.Errorf("body: %s", resp.String()),
	}
}

// GetAccount fetches the account object, proving the token and account id
// are valid. Used by connection tests only.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&Account{}).
		Get(fmt.Sprintf("/api/v1/accounts/%s", c.accountID))
	if err != nil || resp.IsError() {
		return nil, upstream("get account", resp, err)
	}
	return resp.Result().(*Account), nil
}

// ListInboxes returns the account's inboxes.
func (c *Client) ListInboxes(ctx context.Context) ([]Inbox, error) {
	var out inboxListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/api/v1/accounts/%s/inboxes", c.accountID))
	if err != nil || resp.IsError() {
		return nil, upstream("list inboxes", resp, err)
	}
	return out.Payload, nil
}

// CreateInbox provisions a new API-channel inbox.
func (c *Client) CreateInbox(ctx context.Context, name string) (*Inbox, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(InboxPayload{Name: name, Channel: InboxChannel{Type: "api"}}).
		SetResult(&Inbox{}).
		Post(fmt.Sprintf("/api/v1/accounts/%s/inboxes", c.accountID))
	if err != nil || resp.IsError() {
		return nil, upstream("create inbox", resp, err)
	}
	return resp.Result().(*Inbox), nil
}

// SearchContact looks up a contact by its bridge identifier. Returns
// (nil, nil) when no exact match exists; Chatwoot search is fuzzy, so the
// results are filtered client-side.
func (c *Client) SearchContact(ctx context.Context, identifier string) (*Contact, error) {
	var out contactSearchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", identifier).
		SetResult(&out).
		Get(fmt.Sprintf("/api/v1/accounts/%s/contacts/search", c.accountID))
	if err != nil || resp.IsError() {
		return nil, upstream("search contacts", resp, err)
	}
	for i := range out.Payload {
		if out.Payload[i].Identifier == identifier {
			return &out.Payload[i], nil
		}
	}
	return nil, nil
}

// CreateContact creates a contact.
func (c *Client) CreateContact(ctx context.Context, payload ContactPayload) (*Contact, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&Contact{}).
		Post(fmt.Sprintf("/api/v1/accounts/%s/contacts", c.accountID))
	if err != nil || resp.IsError() {
		return nil, upstream("create contact", resp, err)
	}
	return resp.Result().(*Contact), nil
}

// FindConversationBySourceID looks up an existing conversation by its bridge
// source id. Returns (nil, nil) on miss; results are filtered client-side
// since the listing may return loose matches.
func (c *Client) FindConversationBySourceID(ctx context.Context, inboxID int, sourceID string) (*Conversation, error) {
	var out conversationListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("inbox_id", strconv.Itoa(inboxID)).
		SetQueryParam("source_id", sourceID).
		SetResult(&out).
		Get(fmt.Sprintf("/api/v1/accounts/%s/conversations", c.accountID))
	if err != nil || resp.IsError() {
		return nil, upstream("find conversation", resp, err)
	}
	for i := range out.Data.Payload {
		conv := &out.Data.Payload[i]
		if conv.SourceID == sourceID && (inboxID == 0 || conv.InboxID == inboxID) {
			return conv, nil
		}
	}
	return nil, nil
}

// CreateConversation opens a conversation for an existing contact.
func (c *Client) CreateConversation(ctx context.Context, payload ConversationPayload) (*Conversation, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&Conversation{}).
		Post(fmt.Sprintf("/api/v1/accounts/%s/conversations", c.accountID))
	if err != nil || resp.IsError() {
		return nil, upstream("create conversation", resp, err)
	}
	return resp.Result().(*Conversation), nil
}

// CreateMessage appends a message to a conversation.
func (c *Client) CreateMessage(ctx context.Context, conversationID int, payload MessagePayload) (*Message, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&Message{}).
		Post(fmt.Sprintf("/api/v1/accounts/%s/conversations/%d/messages", c.accountID, conversationID))
	if err != nil || resp.IsError() {
		return nil, upstream("create message", resp, err)
	}
	return resp.Result().(*Message), nil
}
