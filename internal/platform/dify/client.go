// Package dify implements the conversational-AI side of the bridge: a resty
// client over the Dify chat-messages API plus the Forwarder that relays user
// messages to an app and captures its answer.
package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
)

// ChatRequest is the blocking chat-messages call.
type ChatRequest struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id,omitempty"`
	User           string         `json:"user"`
}

// Answer is the app's reply text. Some app configurations return an array of
// strings instead of a plain string; only the first element is used then,
// with a warning recorded.
type Answer string

func (a *Answer) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []string
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return err
		}
		if len(arr) > 0 {
			*a = Answer(arr[0])
		}
		log.Warn().Int("elements", len(arr)).Msg("dify returned an array answer, using first element")
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return err
	}
	*a = Answer(s)
	return nil
}

// ChatResponse is the blocking chat-messages answer. ConversationID is the
// app-issued continuity token; sending it back on the next call keeps the
// exchange in one Dify conversation.
type ChatResponse struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	Answer         Answer `json:"answer"`
}

// Client talks to one Dify app.
type Client struct {
	http *resty.Client
}

// NewClient builds a client for the given app. apiKey is sent as a bearer
// token on every request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(apiKey).
			SetTimeout(timeout),
	}
}

func upstream(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &platform.UpstreamError{Platform: domain.PlatformDify, Op: op, Err: err}
	}
	return &platform.UpstreamError{
		Platform: domain.PlatformDify,
		Op:       op,
		Status:   resp.StatusCode(),
		Err:      fmt.Errorf("body: %s", resp.String()),
	}
}

// SendChatMessage posts a user query and blocks for the app's answer.
func (c *Client) SendChatMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Inputs == nil {
		req.Inputs = map[string]any{}
	}
	if req.ResponseMode == "" {
		req.ResponseMode = "blocking"
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&ChatResponse{}).
		Post("/chat-messages")
	if err != nil || resp.IsError() {
		return nil, upstream("chat-messages", resp, err)
	}
	return resp.Result().(*ChatResponse), nil
}

// GetParameters probes the app's parameters endpoint, proving the API key is
// valid without generating a completion.
func (c *Client) GetParameters(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user", "bridge-connection-test").
		Get("/parameters")
	if err != nil || resp.IsError() {
		return upstream("parameters", resp, err)
	}
	return nil
}
