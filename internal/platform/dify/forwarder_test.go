package dify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
	"github.com/chatbridge/go-bridge-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.DifyApp{}, &domain.ConversationLink{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeApp fakes the chat-messages endpoint and records the requests it saw.
type fakeApp struct {
	t        *testing.T
	requests []ChatRequest
}

func (a *fakeApp) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat-messages":
			var req ChatRequest
			json.NewDecoder(r.Body).Decode(&req)
			a.requests = append(a.requests, req)
			json.NewEncoder(w).Encode(ChatResponse{
				MessageID:      "m-1",
				ConversationID: "conv-abc",
				Answer:         Answer("echo: " + req.Query),
			})
		case "/parameters":
			fmt.Fprint(w, `{"opening_statement":""}`)
		default:
			a.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func seedApp(t *testing.T, db *gorm.DB, id, baseURL string) {
	t.Helper()
	app := &domain.DifyApp{ID: id, BaseURL: baseURL, APIKey: "app-key", IsActive: true}
	if err := repo.CreateDifyApp(context.Background(), db, app); err != nil {
		t.Fatalf("seed app: %v", err)
	}
}

func request(appID string) platform.ForwardRequest {
	dify := appID
	return platform.ForwardRequest{
		InstanceID: appID,
		Mapping: &domain.PlatformMapping{
			ID:               "map-1",
			SourcePlatform:   "telegram",
			SourcePlatformID: "bot-1",
			DifyAppID:        &dify,
			IsActive:         true,
		},
		Message: domain.CanonicalMessage{
			Platform:       domain.PlatformTelegram,
			InstanceID:     "bot-1",
			ConversationID: "555",
			SenderID:       "555",
			Content:        "what is up",
			Metadata:       map[string]string{domain.MetaChatType: "private"},
		},
	}
}

func TestForward_ReturnsAnswer(t *testing.T) {
	app := &fakeApp{t: t}
	srv := httptest.NewServer(app.handler())
	defer srv.Close()

	db := newTestDB(t)
	seedApp(t, db, "dify-1", srv.URL)
	f := NewForwarder(db, 5*time.Second, time.Minute, false)

	res, err := f.Forward(context.Background(), request("dify-1"))
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if res.Reply != "echo: what is up" {
		t.Fatalf("Reply = %q", res.Reply)
	}
	if res.Target != domain.PlatformDify || res.ConversationID != "conv-abc" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(app.requests) != 1 {
		t.Fatalf("requests = %d; want 1", len(app.requests))
	}
	got := app.requests[0]
	if got.ResponseMode != "blocking" || got.User != "telegram:555" {
		t.Fatalf("unexpected request: %+v", got)
	}
	// History disabled: no continuity token sent or stored.
	if got.ConversationID != "" {
		t.Fatalf("conversation id should be empty, got %q", got.ConversationID)
	}
	link, err := repo.GetLink(context.Background(), db, "bot-1", "555")
	if err != nil {
		t.Fatalf("GetLink: %v", err)
	}
	if link.DifyConversationID != nil {
		t.Fatalf("token stored despite history disabled: %v", *link.DifyConversationID)
	}
}

func TestForward_HistoryPersistsAndReplaysToken(t *testing.T) {
	app := &fakeApp{t: t}
	srv := httptest.NewServer(app.handler())
	defer srv.Close()

	db := newTestDB(t)
	seedApp(t, db, "dify-1", srv.URL)
	f := NewForwarder(db, 5*time.Second, time.Minute, true)
	ctx := context.Background()

	if _, err := f.Forward(ctx, request("dify-1")); err != nil {
		t.Fatalf("first Forward: %v", err)
	}
	if _, err := f.Forward(ctx, request("dify-1")); err != nil {
		t.Fatalf("second Forward: %v", err)
	}

	if len(app.requests) != 2 {
		t.Fatalf("requests = %d; want 2", len(app.requests))
	}
	if app.requests[0].ConversationID != "" {
		t.Fatalf("first call should open a new conversation")
	}
	if app.requests[1].ConversationID != "conv-abc" {
		t.Fatalf("second call should replay the token, got %q", app.requests[1].ConversationID)
	}

	link, err := repo.GetLink(ctx, db, "bot-1", "555")
	if err != nil || link.DifyConversationID == nil || *link.DifyConversationID != "conv-abc" {
		t.Fatalf("token not persisted: %+v err %v", link, err)
	}
}

func TestForward_ChatwootOriginResolvesLinkByDeskConversation(t *testing.T) {
	app := &fakeApp{t: t}
	srv := httptest.NewServer(app.handler())
	defer srv.Close()

	db := newTestDB(t)
	seedApp(t, db, "dify-1", srv.URL)
	f := NewForwarder(db, 5*time.Second, time.Minute, true)
	ctx := context.Background()

	// A telegram chat whose id happens to equal the desk conversation id.
	collide, err := repo.GetOrCreateLink(ctx, db, "bot-1", "7", "private")
	if err != nil {
		t.Fatalf("seed colliding link: %v", err)
	}
	if err := repo.SetDifyConversation(ctx, db, collide.ID, "token-telegram-7"); err != nil {
		t.Fatalf("seed colliding token: %v", err)
	}

	// The chat actually behind desk conversation 7.
	linked, err := repo.GetOrCreateLink(ctx, db, "bot-1", "555", "private")
	if err != nil {
		t.Fatalf("seed linked chat: %v", err)
	}
	if err := repo.SetChatwootConversation(ctx, db, linked.ID, 7); err != nil {
		t.Fatalf("seed desk conversation: %v", err)
	}
	if err := repo.SetDifyConversation(ctx, db, linked.ID, "token-desk"); err != nil {
		t.Fatalf("seed desk token: %v", err)
	}

	req := request("dify-1")
	req.Message.Platform = domain.PlatformChatwoot
	req.Message.InstanceID = "cw-1"
	req.Message.ConversationID = "7"
	if _, err := f.Forward(ctx, req); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	if len(app.requests) != 1 {
		t.Fatalf("requests = %d; want 1", len(app.requests))
	}
	if got := app.requests[0].ConversationID; got != "token-desk" {
		t.Fatalf("continuity token = %q; want the linked chat's token, not the colliding one", got)
	}
}

func TestForward_ChatwootOriginWithoutLinkFails(t *testing.T) {
	app := &fakeApp{t: t}
	srv := httptest.NewServer(app.handler())
	defer srv.Close()

	db := newTestDB(t)
	seedApp(t, db, "dify-1", srv.URL)
	f := NewForwarder(db, 5*time.Second, time.Minute, false)
	ctx := context.Background()

	req := request("dify-1")
	req.Message.Platform = domain.PlatformChatwoot
	req.Message.InstanceID = "cw-1"
	req.Message.ConversationID = "9"
	if _, err := f.Forward(ctx, req); !errors.Is(err, platform.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for unlinked desk conversation, got %v", err)
	}

	// No link row fabricated under the desk conversation id.
	if _, err := repo.GetLink(ctx, db, "bot-1", "9"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("bogus link created for desk conversation id: %v", err)
	}
}

func TestForward_UnknownAppIsNotConfigured(t *testing.T) {
	db := newTestDB(t)
	f := NewForwarder(db, time.Second, time.Minute, false)

	_, err := f.Forward(context.Background(), request("missing"))
	if !errors.Is(err, platform.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestForward_UpstreamFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	db := newTestDB(t)
	seedApp(t, db, "dify-1", srv.URL)
	f := NewForwarder(db, 5*time.Second, time.Minute, false)

	_, err := f.Forward(context.Background(), request("dify-1"))
	var ue *platform.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d; want 429", ue.Status)
	}
}

func TestAnswer_ArrayResponseUsesFirstElement(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want string
	}{
		"plain string": {raw: `"hello"`, want: "hello"},
		"array":        {raw: `["first","second"]`, want: "first"},
		"empty array":  {raw: `[]`, want: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var a Answer
			if err := json.Unmarshal([]byte(tc.raw), &a); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if string(a) != tc.want {
				t.Fatalf("answer = %q; want %q", a, tc.want)
			}
		})
	}
}

func TestTestConnection(t *testing.T) {
	app := &fakeApp{t: t}
	srv := httptest.NewServer(app.handler())
	defer srv.Close()

	db := newTestDB(t)
	seedApp(t, db, "dify-1", srv.URL)
	f := NewForwarder(db, 5*time.Second, time.Minute, false)

	if err := f.TestConnection(context.Background(), "dify-1"); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if err := f.TestConnection(context.Background(), "missing"); !errors.Is(err, platform.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
