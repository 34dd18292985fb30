package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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
	if err := db.AutoMigrate(&domain.TelegramBot{}, &domain.ConversationLink{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newBotAPIServer fakes the Telegram Bot API surface the forwarder touches.
func newBotAPIServer(t *testing.T, onSend func(r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if onSend != nil {
				onSend(r)
			}
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"chat":{"id":555,"type":"private"}}}`)
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"bridge","username":"bridge_bot"}}`)
		default:
			fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	}))
}

func seedBot(t *testing.T, db *gorm.DB, id, endpoint string, active bool) {
	t.Helper()
	bot := &domain.TelegramBot{ID: id, Name: "bridge", BotToken: "token", APIEndpoint: endpoint, WebhookSecret: "hook-secret", IsActive: active}
	if err := repo.CreateTelegramBot(context.Background(), db, bot); err != nil {
		t.Fatalf("seed bot: %v", err)
	}
}

func TestForward_DeliversToChat(t *testing.T) {
	var gotChat, gotText string
	srv := newBotAPIServer(t, func(r *http.Request) {
		_ = r.ParseForm()
		gotChat = r.Form.Get("chat_id")
		gotText = r.Form.Get("text")
	})
	defer srv.Close()

	db := newTestDB(t)
	seedBot(t, db, "bot-1", srv.URL, true)
	f := NewForwarder(db, 5*time.Second, time.Minute)

	res, err := f.Forward(context.Background(), platform.ForwardRequest{
		InstanceID: "bot-1",
		Message: domain.CanonicalMessage{
			Platform:       domain.PlatformDify,
			ConversationID: "555",
			Content:        "the answer",
		},
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if gotChat != "555" || gotText != "the answer" {
		t.Fatalf("sent chat_id=%q text=%q", gotChat, gotText)
	}
	if res.Target != domain.PlatformTelegram || res.ConversationID != "555" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestForward_ChatwootOriginResolvesLink(t *testing.T) {
	var gotChat string
	srv := newBotAPIServer(t, func(r *http.Request) {
		_ = r.ParseForm()
		gotChat = r.Form.Get("chat_id")
	})
	defer srv.Close()

	db := newTestDB(t)
	ctx := context.Background()
	seedBot(t, db, "bot-1", srv.URL, true)

	link, err := repo.GetOrCreateLink(ctx, db, "bot-1", "777", "private")
	if err != nil {
		t.Fatalf("seed link: %v", err)
	}
	if err := repo.SetChatwootConversation(ctx, db, link.ID, 91); err != nil {
		t.Fatalf("seed conversation id: %v", err)
	}

	f := NewForwarder(db, 5*time.Second, time.Minute)
	res, err := f.Forward(ctx, platform.ForwardRequest{
		InstanceID: "bot-1",
		Message: domain.CanonicalMessage{
			Platform:       domain.PlatformChatwoot,
			ConversationID: "91",
			Content:        "agent reply",
		},
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if gotChat != "777" || res.ConversationID != "777" {
		t.Fatalf("expected delivery to linked chat 777, got chat_id=%q result=%+v", gotChat, res)
	}
}

func TestForward_MissingLinkIsNotConfigured(t *testing.T) {
	db := newTestDB(t)
	seedBot(t, db, "bot-1", "http://unused.invalid", true)
	f := NewForwarder(db, time.Second, time.Minute)

	_, err := f.Forward(context.Background(), platform.ForwardRequest{
		InstanceID: "bot-1",
		Message: domain.CanonicalMessage{
			Platform:       domain.PlatformChatwoot,
			ConversationID: "404",
			Content:        "x",
		},
	})
	if !errors.Is(err, platform.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestForward_UnknownBotIsNotConfigured(t *testing.T) {
	db := newTestDB(t)
	f := NewForwarder(db, time.Second, time.Minute)

	_, err := f.Forward(context.Background(), platform.ForwardRequest{
		InstanceID: "nope",
		Message: domain.CanonicalMessage{
			Platform:       domain.PlatformDify,
			ConversationID: "555",
			Content:        "x",
		},
	})
	if !errors.Is(err, platform.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestForward_InactiveBotIsNotConfigured(t *testing.T) {
	db := newTestDB(t)
	seedBot(t, db, "bot-1", "http://unused.invalid", false)
	f := NewForwarder(db, time.Second, time.Minute)

	_, err := f.Forward(context.Background(), platform.ForwardRequest{
		InstanceID: "bot-1",
		Message: domain.CanonicalMessage{
			Platform:       domain.PlatformDify,
			ConversationID: "555",
			Content:        "x",
		},
	})
	if !errors.Is(err, platform.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestForward_InvalidChatID(t *testing.T) {
	db := newTestDB(t)
	seedBot(t, db, "bot-1", "http://unused.invalid", true)
	f := NewForwarder(db, time.Second, time.Minute)

	_, err := f.Forward(context.Background(), platform.ForwardRequest{
		InstanceID: "bot-1",
		Message: domain.CanonicalMessage{
			Platform:       domain.PlatformDify,
			ConversationID: "not-a-number",
			Content:        "x",
		},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid telegram chat id") {
		t.Fatalf("expected invalid chat id error, got %v", err)
	}
}

func TestRegisterWebhook_SendsStoredSecret(t *testing.T) {
	var gotURL, gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasSuffix(r.URL.Path, "/setWebhook") {
			t.Errorf("unexpected call: %s", r.URL.Path)
		}
		_ = r.ParseForm()
		gotURL = r.Form.Get("url")
		gotSecret = r.Form.Get("secret_token")
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}))
	defer srv.Close()

	db := newTestDB(t)
	seedBot(t, db, "bot-1", srv.URL, true)
	f := NewForwarder(db, 5*time.Second, time.Minute)

	if err := f.RegisterWebhook(context.Background(), "bot-1", "https://bridge.example/webhooks/telegram/bot-1"); err != nil {
		t.Fatalf("RegisterWebhook: %v", err)
	}
	if gotURL != "https://bridge.example/webhooks/telegram/bot-1" {
		t.Fatalf("registered url = %q", gotURL)
	}
	if gotSecret != "hook-secret" {
		t.Fatalf("secret_token = %q; want the stored webhook secret", gotSecret)
	}

	if err := f.RegisterWebhook(context.Background(), "missing", "https://x.example"); !errors.Is(err, platform.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestWebhookInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true,"result":{"url":"https://bridge.example/webhooks/telegram/bot-1","pending_update_count":3,"last_error_date":1700000000,"last_error_message":"connection refused"}}`)
	}))
	defer srv.Close()

	db := newTestDB(t)
	seedBot(t, db, "bot-1", srv.URL, true)
	f := NewForwarder(db, 5*time.Second, time.Minute)

	status, err := f.WebhookInfo(context.Background(), "bot-1")
	if err != nil {
		t.Fatalf("WebhookInfo: %v", err)
	}
	if status.URL != "https://bridge.example/webhooks/telegram/bot-1" ||
		status.PendingUpdates != 3 ||
		status.LastError != "connection refused" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestTestConnection(t *testing.T) {
	srv := newBotAPIServer(t, nil)
	defer srv.Close()

	db := newTestDB(t)
	seedBot(t, db, "bot-1", srv.URL, true)
	f := NewForwarder(db, 5*time.Second, time.Minute)

	if err := f.TestConnection(context.Background(), "bot-1"); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if err := f.TestConnection(context.Background(), "missing"); !errors.Is(err, platform.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTestConnection_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	}))
	defer srv.Close()

	db := newTestDB(t)
	seedBot(t, db, "bot-1", srv.URL, true)
	f := NewForwarder(db, 5*time.Second, time.Minute)

	err := f.TestConnection(context.Background(), "bot-1")
	var ue *platform.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Op != "getMe" {
		t.Fatalf("unexpected op: %s", ue.Op)
	}
}
