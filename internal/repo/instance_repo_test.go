package repo

import (
	"context"
	"testing"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

func TestTelegramBot_CreateAndGet(t *testing.T) {
	db := newTestDB(t, &domain.TelegramBot{})
	ctx := context.Background()

	bot := &domain.TelegramBot{Name: "support", BotToken: "123:abc", IsActive: true}
	if err := CreateTelegramBot(ctx, db, bot); err != nil {
		t.Fatalf("CreateTelegramBot: %v", err)
	}
	if bot.ID == "" {
		t.Fatalf("expected generated UUID")
	}

	got, err := GetTelegramBot(ctx, db, bot.ID)
	if err != nil {
		t.Fatalf("GetTelegramBot: %v", err)
	}
	if got.Name != "support" || got.BotToken != "123:abc" {
		t.Fatalf("unexpected bot: %+v", got)
	}

	if _, err := GetTelegramBot(ctx, db, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetActiveTelegramBot_HidesInactive(t *testing.T) {
	db := newTestDB(t, &domain.TelegramBot{})
	ctx := context.Background()

	bot := &domain.TelegramBot{Name: "retired", BotToken: "t", IsActive: false}
	if err := CreateTelegramBot(ctx, db, bot); err != nil {
		t.Fatalf("CreateTelegramBot: %v", err)
	}

	if _, err := GetActiveTelegramBot(ctx, db, bot.ID); err != ErrNotFound {
		t.Fatalf("inactive bot should surface as ErrNotFound, got %v", err)
	}
	// Plain Get still sees it.
	if _, err := GetTelegramBot(ctx, db, bot.ID); err != nil {
		t.Fatalf("GetTelegramBot: %v", err)
	}
}

func TestChatwootAccount_CreateAndInboxUpdate(t *testing.T) {
	db := newTestDB(t, &domain.ChatwootAccount{})
	ctx := context.Background()

	acc := &domain.ChatwootAccount{
		BaseURL:     "https://desk.example.com",
		AccessToken: "tok",
		AccountID:   "7",
		IsActive:    true,
	}
	if err := CreateChatwootAccount(ctx, db, acc); err != nil {
		t.Fatalf("CreateChatwootAccount: %v", err)
	}

	if err := UpdateChatwootInbox(ctx, db, acc.ID, 42); err != nil {
		t.Fatalf("UpdateChatwootInbox: %v", err)
	}
	got, err := GetActiveChatwootAccount(ctx, db, acc.ID)
	if err != nil {
		t.Fatalf("GetActiveChatwootAccount: %v", err)
	}
	if got.InboxID != 42 {
		t.Fatalf("InboxID = %d; want 42", got.InboxID)
	}

	if err := UpdateChatwootInbox(ctx, db, "missing", 1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDifyApp_CreateAndGetActive(t *testing.T) {
	db := newTestDB(t, &domain.DifyApp{})
	ctx := context.Background()

	app := &domain.DifyApp{BaseURL: "https://ai.example.com/v1", APIKey: "app-key", IsActive: true}
	if err := CreateDifyApp(ctx, db, app); err != nil {
		t.Fatalf("CreateDifyApp: %v", err)
	}

	got, err := GetActiveDifyApp(ctx, db, app.ID)
	if err != nil {
		t.Fatalf("GetActiveDifyApp: %v", err)
	}
	if got.APIKey != "app-key" {
		t.Fatalf("unexpected app: %+v", got)
	}

	if _, err := GetActiveDifyApp(ctx, db, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
