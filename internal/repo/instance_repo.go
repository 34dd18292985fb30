// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the three
// platform-instance models (Telegram bots, Chatwoot accounts, Dify apps).
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an instance is not found (or is inactive, for the GetActive*
//     variants), functions return gorm.ErrRecordNotFound (exported here as
//     ErrNotFound for convenience).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service layer
// and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateTelegramBot inserts a new Telegram bot instance.
func CreateTelegramBot(ctx context.Context, db *gorm.DB, bot *domain.TelegramBot) error {
	if bot.ID == "" {
		bot.ID = uuid.NewString()
	}
	bot.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(bot).Error
}

// GetTelegramBot fetches a Telegram bot by ID regardless of active state.
func GetTelegramBot(ctx context.Context, db *gorm.DB, id string) (*domain.TelegramBot, error) {
	var bot domain.TelegramBot
	if err := db.WithContext(ctx).Where("id = ?", id).First(&bot).Error; err != nil {
		return nil, err
	}
	return &bot, nil
}

// GetActiveTelegramBot fetches a Telegram bot by ID, requiring it to be
// active. Inactive instances surface as ErrNotFound so callers treat them
// uniformly with missing ones.
func GetActiveTelegramBot(ctx context.Context, db *gorm.DB, id string) (*domain.TelegramBot, error) {
	var bot domain.TelegramBot
	err := db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&bot).Error
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// CreateChatwootAccount inserts a new Chatwoot account instance.
func CreateChatwootAccount(ctx context.Context, db *gorm.DB, acc *domain.ChatwootAccount) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	acc.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(acc).Error
}

// GetActiveChatwootAccount fetches a Chatwoot account by ID, requiring it to
// be active.
func GetActiveChatwootAccount(ctx context.Context, db *gorm.DB, id string) (*domain.ChatwootAccount, error) {
	var acc domain.ChatwootAccount
	err := db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&acc).Error
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// UpdateChatwootInbox records the inbox id resolved (or created) on first use
// so later forwards skip the inbox lookup.
func UpdateChatwootInbox(ctx context.Context, db *gorm.DB, id string, inboxID int) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatwootAccount{}).
		Where("id = ?", id).
		Update("inbox_id", inboxID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateDifyApp inserts a new Dify app instance.
func CreateDifyApp(ctx context.Context, db *gorm.DB, app *domain.DifyApp) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(app).Error
}

// GetActiveDifyApp fetches a Dify app by ID, requiring it to be active.
func GetActiveDifyApp(ctx context.Context, db *gorm.DB, id string) (*domain.DifyApp, error) {
	var app domain.DifyApp
	err := db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}
