// Package domain defines the persistence models for platform instances,
// routing mappings, and cross-platform conversation links. These types are
// mapped with GORM and form the core data layer of the bridge.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Platform identifies one of the integrated platforms.
type Platform string

const (
	// PlatformTelegram is the bot-messaging platform (human entry point).
	PlatformTelegram Platform = "telegram"
	// PlatformChatwoot is the support-desk platform used by agents.
	PlatformChatwoot Platform = "chatwoot"
	// PlatformDify is the conversational-AI backend.
	PlatformDify Platform = "dify"
)

// TelegramBot is a configured Telegram bot instance. Credentials are loaded
// per record; the routing engine only ever reads active instances.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name shown in the admin surface.
//   - BotToken: Bot API token.
//   - APIEndpoint: optional Bot API base URL override (empty = official API).
//   - WebhookSecret: shared secret echoed by Telegram on webhook deliveries.
//   - IsActive: soft enable/disable switch.
type TelegramBot struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	Name          string         `json:"name"           gorm:"type:varchar(255);not null"`
	BotToken      string         `json:"-"              gorm:"type:varchar(255);not null"`
	APIEndpoint   string         `json:"api_endpoint"   gorm:"type:varchar(512)"`
	WebhookSecret string         `json:"-"              gorm:"type:varchar(255)"`
	IsActive      bool           `json:"is_active"      gorm:"not null"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for TelegramBot.
func (TelegramBot) TableName() string { return "telegram_bots" }

// ChatwootAccount is a configured Chatwoot account instance.
//
// AccountID is the numeric account identifier on the remote Chatwoot
// installation (kept as a string because it only ever appears in URLs).
// InboxID optionally pins the inbox used for bridged conversations; when
// zero, an inbox is created on first use.
type ChatwootAccount struct {
	ID            string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name          string         `json:"name"       gorm:"type:varchar(255);not null"`
	BaseURL       string         `json:"base_url"   gorm:"type:varchar(512);not null"`
	AccessToken   string         `json:"-"          gorm:"type:varchar(255);not null"`
	AccountID     string         `json:"account_id" gorm:"type:varchar(32);not null"`
	InboxID       int            `json:"inbox_id"`
	WebhookSecret string         `json:"-"          gorm:"type:varchar(255)"`
	IsActive      bool           `json:"is_active"  gorm:"not null"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for ChatwootAccount.
func (ChatwootAccount) TableName() string { return "chatwoot_accounts" }

// DifyApp is a configured Dify application instance.
type DifyApp struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"      gorm:"type:varchar(255);not null"`
	BaseURL   string         `json:"base_url"  gorm:"type:varchar(512);not null"`
	APIKey    string         `json:"-"         gorm:"type:varchar(255);not null"`
	IsActive  bool           `json:"is_active" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for DifyApp.
func (DifyApp) TableName() string { return "dify_apps" }

// PlatformMapping is an administrator-defined routing rule pairing one
// Telegram bot with a Chatwoot account and/or a Dify app, together with the
// per-direction enable flags and auto-connect behavior.
//
// Invariants:
//   - At least one of ChatwootAccountID / DifyAppID is set.
//   - A mapping is unique per (source instance, Chatwoot account, Dify app)
//     triple while active.
//   - Mappings are soft-deactivated, never hard-deleted, so the historical
//     routing audit trail survives.
//
// SourcePlatform is currently always "telegram"; it is persisted explicitly
// so additional source platforms can be introduced without a schema change.
type PlatformMapping struct {
	ID                string  `json:"id"                  gorm:"type:char(36);primaryKey"`
	SourcePlatform    string  `json:"source_platform"     gorm:"type:varchar(32);not null"`
	SourcePlatformID  string  `json:"source_platform_id"  gorm:"type:char(36);not null;index:idx_mapping_source"`
	ChatwootAccountID *string `json:"chatwoot_account_id" gorm:"type:char(36);index"`
	DifyAppID         *string `json:"dify_app_id"         gorm:"type:char(36);index"`

	// Direction matrix. No column defaults: a schema default combined with
	// GORM's zero-value omission on insert would silently flip an explicit
	// false to true. Defaults live in the HTTP request layer instead.
	EnableTelegramToChatwoot bool `json:"enable_telegram_to_chatwoot" gorm:"not null"`
	EnableTelegramToDify     bool `json:"enable_telegram_to_dify"     gorm:"not null"`
	EnableChatwootToTelegram bool `json:"enable_chatwoot_to_telegram" gorm:"not null"`
	EnableChatwootToDify     bool `json:"enable_chatwoot_to_dify"     gorm:"not null"`
	EnableDifyToTelegram     bool `json:"enable_dify_to_telegram"     gorm:"not null"`
	EnableDifyToChatwoot     bool `json:"enable_dify_to_chatwoot"     gorm:"not null"`

	// Auto-connect flags: establish the target conversation on the first
	// inbound message rather than on the first enabled forward.
	AutoConnectChatwoot bool `json:"auto_connect_chatwoot" gorm:"not null"`
	AutoConnectDify     bool `json:"auto_connect_dify"     gorm:"not null"`

	IsActive  bool           `json:"is_active"  gorm:"not null"`
	CreatedBy string         `json:"created_by" gorm:"type:varchar(64);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for PlatformMapping.
func (PlatformMapping) TableName() string { return "platform_mappings" }

// HasTarget reports whether the mapping references at least one target
// platform instance.
func (m PlatformMapping) HasTarget() bool {
	return m.ChatwootAccountID != nil || m.DifyAppID != nil
}

// ConversationLink correlates one logical conversation across platforms: a
// (bot, external chat) pair linked to a Chatwoot conversation and/or a Dify
// continuity token. Links are created lazily on first forward and updated
// whenever Dify issues a new token; the routing engine never deletes them.
//
// The unique index on (telegram_bot_id, external_chat_id) narrows the race
// window of two concurrent webhook deliveries both creating the link: the
// loser gets a constraint error and re-reads.
type ConversationLink struct {
	ID                     string    `json:"id"               gorm:"type:char(36);primaryKey"`
	TelegramBotID          string    `json:"telegram_bot_id"  gorm:"type:char(36);not null;uniqueIndex:ux_link_bot_chat,priority:1"`
	ExternalChatID         string    `json:"external_chat_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_link_bot_chat,priority:2"`
	ChatType               string    `json:"chat_type"        gorm:"type:varchar(16)"`
	ChatwootConversationID *int      `json:"chatwoot_conversation_id" gorm:"index"`
	DifyConversationID     *string   `json:"dify_conversation_id"     gorm:"type:varchar(128)"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName returns the database table name for ConversationLink.
func (ConversationLink) TableName() string { return "conversation_links" }
