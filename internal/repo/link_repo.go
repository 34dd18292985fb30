// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ConversationLink model (cross-platform conversation identity).
//
// Links are created lazily on first forward and only ever updated afterwards;
// the routing engine never deletes them. The unique index on
// (telegram_bot_id, external_chat_id) turns a lost creation race into a
// constraint error, which GetOrCreateLink converts back into a lookup.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

// GetLink fetches the link for (botID, externalChatID), or ErrNotFound.
func GetLink(ctx context.Context, db *gorm.DB, botID, externalChatID string) (*domain.ConversationLink, error) {
	var l domain.ConversationLink
	err := db.WithContext(ctx).
		Where("telegram_bot_id = ? AND external_chat_id = ?", botID, externalChatID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetOrCreateLink returns the existing link for (botID, externalChatID) or
// creates an empty one. When a concurrent request wins the creation race, the
// resulting unique-constraint error is resolved by re-reading.
func GetOrCreateLink(ctx context.Context, db *gorm.DB, botID, externalChatID, chatType string) (*domain.ConversationLink, error) {
	if l, err := GetLink(ctx, db, botID, externalChatID); err == nil {
		return l, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	l := &domain.ConversationLink{
		ID:             uuid.NewString(),
		TelegramBotID:  botID,
		ExternalChatID: externalChatID,
		ChatType:       chatType,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		// Lost the race: the other writer's row is the link.
		if existing, getErr := GetLink(ctx, db, botID, externalChatID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return l, nil
}

// SetChatwootConversation records the Chatwoot conversation id resolved for a
// link. Returns ErrNotFound when the link does not exist.
func SetChatwootConversation(ctx context.Context, db *gorm.DB, linkID string, conversationID int) error {
	res := db.WithContext(ctx).
		Model(&domain.ConversationLink{}).
		Where("id = ?", linkID).
		Update("chatwoot_conversation_id", conversationID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetDifyConversation records (or replaces) the Dify continuity token issued
// for a link. Returns ErrNotFound when the link does not exist.
func SetDifyConversation(ctx context.Context, db *gorm.DB, linkID, conversationID string) error {
	res := db.WithContext(ctx).
		Model(&domain.ConversationLink{}).
		Where("id = ?", linkID).
		Update("dify_conversation_id", conversationID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindLinkByChatwootConversation locates the link carrying a given Chatwoot
// conversation id, used to map Desk-origin events back to the Telegram chat.
// Returns ErrNotFound on miss.
func FindLinkByChatwootConversation(ctx context.Context, db *gorm.DB, conversationID int) (*domain.ConversationLink, error) {
	var l domain.ConversationLink
	err := db.WithContext(ctx).
		Where("chatwoot_conversation_id = ?", conversationID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}
