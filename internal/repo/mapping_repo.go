// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PlatformMapping model (routing rules).
//
// Mappings are never hard-deleted: DeactivateMapping flips is_active so the
// historical routing audit trail survives. Queries used by the routing engine
// therefore always filter on is_active.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

// CreateMapping inserts a new routing rule. The mapping ID is a randomly
// generated UUID and CreatedAt is set to UTC.
func CreateMapping(ctx context.Context, db *gorm.DB, m *domain.PlatformMapping) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SourcePlatform == "" {
		m.SourcePlatform = string(domain.PlatformTelegram)
	}
	m.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(m).Error
}

// GetMapping fetches a mapping by ID (active or not).
func GetMapping(ctx context.Context, db *gorm.DB, id string) (*domain.PlatformMapping, error) {
	var m domain.PlatformMapping
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindActiveMapping performs the exact-match triple lookup used both for
// duplicate detection on create and by the routing engine before forwarding.
// A nil target id matches only mappings where that target is absent.
// Returns (nil, nil) on miss: "no route configured" is an expected state,
// not an error.
func FindActiveMapping(ctx context.Context, db *gorm.DB, sourceID string, chatwootAccountID, difyAppID *string) (*domain.PlatformMapping, error) {
	q := db.WithContext(ctx).
		Where("source_platform_id = ? AND is_active = ?", sourceID, true)
	if chatwootAccountID != nil {
		q = q.Where("chatwoot_account_id = ?", *chatwootAccountID)
	} else {
		q = q.Where("chatwoot_account_id IS NULL")
	}
	if difyAppID != nil {
		q = q.Where("dify_app_id = ?", *difyAppID)
	} else {
		q = q.Where("dify_app_id IS NULL")
	}

	var m domain.PlatformMapping
	err := q.First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListActiveMappingsForInstance returns all active mappings that reference
// the given platform instance, either as the configured source or as one of
// the targets. The routing engine calls this once per inbound message.
func ListActiveMappingsForInstance(ctx context.Context, db *gorm.DB, platform domain.Platform, instanceID string) ([]domain.PlatformMapping, error) {
	q := db.WithContext(ctx).Where("is_active = ?", true)
	switch platform {
	case domain.PlatformTelegram:
		q = q.Where("source_platform = ? AND source_platform_id = ?", string(domain.PlatformTelegram), instanceID)
	case domain.PlatformChatwoot:
		q = q.Where("chatwoot_account_id = ?", instanceID)
	case domain.PlatformDify:
		q = q.Where("dify_app_id = ?", instanceID)
	default:
		return nil, nil
	}

	var out []domain.PlatformMapping
	err := q.Order("created_at asc").Find(&out).Error
	return out, err
}

// ListMappingsPage returns a paginated slice of mappings (any state), most
// recent first, for the admin listing. Use CountMappings for the total.
func ListMappingsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PlatformMapping, error) {
	var out []domain.PlatformMapping
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountMappings returns the total number of mappings for pagination metadata.
func CountMappings(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PlatformMapping{}).
		Count(&total).Error
	return total, err
}

// UpdateMappingFlags applies a partial update of the direction matrix,
// auto-connect flags, or active state. Only keys present in fields are
// touched. Returns ErrNotFound when the mapping does not exist.
func UpdateMappingFlags(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.PlatformMapping{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeactivateMapping soft-disables a mapping (is_active = false). The row is
// retained for audit. Returns ErrNotFound when the mapping does not exist or
// is already inactive.
func DeactivateMapping(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.PlatformMapping{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
