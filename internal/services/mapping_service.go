// Package services – MappingService
//
// This file implements the MappingService, which manages the lifecycle of
// routing rules. It validates that every referenced platform instance exists
// and is active, prevents duplicate rules for the same instance combination,
// and exposes the routing-configuration and connection-test queries used by
// the admin API.
//
// Service-level errors (e.g., ErrMappingNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
)

// MappingRepo defines the repository contract required by MappingService.
type MappingRepo interface {
	// CreateMapping inserts a new routing rule.
	CreateMapping(ctx context.Context, db *gorm.DB, m *domain.PlatformMapping) error

	// GetMapping fetches a mapping by ID regardless of active state.
	GetMapping(ctx context.Context, db *gorm.DB, id string) (*domain.PlatformMapping, error)

	// FindActiveMapping performs the exact-match triple lookup; (nil, nil) on miss.
	FindActiveMapping(ctx context.Context, db *gorm.DB, sourceID string, chatwootAccountID, difyAppID *string) (*domain.PlatformMapping, error)

	// ListActiveMappingsForInstance returns active mappings referencing the instance.
	ListActiveMappingsForInstance(ctx context.Context, db *gorm.DB, p domain.Platform, instanceID string) ([]domain.PlatformMapping, error)

	// ListMappingsPage returns a page of mappings for the admin listing.
	ListMappingsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PlatformMapping, error)

	// CountMappings returns the total number of mappings for pagination.
	CountMappings(ctx context.Context, db *gorm.DB) (int64, error)

	// UpdateMappingFlags applies a partial flag update.
	UpdateMappingFlags(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error

	// DeactivateMapping soft-disables a mapping.
	DeactivateMapping(ctx context.Context, db *gorm.DB, id string) error
}

// InstanceRepo defines the platform-instance reads required by
// MappingService for reference validation and display-name resolution.
type InstanceRepo interface {
	GetActiveTelegramBot(ctx context.Context, db *gorm.DB, id string) (*domain.TelegramBot, error)
	GetActiveChatwootAccount(ctx context.Context, db *gorm.DB, id string) (*domain.ChatwootAccount, error)
	GetActiveDifyApp(ctx context.Context, db *gorm.DB, id string) (*domain.DifyApp, error)
}

// CreateMappingInput carries the administrator-supplied fields for a new
// routing rule.
type CreateMappingInput struct {
	SourcePlatformID  string
	ChatwootAccountID *string
	DifyAppID         *string

	EnableTelegramToChatwoot bool
	EnableTelegramToDify     bool
	EnableChatwootToTelegram bool
	EnableChatwootToDify     bool
	EnableDifyToTelegram     bool
	EnableDifyToChatwoot     bool

	AutoConnectChatwoot bool
	AutoConnectDify     bool
}

// UpdateMappingInput is a partial update of the direction matrix and flags.
// Nil fields are left untouched.
type UpdateMappingInput struct {
	EnableTelegramToChatwoot *bool
	EnableTelegramToDify     *bool
	EnableChatwootToTelegram *bool
	EnableChatwootToDify     *bool
	EnableDifyToTelegram     *bool
	EnableDifyToChatwoot     *bool

	AutoConnectChatwoot *bool
	AutoConnectDify     *bool
	IsActive            *bool
}

// RoutingEntry is one resolved mapping in a routing configuration, with
// target display names joined in for UI consumption.
type RoutingEntry struct {
	ID                 string  `json:"id"`
	SourcePlatformID   string  `json:"source_platform_id"`
	BotName            string  `json:"bot_name"`
	ChatwootAccountID  *string `json:"chatwoot_account_id,omitempty"`
	ChatwootName       string  `json:"chatwoot_name,omitempty"`
	DifyAppID          *string `json:"dify_app_id,omitempty"`
	DifyName           string  `json:"dify_name,omitempty"`

	EnableTelegramToChatwoot bool `json:"enable_telegram_to_chatwoot"`
	EnableTelegramToDify     bool `json:"enable_telegram_to_dify"`
	EnableChatwootToTelegram bool `json:"enable_chatwoot_to_telegram"`
	EnableChatwootToDify     bool `json:"enable_chatwoot_to_dify"`
	EnableDifyToTelegram     bool `json:"enable_dify_to_telegram"`
	EnableDifyToChatwoot     bool `json:"enable_dify_to_chatwoot"`

	AutoConnectChatwoot bool `json:"auto_connect_chatwoot"`
	AutoConnectDify     bool `json:"auto_connect_dify"`
}

// RoutingConfiguration answers "how is this bot routed". HasMapping false is
// an expected state, not an error.
type RoutingConfiguration struct {
	HasMapping bool           `json:"has_mapping"`
	Mappings   []RoutingEntry `json:"mappings"`
}

// TargetTestResult reports one leg of a connection test.
type TargetTestResult struct {
	Target  domain.Platform `json:"target"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
}

// ConnectionTestReport aggregates a mapping's connection test. A target that
// is simply not configured for the mapping is reported as a failed leg, not
// skipped, so administrators can see incomplete setups.
type ConnectionTestReport struct {
	MappingID      string             `json:"mapping_id"`
	OverallSuccess bool               `json:"overall_success"`
	Targets        []TargetTestResult `json:"targets"`
}

// MappingService provides routing-rule operations: create with reference
// validation, routing-configuration queries, partial updates, soft
// deactivation, and per-target connection tests.
type MappingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the mapping repository used by this service.
	Repo MappingRepo
	// Instances resolves referenced platform instances.
	Instances InstanceRepo
	// Registry supplies the per-platform forwarders used by TestConnection.
	Registry *platform.Registry
}

// NewMappingService constructs a MappingService.
func NewMappingService(db *gorm.DB, r MappingRepo, inst InstanceRepo, reg *platform.Registry) *MappingService {
	return &MappingService{DB: db, Repo: r, Instances: inst, Registry: reg}
}

// Create validates and persists a new routing rule on behalf of actor.
// Referenced instances must exist and be active; an identical active
// combination is a conflict.
func (s *MappingService) Create(ctx context.Context, in CreateMappingInput, actor string) (*domain.PlatformMapping, error) {
	if strings.TrimSpace(in.SourcePlatformID) == "" {
		return nil, fmt.Errorf("%w: source platform id is required", ErrValidation)
	}
	if in.ChatwootAccountID == nil && in.DifyAppID == nil {
		return nil, fmt.Errorf("%w: at least one of chatwoot account or dify app is required", ErrValidation)
	}

	if _, err := s.Instances.GetActiveTelegramBot(ctx, s.DB, in.SourcePlatformID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: telegram bot %s not found or inactive", ErrValidation, in.SourcePlatformID)
		}
		return nil, err
	}
	if in.ChatwootAccountID != nil {
		if _, err := s.Instances.GetActiveChatwootAccount(ctx, s.DB, *in.ChatwootAccountID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: chatwoot account %s not found or inactive", ErrValidation, *in.ChatwootAccountID)
			}
			return nil, err
		}
	}
	if in.DifyAppID != nil {
		if _, err := s.Instances.GetActiveDifyApp(ctx, s.DB, *in.DifyAppID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: dify app %s not found or inactive", ErrValidation, *in.DifyAppID)
			}
			return nil, err
		}
	}

	existing, err := s.Repo.FindActiveMapping(ctx, s.DB, in.SourcePlatformID, in.ChatwootAccountID, in.DifyAppID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateMapping
	}

	m := &domain.PlatformMapping{
		SourcePlatform:    string(domain.PlatformTelegram),
		SourcePlatformID:  in.SourcePlatformID,
		ChatwootAccountID: in.ChatwootAccountID,
		DifyAppID:         in.DifyAppID,

		EnableTelegramToChatwoot: in.EnableTelegramToChatwoot,
		EnableTelegramToDify:     in.EnableTelegramToDify,
		EnableChatwootToTelegram: in.EnableChatwootToTelegram,
		EnableChatwootToDify:     in.EnableChatwootToDify,
		EnableDifyToTelegram:     in.EnableDifyToTelegram,
		EnableDifyToChatwoot:     in.EnableDifyToChatwoot,

		AutoConnectChatwoot: in.AutoConnectChatwoot,
		AutoConnectDify:     in.AutoConnectDify,

		IsActive:  true,
		CreatedBy: actor,
	}
	if err := s.Repo.CreateMapping(ctx, s.DB, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get fetches a mapping by id.
func (s *MappingService) Get(ctx context.Context, id string) (*domain.PlatformMapping, error) {
	m, err := s.Repo.GetMapping(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListPage returns a page of mappings for the admin listing.
// It applies defaults for invalid page/pageSize and returns total count.
func (s *MappingService) ListPage(ctx context.Context, page, pageSize int) ([]domain.PlatformMapping, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountMappings(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PlatformMapping{}, 0, nil
	}

	items, err := s.Repo.ListMappingsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Update applies a partial flag update to a mapping.
func (s *MappingService) Update(ctx context.Context, id string, in UpdateMappingInput) (*domain.PlatformMapping, error) {
	fields := map[string]any{}
	setBool := func(col string, v *bool) {
		if v != nil {
			fields[col] = *v
		}
	}
	setBool("enable_telegram_to_chatwoot", in.EnableTelegramToChatwoot)
	setBool("enable_telegram_to_dify", in.EnableTelegramToDify)
	setBool("enable_chatwoot_to_telegram", in.EnableChatwootToTelegram)
	setBool("enable_chatwoot_to_dify", in.EnableChatwootToDify)
	setBool("enable_dify_to_telegram", in.EnableDifyToTelegram)
	setBool("enable_dify_to_chatwoot", in.EnableDifyToChatwoot)
	setBool("auto_connect_chatwoot", in.AutoConnectChatwoot)
	setBool("auto_connect_dify", in.AutoConnectDify)
	setBool("is_active", in.IsActive)

	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if err := s.Repo.UpdateMappingFlags(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Deactivate soft-disables a mapping, preserving the audit trail.
func (s *MappingService) Deactivate(ctx context.Context, id string) error {
	if err := s.Repo.DeactivateMapping(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMappingNotFound
		}
		return err
	}
	return nil
}

// GetRoutingConfiguration returns the resolved routing setup for a Telegram
// bot. "No mapping" is reported via HasMapping, never as an error.
func (s *MappingService) GetRoutingConfiguration(ctx context.Context, botID string) (*RoutingConfiguration, error) {
	mappings, err := s.Repo.ListActiveMappingsForInstance(ctx, s.DB, domain.PlatformTelegram, botID)
	if err != nil {
		return nil, err
	}
	cfg := &RoutingConfiguration{HasMapping: len(mappings) > 0, Mappings: []RoutingEntry{}}
	for _, m := range mappings {
		entry := RoutingEntry{
			ID:                m.ID,
			SourcePlatformID:  m.SourcePlatformID,
			ChatwootAccountID: m.ChatwootAccountID,
			DifyAppID:         m.DifyAppID,

			EnableTelegramToChatwoot: m.EnableTelegramToChatwoot,
			EnableTelegramToDify:     m.EnableTelegramToDify,
			EnableChatwootToTelegram: m.EnableChatwootToTelegram,
			EnableChatwootToDify:     m.EnableChatwootToDify,
			EnableDifyToTelegram:     m.EnableDifyToTelegram,
			EnableDifyToChatwoot:     m.EnableDifyToChatwoot,

			AutoConnectChatwoot: m.AutoConnectChatwoot,
			AutoConnectDify:     m.AutoConnectDify,
		}
		// Display names are best-effort; a concurrently deactivated target
		// simply shows up without one.
		if bot, err := s.Instances.GetActiveTelegramBot(ctx, s.DB, m.SourcePlatformID); err == nil {
			entry.BotName = bot.Name
		}
		if m.ChatwootAccountID != nil {
			if acc, err := s.Instances.GetActiveChatwootAccount(ctx, s.DB, *m.ChatwootAccountID); err == nil {
				entry.ChatwootName = acc.Name
			}
		}
		if m.DifyAppID != nil {
			if app, err := s.Instances.GetActiveDifyApp(ctx, s.DB, *m.DifyAppID); err == nil {
				entry.DifyName = app.Name
			}
		}
		cfg.Mappings = append(cfg.Mappings, entry)
	}
	return cfg, nil
}

// GetActiveMapping is the exact-match triple lookup used before forwarding.
// Returns (nil, nil) on miss.
func (s *MappingService) GetActiveMapping(ctx context.Context, botID string, chatwootAccountID, difyAppID *string) (*domain.PlatformMapping, error) {
	return s.Repo.FindActiveMapping(ctx, s.DB, botID, chatwootAccountID, difyAppID)
}

// TestConnection probes each of the mapping's platforms independently and
// reports per-target outcomes. OverallSuccess is the AND of every leg.
func (s *MappingService) TestConnection(ctx context.Context, mappingID string) (*ConnectionTestReport, error) {
	m, err := s.Get(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	report := &ConnectionTestReport{MappingID: m.ID, OverallSuccess: true}
	probe := func(p domain.Platform, instanceID *string) {
		res := TargetTestResult{Target: p}
		switch {
		case instanceID == nil || *instanceID == "":
			res.Error = "not configured for this mapping"
		default:
			fw, err := s.Registry.Lookup(p)
			if err != nil {
				res.Error = err.Error()
			} else if err := fw.TestConnection(ctx, *instanceID); err != nil {
				res.Error = err.Error()
			} else {
				res.Success = true
			}
		}
		report.OverallSuccess = report.OverallSuccess && res.Success
		report.Targets = append(report.Targets, res)
	}

	probe(domain.PlatformTelegram, &m.SourcePlatformID)
	probe(domain.PlatformChatwoot, m.ChatwootAccountID)
	probe(domain.PlatformDify, m.DifyAppID)
	return report, nil
}
