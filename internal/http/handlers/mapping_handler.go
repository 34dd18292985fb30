// Mapping HTTP handlers.
//
// This file exposes the admin REST endpoints for routing rules:
//   - POST   /mappings              (create, idempotency support)
//   - GET    /mappings              (list, paginated, ETag support)
//   - GET    /mappings/{id}         (fetch)
//   - PATCH  /mappings/{id}         (partial flag update)
//   - DELETE /mappings/{id}         (soft deactivate)
//   - GET    /bots/{id}/routing     (resolved routing configuration)
//   - POST   /mappings/{id}/test    (per-target connection test)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// creation with the same (actor, key) is still valid, the handler returns the
// originally created mapping and sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/http/middleware"
	"github.com/chatbridge/go-bridge-backend/internal/repo"
	"github.com/chatbridge/go-bridge-backend/internal/services"
	"github.com/chatbridge/go-bridge-backend/internal/utils"
)

// idempotencyScopeMappings names the operation family recorded with
// idempotency keys for mapping creation.
const idempotencyScopeMappings = "mappings"

//
// Service contracts (context-aware)
//

// MappingService defines the routing-rule operations consumed by HTTP
// handlers. Implementations must honor the provided context.
type MappingService interface {
	// Create validates and persists a new routing rule on behalf of actor.
	Create(ctx context.Context, in services.CreateMappingInput, actor string) (*domain.PlatformMapping, error)
	// Get fetches a mapping by id.
	Get(ctx context.Context, id string) (*domain.PlatformMapping, error)
	// ListPage returns a page of mappings and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.PlatformMapping, int64, error)
	// Update applies a partial flag update.
	Update(ctx context.Context, id string, in services.UpdateMappingInput) (*domain.PlatformMapping, error)
	// Deactivate soft-disables a mapping.
	Deactivate(ctx context.Context, id string) error
	// GetRoutingConfiguration resolves the routing setup for a Telegram bot.
	GetRoutingConfiguration(ctx context.Context, botID string) (*services.RoutingConfiguration, error)
	// TestConnection probes each platform referenced by a mapping.
	TestConnection(ctx context.Context, mappingID string) (*services.ConnectionTestReport, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for mappings and inbound webhooks. It
// depends on abstract service interfaces to keep transport concerns separate
// from routing logic. The raw DB handle is used only for conditional
// responses (ETag) and idempotency records.
type Handlers struct {
	mappings MappingService
	hooks    WebhookService
	bots     BotWebhookService
	db       *gorm.DB
	idemTTL  time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(mappings MappingService, hooks WebhookService, bots BotWebhookService, db *gorm.DB, idemTTL time.Duration) *Handlers {
	return &Handlers{mappings: mappings, hooks: hooks, bots: bots, db: db, idemTTL: idemTTL}
}

//
// DTOs
//

// CreateMappingRequest is the JSON payload for creating a routing rule.
// Direction flags left null take the documented defaults: message intake
// (telegram→chatwoot, telegram→dify), agent replies (chatwoot→telegram) and
// AI replies (dify→telegram) enabled; the cross-target directions disabled.
type CreateMappingRequest struct {
	SourcePlatformID  string  `json:"source_platform_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	ChatwootAccountID *string `json:"chatwoot_account_id"`
	DifyAppID         *string `json:"dify_app_id"`

	EnableTelegramToChatwoot *bool `json:"enable_telegram_to_chatwoot"`
	EnableTelegramToDify     *bool `json:"enable_telegram_to_dify"`
	EnableChatwootToTelegram *bool `json:"enable_chatwoot_to_telegram"`
	EnableChatwootToDify     *bool `json:"enable_chatwoot_to_dify"`
	EnableDifyToTelegram     *bool `json:"enable_dify_to_telegram"`
	EnableDifyToChatwoot     *bool `json:"enable_dify_to_chatwoot"`

	AutoConnectChatwoot *bool `json:"auto_connect_chatwoot"`
	AutoConnectDify     *bool `json:"auto_connect_dify"`
}

// UpdateMappingRequest is the JSON payload for a partial flag update. Null
// fields are left untouched.
type UpdateMappingRequest struct {
	EnableTelegramToChatwoot *bool `json:"enable_telegram_to_chatwoot"`
	EnableTelegramToDify     *bool `json:"enable_telegram_to_dify"`
	EnableChatwootToTelegram *bool `json:"enable_chatwoot_to_telegram"`
	EnableChatwootToDify     *bool `json:"enable_chatwoot_to_dify"`
	EnableDifyToTelegram     *bool `json:"enable_dify_to_telegram"`
	EnableDifyToChatwoot     *bool `json:"enable_dify_to_chatwoot"`

	AutoConnectChatwoot *bool `json:"auto_connect_chatwoot"`
	AutoConnectDify     *bool `json:"auto_connect_dify"`
	IsActive            *bool `json:"is_active"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListMappingsResponse wraps a page of mappings and pagination information.
type ListMappingsResponse struct {
	Mappings   []domain.PlatformMapping `json:"mappings"`
	Pagination Pagination               `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// boolOr dereferences p, or returns def when nil.
func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}

// failService translates service-level errors into HTTP responses.
// fallbackCode is used for unexpected (5xx) failures.
func failService(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrDuplicateMapping):
		fail(c, http.StatusConflict, ErrCodeConflict, "an active mapping for this combination already exists")
	case errors.Is(err, services.ErrMappingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "mapping not found")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

//
// Handlers
//

// CreateMapping godoc
// @ID          createMapping
// @Summary     Create a routing rule
// @Description Creates a mapping between a Telegram bot and a Chatwoot account and/or Dify app.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Mappings
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Admin actor (demo header)"  example(ops-1)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateMappingRequest  true  "Create mapping payload"
//
// @Success     201  {object}  domain.PlatformMapping
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate combination"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /mappings [post]
func (h *Handlers) CreateMapping(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.ActorFrom(c)

	// Idempotency (replay path): serve the originally created mapping.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.db != nil {
		if rec, err := repo.GetIdempotency(ctx, h.db, actor, idempotencyScopeMappings, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if m, err := h.mappings.Get(ctx, rec.ResourceID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, m)
				return
			}
		}
	}

	var req CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in := services.CreateMappingInput{
		SourcePlatformID:  strings.TrimSpace(req.SourcePlatformID),
		ChatwootAccountID: req.ChatwootAccountID,
		DifyAppID:         req.DifyAppID,

		EnableTelegramToChatwoot: boolOr(req.EnableTelegramToChatwoot, true),
		EnableTelegramToDify:     boolOr(req.EnableTelegramToDify, true),
		EnableChatwootToTelegram: boolOr(req.EnableChatwootToTelegram, true),
		EnableChatwootToDify:     boolOr(req.EnableChatwootToDify, false),
		EnableDifyToTelegram:     boolOr(req.EnableDifyToTelegram, true),
		EnableDifyToChatwoot:     boolOr(req.EnableDifyToChatwoot, false),

		AutoConnectChatwoot: boolOr(req.AutoConnectChatwoot, false),
		AutoConnectDify:     boolOr(req.AutoConnectDify, false),
	}

	m, err := h.mappings.Create(ctx, in, actor)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}

	// Record the idempotency key (best effort; a concurrent duplicate is fine).
	if idemKey != "" && h.db != nil {
		if _, err := repo.CreateIdempotency(ctx, h.db, actor, idempotencyScopeMappings, idemKey, m.ID, http.StatusCreated, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, m)
}

// ListMappings godoc
// @ID          listMappings
// @Summary     List routing rules (paginated)
// @Description Returns a page of mappings. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Mappings
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMappingsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /mappings [get]
func (h *Handlers) ListMappings(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if h.db != nil {
		count, maxTS, err := repo.MappingsStats(ctx, h.db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"mappings:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.mappings.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMappingsResponse{
		Mappings: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetMapping godoc
// @ID          getMapping
// @Summary     Fetch a routing rule
// @Tags        Mappings
// @Produce     json
//
// @Param       id  path  string  true  "Mapping ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.PlatformMapping
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Mapping not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /mappings/{id} [get]
func (h *Handlers) GetMapping(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mapping id must be a UUID")
		return
	}

	m, err := h.mappings.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, m)
}

// UpdateMapping godoc
// @ID          updateMapping
// @Summary     Update routing rule flags
// @Description Applies a partial update of the direction matrix, auto-connect and active flags.
// @Tags        Mappings
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Mapping ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateMappingRequest  true  "Fields to change"
//
// @Success     200  {object} domain.PlatformMapping
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Mapping not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /mappings/{id} [patch]
func (h *Handlers) UpdateMapping(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mapping id must be a UUID")
		return
	}

	var req UpdateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	m, err := h.mappings.Update(c.Request.Context(), id, services.UpdateMappingInput{
		EnableTelegramToChatwoot: req.EnableTelegramToChatwoot,
		EnableTelegramToDify:     req.EnableTelegramToDify,
		EnableChatwootToTelegram: req.EnableChatwootToTelegram,
		EnableChatwootToDify:     req.EnableChatwootToDify,
		EnableDifyToTelegram:     req.EnableDifyToTelegram,
		EnableDifyToChatwoot:     req.EnableDifyToChatwoot,

		AutoConnectChatwoot: req.AutoConnectChatwoot,
		AutoConnectDify:     req.AutoConnectDify,
		IsActive:            req.IsActive,
	})
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMapping godoc
// @ID          deleteMapping
// @Summary     Deactivate a routing rule
// @Description Soft-disables the mapping; the row is kept for the audit trail.
// @Tags        Mappings
// @Produce     json
//
// @Param       id  path  string  true  "Mapping ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Mapping not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /mappings/{id} [delete]
func (h *Handlers) DeleteMapping(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mapping id must be a UUID")
		return
	}

	if err := h.mappings.Deactivate(c.Request.Context(), id); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// GetRouting godoc
// @ID          getRouting
// @Summary     Resolved routing configuration for a bot
// @Description Returns the active mappings referencing the bot, with target display names.
// @Description A bot without mappings yields has_mapping=false, not an error.
// @Tags        Mappings
// @Produce     json
//
// @Param       id  path  string  true  "Telegram bot ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.RoutingConfiguration
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /bots/{id}/routing [get]
func (h *Handlers) GetRouting(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "bot id must be a UUID")
		return
	}

	cfg, err := h.mappings.GetRoutingConfiguration(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeRoutingFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, cfg)
}

// TestMapping godoc
// @ID          testMapping
// @Summary     Test a mapping's platform connections
// @Description Probes every platform referenced by the mapping and reports per-target outcomes.
// @Description Unconfigured targets are reported as failed legs so incomplete setups are visible.
// @Tags        Mappings
// @Produce     json
//
// @Param       id  path  string  true  "Mapping ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.ConnectionTestReport
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Mapping not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /mappings/{id}/test [post]
func (h *Handlers) TestMapping(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mapping id must be a UUID")
		return
	}

	report, err := h.mappings.TestConnection(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeTestFailed)
		return
	}
	ok(c, http.StatusOK, report)
}
