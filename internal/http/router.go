// Package httpapi wires the HTTP transport (Gin) to the bridge services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// The surface splits in two:
//   - /webhooks/* receives platform deliveries, authenticated per instance
//     by shared secret; no rate limiting, since bursts of legitimate events
//     are normal and the senders cannot handle 429s.
//   - the versioned admin API (mappings, routing queries, connection tests)
//     with idempotency and token-bucket rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/broker"
	"github.com/chatbridge/go-bridge-backend/internal/config"
	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/http/handlers"
	"github.com/chatbridge/go-bridge-backend/internal/http/middleware"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
	"github.com/chatbridge/go-bridge-backend/internal/platform/chatwoot"
	"github.com/chatbridge/go-bridge-backend/internal/platform/dify"
	"github.com/chatbridge/go-bridge-backend/internal/platform/telegram"
	"github.com/chatbridge/go-bridge-backend/internal/repo"
	"github.com/chatbridge/go-bridge-backend/internal/routing"
	"github.com/chatbridge/go-bridge-backend/internal/services"
)

// mappingRepoShim adapts the repository free functions to the
// services.MappingRepo interface expected by the MappingService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type mappingRepoShim struct{}

// CreateMapping proxies repo.CreateMapping.
func (mappingRepoShim) CreateMapping(ctx context.Context, db *gorm.DB, m *domain.PlatformMapping) error {
	return repo.CreateMapping(ctx, db, m)
}

// GetMapping proxies repo.GetMapping.
func (mappingRepoShim) GetMapping(ctx context.Context, db *gorm.DB, id string) (*domain.PlatformMapping, error) {
	return repo.GetMapping(ctx, db, id)
}

// FindActiveMapping proxies repo.FindActiveMapping.
func (mappingRepoShim) FindActiveMapping(ctx context.Context, db *gorm.DB, sourceID string, chatwootAccountID, difyAppID *string) (*domain.PlatformMapping, error) {
	return repo.FindActiveMapping(ctx, db, sourceID, chatwootAccountID, difyAppID)
}

// ListActiveMappingsForInstance proxies repo.ListActiveMappingsForInstance.
func (mappingRepoShim) ListActiveMappingsForInstance(ctx context.Context, db *gorm.DB, p domain.Platform, instanceID string) ([]domain.PlatformMapping, error) {
	return repo.ListActiveMappingsForInstance(ctx, db, p, instanceID)
}

// ListMappingsPage proxies repo.ListMappingsPage (pagination support).
func (mappingRepoShim) ListMappingsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PlatformMapping, error) {
	return repo.ListMappingsPage(ctx, db, offset, limit)
}

// CountMappings proxies repo.CountMappings (pagination support).
func (mappingRepoShim) CountMappings(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountMappings(ctx, db)
}

// UpdateMappingFlags proxies repo.UpdateMappingFlags.
func (mappingRepoShim) UpdateMappingFlags(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	return repo.UpdateMappingFlags(ctx, db, id, fields)
}

// DeactivateMapping proxies repo.DeactivateMapping.
func (mappingRepoShim) DeactivateMapping(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeactivateMapping(ctx, db, id)
}

// instanceRepoShim adapts the platform-instance reads to the
// services.InstanceRepo interface.
type instanceRepoShim struct{}

// GetActiveTelegramBot proxies repo.GetActiveTelegramBot.
func (instanceRepoShim) GetActiveTelegramBot(ctx context.Context, db *gorm.DB, id string) (*domain.TelegramBot, error) {
	return repo.GetActiveTelegramBot(ctx, db, id)
}

// GetActiveChatwootAccount proxies repo.GetActiveChatwootAccount.
func (instanceRepoShim) GetActiveChatwootAccount(ctx context.Context, db *gorm.DB, id string) (*domain.ChatwootAccount, error) {
	return repo.GetActiveChatwootAccount(ctx, db, id)
}

// GetActiveDifyApp proxies repo.GetActiveDifyApp.
func (instanceRepoShim) GetActiveDifyApp(ctx context.Context, db *gorm.DB, id string) (*domain.DifyApp, error) {
	return repo.GetActiveDifyApp(ctx, db, id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), the webhook intake
// with per-instance secret authentication, and the admin API with
// idempotency and rate limiting.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. ActorID: capture the admin identity for logs and rate keys
//  4. RedactingLogger: structured logs with secret/PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. CORS and Security headers
//
// Idempotency validation and the rate limiter are scoped to the admin API
// group, not the webhook routes.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Admin identity
	r.Use(middleware.ActorID())

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-User-ID",
		},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB); Telegram and Chatwoot payloads are
	// far smaller in practice.
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: forwarders ← db/config, engine ← registry,
	// broker ← engine, services ← repo shims.
	tgFwd := telegram.NewForwarder(db, cfg.Bridge.ClientTimeout, cfg.Bridge.InstanceCacheTTL)
	registry := platform.NewRegistry(
		tgFwd,
		chatwoot.NewForwarder(db, cfg.Bridge.ClientTimeout, cfg.Bridge.InstanceCacheTTL),
		dify.NewForwarder(db, cfg.Bridge.ClientTimeout, cfg.Bridge.InstanceCacheTTL, cfg.Bridge.EnableConversationHistory),
	)
	engine := routing.NewEngine(db, registry, routing.Shaper{
		MaxResponseLength:       cfg.Bridge.MaxResponseLength,
		SimpleGreetingMaxLength: cfg.Bridge.SimpleGreetingMaxLength,
	}, cfg.Bridge.ClientTimeout)
	hooks := broker.New(engine)
	mapSvc := services.NewMappingService(db, mappingRepoShim{}, instanceRepoShim{}, registry)
	h := handlers.New(mapSvc, hooks, tgFwd, db, cfg.IdempotencyTTL)

	// Webhook intake, authenticated per platform instance.
	wh := r.Group("/webhooks")
	wh.POST("/telegram/:id",
		middleware.WebhookAuth(middleware.HeaderTelegramSecret, telegramSecret(db)),
		h.TelegramWebhook)
	wh.POST("/chatwoot/:id",
		middleware.WebhookAuth(middleware.HeaderWebhookToken, chatwootSecret(db)),
		h.ChatwootWebhook)
	wh.POST("/ai/:id", h.AIWebhook)

	// Admin API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gzip.Gzip(gzip.DefaultCompression))

	// Idempotency validation (before rate limiting, to allow bypass on replay)
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  "mappings",
		},
		func(ctx context.Context, actorID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, actorID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// Token-bucket rate limiter per actor/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByActorOrIP())
	api.Use(rl.Handler())

	{
		// Mappings
		api.POST("/mappings", h.CreateMapping)
		api.GET("/mappings", h.ListMappings)
		api.GET("/mappings/:id", h.GetMapping)
		api.PATCH("/mappings/:id", h.UpdateMapping)
		api.DELETE("/mappings/:id", h.DeleteMapping)
		api.POST("/mappings/:id/test", h.TestMapping)

		// Routing queries
		api.GET("/bots/:id/routing", h.GetRouting)

		// Telegram-side webhook registration
		api.PUT("/bots/:id/webhook", h.SetBotWebhook)
		api.GET("/bots/:id/webhook", h.GetBotWebhook)
	}
}

// telegramSecret resolves the webhook secret for an active Telegram bot.
func telegramSecret(db *gorm.DB) middleware.SecretLookup {
	return func(ctx context.Context, instanceID string) (string, error) {
		bot, err := repo.GetActiveTelegramBot(ctx, db, instanceID)
		if err != nil {
			return "", err
		}
		return bot.WebhookSecret, nil
	}
}

// chatwootSecret resolves the webhook secret for an active Chatwoot account.
func chatwootSecret(db *gorm.DB) middleware.SecretLookup {
	return func(ctx context.Context, instanceID string) (string, error) {
		acc, err := repo.GetActiveChatwootAccount(ctx, db, instanceID)
		if err != nil {
			return "", err
		}
		return acc.WebhookSecret, nil
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
