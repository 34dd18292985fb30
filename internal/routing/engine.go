// Package routing – Engine
//
// The Engine receives one canonical message per inbound webhook, finds the
// active mappings for the originating platform instance, applies the
// direction matrix to compute the target set, and forwards to each target in
// isolation: one slow or broken integration never blocks the others, and a
// per-target failure becomes a result entry rather than an error. AI answers
// produced synchronously by a forward are shaped and chained onward according
// to the mapping's AI-origin flags.
package routing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/platform"
	"github.com/chatbridge/go-bridge-backend/internal/repo"
)

// forwardsTotal counts forward attempts per origin/target/outcome.
var forwardsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_forwards_total",
		Help: "Forward attempts by origin platform, target platform and outcome.",
	},
	[]string{"origin", "target", "outcome"},
)

// TargetResult is the outcome of one delivery attempt.
type TargetResult struct {
	Target         domain.Platform `json:"target"`
	Success        bool            `json:"success"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Outcome aggregates one routing invocation.
//
// Success with Forwarded false means the message was valid but had no
// enabled route; that is an expected state, not a failure. When at least one
// target was attempted, Success requires at least one of them to have
// succeeded.
type Outcome struct {
	Success   bool           `json:"success"`
	Forwarded bool           `json:"forwarded"`
	Results   []TargetResult `json:"results"`
	Error     string         `json:"error,omitempty"`
}

// Engine routes canonical messages to their configured targets.
type Engine struct {
	// DB is the GORM handle used for mapping and link lookups.
	DB *gorm.DB
	// Registry supplies the per-platform forwarders.
	Registry *platform.Registry
	// Shaper post-processes AI answers before chaining.
	Shaper Shaper
	// CallTimeout bounds each individual downstream call.
	CallTimeout time.Duration
}

// NewEngine constructs a routing engine.
func NewEngine(db *gorm.DB, reg *platform.Registry, shaper Shaper, callTimeout time.Duration) *Engine {
	return &Engine{DB: db, Registry: reg, Shaper: shaper, CallTimeout: callTimeout}
}

// Route forwards msg to every enabled target of every active mapping that
// references the originating instance. It never returns an error: per-target
// failures are recorded in the outcome, and a lookup failure is reported via
// Outcome.Error, so the webhook layer can always acknowledge the delivery.
func (e *Engine) Route(ctx context.Context, msg domain.CanonicalMessage) Outcome {
	tr := otel.Tracer("routing/Engine")
	ctx, span := tr.Start(ctx, "Route",
		trace.WithAttributes(
			attribute.String("origin.platform", string(msg.Platform)),
			attribute.String("origin.instance_id", msg.InstanceID),
		),
	)
	defer span.End()

	out := Outcome{Success: true, Results: []TargetResult{}}

	if !msg.ShouldProcess() {
		log.Debug().
			Str("platform", string(msg.Platform)).
			Str("instance_id", msg.InstanceID).
			Msg("message rejected by loop guard")
		return out
	}

	// App-initiated AI pushes carry raw model output; cap them the same way
	// chained AI answers are capped.
	if msg.Platform == domain.PlatformDify {
		msg.Content = e.Shaper.Shape("", msg.Content)
	}

	mappings, err := repo.ListActiveMappingsForInstance(ctx, e.DB, msg.Platform, msg.InstanceID)
	if err != nil {
		log.Error().Err(err).
			Str("platform", string(msg.Platform)).
			Str("instance_id", msg.InstanceID).
			Msg("mapping lookup failed")
		return Outcome{Success: false, Results: []TargetResult{}, Error: err.Error()}
	}

	for i := range mappings {
		m := &mappings[i]
		targets := e.autoConnectTargets(ctx, m, msg, chooseTargets(m, msg.Platform))
		targets = e.activeTargets(ctx, m, targets)
		for _, target := range targets {
			res, reply := e.forwardOne(ctx, m, target, msg)
			out.Results = append(out.Results, res)

			if res.Success && target == domain.PlatformDify && reply != "" {
				out.Results = append(out.Results, e.chainAIReply(ctx, m, msg, reply)...)
			}
		}
	}

	if len(out.Results) > 0 {
		out.Success = false
		for _, r := range out.Results {
			if r.Success {
				out.Success = true
				out.Forwarded = true
			}
		}
	}
	return out
}

// chooseTargets applies the direction matrix for a message arriving from
// origin. Targets are ordered desk before AI: when a single downstream leg
// must win, the human-facing support surface does.
func chooseTargets(m *domain.PlatformMapping, origin domain.Platform) []domain.Platform {
	var targets []domain.Platform
	switch origin {
	case domain.PlatformTelegram:
		if m.EnableTelegramToChatwoot && m.ChatwootAccountID != nil {
			targets = append(targets, domain.PlatformChatwoot)
		}
		if m.EnableTelegramToDify && m.DifyAppID != nil {
			targets = append(targets, domain.PlatformDify)
		}
	case domain.PlatformChatwoot:
		if m.EnableChatwootToTelegram {
			targets = append(targets, domain.PlatformTelegram)
		}
		if m.EnableChatwootToDify && m.DifyAppID != nil {
			targets = append(targets, domain.PlatformDify)
		}
	case domain.PlatformDify:
		if m.EnableDifyToChatwoot && m.ChatwootAccountID != nil {
			targets = append(targets, domain.PlatformChatwoot)
		}
		if m.EnableDifyToTelegram {
			targets = append(targets, domain.PlatformTelegram)
		}
	}
	return targets
}

// autoConnectTargets augments the enabled target set for Telegram-origin
// messages. An auto-connect flag establishes the target-side conversation on
// the first message from a chat even when the corresponding direction flag is
// off; once the link carries that target's conversation id, the direction
// matrix alone governs subsequent forwards.
func (e *Engine) autoConnectTargets(ctx context.Context, m *domain.PlatformMapping, msg domain.CanonicalMessage, targets []domain.Platform) []domain.Platform {
	if msg.Platform != domain.PlatformTelegram {
		return targets
	}
	wantChatwoot := m.AutoConnectChatwoot && m.ChatwootAccountID != nil && !containsPlatform(targets, domain.PlatformChatwoot)
	wantDify := m.AutoConnectDify && m.DifyAppID != nil && !containsPlatform(targets, domain.PlatformDify)
	if !wantChatwoot && !wantDify {
		return targets
	}

	link, err := repo.GetLink(ctx, e.DB, m.SourcePlatformID, msg.ConversationID)
	if err != nil && err != gorm.ErrRecordNotFound {
		log.Warn().Err(err).
			Str("mapping_id", m.ID).
			Msg("auto-connect link lookup failed")
		return targets
	}
	if wantChatwoot && (link == nil || link.ChatwootConversationID == nil) {
		targets = append(targets, domain.PlatformChatwoot)
	}
	if wantDify && (link == nil || link.DifyConversationID == nil) {
		targets = append(targets, domain.PlatformDify)
	}
	return targets
}

// activeTargets drops targets whose platform instance is missing or has been
// deactivated. A deactivated target is a no-route condition, not a delivery
// failure; active status is re-checked on every message rather than cached.
func (e *Engine) activeTargets(ctx context.Context, m *domain.PlatformMapping, targets []domain.Platform) []domain.Platform {
	out := make([]domain.Platform, 0, len(targets))
	for _, target := range targets {
		if e.instanceActive(ctx, m, target) {
			out = append(out, target)
			continue
		}
		log.Debug().
			Str("mapping_id", m.ID).
			Str("target", string(target)).
			Msg("target instance inactive, skipping")
	}
	return out
}

// instanceActive reports whether the mapping's instance for target exists and
// is active. A lookup failure other than not-found returns true so the
// forward attempt surfaces the real error.
func (e *Engine) instanceActive(ctx context.Context, m *domain.PlatformMapping, target domain.Platform) bool {
	id := e.targetInstance(m, target)
	if id == "" {
		return false
	}
	var err error
	switch target {
	case domain.PlatformTelegram:
		_, err = repo.GetActiveTelegramBot(ctx, e.DB, id)
	case domain.PlatformChatwoot:
		_, err = repo.GetActiveChatwootAccount(ctx, e.DB, id)
	case domain.PlatformDify:
		_, err = repo.GetActiveDifyApp(ctx, e.DB, id)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false
		}
		log.Warn().Err(err).
			Str("target", string(target)).
			Str("instance_id", id).
			Msg("instance lookup failed")
	}
	return true
}

func containsPlatform(ps []domain.Platform, p domain.Platform) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

// forwardOne delivers msg to one target under its own timeout. The returned
// reply is non-empty only for AI targets that answered synchronously.
func (e *Engine) forwardOne(ctx context.Context, m *domain.PlatformMapping, target domain.Platform, msg domain.CanonicalMessage) (TargetResult, string) {
	res := TargetResult{Target: target}

	instanceID := e.targetInstance(m, target)
	if instanceID == "" {
		res.Error = "target not configured for this mapping"
		forwardsTotal.WithLabelValues(string(msg.Platform), string(target), "failure").Inc()
		return res, ""
	}

	fw, err := e.Registry.Lookup(target)
	if err != nil {
		res.Error = err.Error()
		forwardsTotal.WithLabelValues(string(msg.Platform), string(target), "failure").Inc()
		return res, ""
	}

	cctx, cancel := context.WithTimeout(ctx, e.CallTimeout)
	defer cancel()

	fres, err := fw.Forward(cctx, platform.ForwardRequest{
		InstanceID: instanceID,
		Mapping:    m,
		Message:    msg,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("origin", string(msg.Platform)).
			Str("target", string(target)).
			Str("mapping_id", m.ID).
			Msg("forward failed")
		res.Error = err.Error()
		forwardsTotal.WithLabelValues(string(msg.Platform), string(target), "failure").Inc()
		return res, ""
	}

	res.Success = true
	res.ConversationID = fres.ConversationID
	forwardsTotal.WithLabelValues(string(msg.Platform), string(target), "success").Inc()
	return res, fres.Reply
}

func (e *Engine) targetInstance(m *domain.PlatformMapping, target domain.Platform) string {
	switch target {
	case domain.PlatformTelegram:
		return m.SourcePlatformID
	case domain.PlatformChatwoot:
		if m.ChatwootAccountID != nil {
			return *m.ChatwootAccountID
		}
	case domain.PlatformDify:
		if m.DifyAppID != nil {
			return *m.DifyAppID
		}
	}
	return ""
}

// chainAIReply forwards a shaped AI answer onward per the mapping's
// AI-origin flags. The reply is addressed by the Telegram-side chat id of
// the originating conversation, which both remaining forwarders resolve
// through the conversation link.
func (e *Engine) chainAIReply(ctx context.Context, m *domain.PlatformMapping, origin domain.CanonicalMessage, reply string) []TargetResult {
	shaped := e.Shaper.Shape(origin.Content, reply)

	chatID := origin.ConversationID
	chatType := origin.Meta(domain.MetaChatType)
	if origin.Platform == domain.PlatformChatwoot {
		cwID, err := strconv.Atoi(origin.ConversationID)
		if err != nil {
			return []TargetResult{{Target: domain.PlatformDify, Error: "invalid chatwoot conversation id " + origin.ConversationID}}
		}
		link, err := repo.FindLinkByChatwootConversation(ctx, e.DB, cwID)
		if err != nil {
			return []TargetResult{{Target: domain.PlatformDify, Error: "no conversation link for chatwoot conversation " + origin.ConversationID}}
		}
		chatID = link.ExternalChatID
		chatType = link.ChatType
	}

	replyMsg := domain.CanonicalMessage{
		Platform:       domain.PlatformDify,
		InstanceID:     e.targetInstance(m, domain.PlatformDify),
		ConversationID: chatID,
		SenderName:     "AI Assistant",
		Content:        shaped,
		Metadata:       map[string]string{domain.MetaChatType: chatType},
	}

	var chain []domain.Platform
	if m.EnableDifyToTelegram {
		chain = append(chain, domain.PlatformTelegram)
	}
	if m.EnableDifyToChatwoot && m.ChatwootAccountID != nil {
		chain = append(chain, domain.PlatformChatwoot)
	}

	var results []TargetResult
	for _, target := range e.activeTargets(ctx, m, chain) {
		res, _ := e.forwardOne(ctx, m, target, replyMsg)
		results = append(results, res)
	}
	return results
}
