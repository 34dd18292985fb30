// Package platform defines the outbound side of the bridge: one Forwarder
// per chat platform, hidden behind a common interface so the routing engine
// never switches on platform types directly.
//
// Forwarders resolve the destination conversation themselves (find or create)
// and report delivery results uniformly. New platforms are added by
// implementing Forwarder and registering the implementation.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

// ErrNotConfigured indicates that the referenced platform instance does not
// exist or has been deactivated. Forwarders return it (wrapped) so callers
// can distinguish configuration gaps from upstream failures.
var ErrNotConfigured = errors.New("platform instance not configured")

// ForwardRequest carries everything a Forwarder needs to deliver a message
// to one target instance.
type ForwardRequest struct {
	// InstanceID identifies the target platform instance (bot, account or app).
	InstanceID string
	// Mapping is the routing rule that authorised this forward.
	Mapping *domain.PlatformMapping
	// Message is the normalized inbound message being forwarded.
	Message domain.CanonicalMessage
}

// ForwardResult reports the outcome of a single delivery.
type ForwardResult struct {
	// Target is the platform the message was delivered to.
	Target domain.Platform
	// Reply is a synchronous response produced by the target, if any.
	// Only conversational AI targets populate it.
	Reply string
	// ConversationID is the target-side conversation the message landed in.
	ConversationID string
}

// Forwarder delivers messages to one platform kind.
type Forwarder interface {
	// Platform reports which platform this forwarder serves.
	Platform() domain.Platform

	// Forward delivers the message, resolving (or creating) the target-side
	// conversation as needed.
	Forward(ctx context.Context, req ForwardRequest) (ForwardResult, error)

	// TestConnection verifies that the given instance is reachable with its
	// stored credentials without delivering a user-visible message.
	TestConnection(ctx context.Context, instanceID string) error
}

// UpstreamError wraps a failure reported by (or while talking to) a platform
// API. The routing engine treats it as a per-target failure rather than a
// routing failure.
type UpstreamError struct {
	Platform domain.Platform
	Op       string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: upstream status %d: %v", e.Platform, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Platform, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Registry maps platform kinds to their Forwarder implementations.
type Registry struct {
	forwarders map[domain.Platform]Forwarder
}

// NewRegistry builds a registry from the given forwarders. A nil forwarder
// is skipped; a duplicate platform overwrites the earlier entry.
func NewRegistry(fws ...Forwarder) *Registry {
	r := &Registry{forwarders: make(map[domain.Platform]Forwarder, len(fws))}
	for _, fw := range fws {
		if fw == nil {
			continue
		}
		r.forwarders[fw.Platform()] = fw
	}
	return r
}

// Lookup returns the forwarder for a platform, or an error when none is
// registered.
func (r *Registry) Lookup(p domain.Platform) (Forwarder, error) {
	fw, ok := r.forwarders[p]
	if !ok {
		return nil, fmt.Errorf("no forwarder registered for platform %q", p)
	}
	return fw, nil
}

// Platforms lists the registered platform kinds.
func (r *Registry) Platforms() []domain.Platform {
	out := make([]domain.Platform, 0, len(r.forwarders))
	for p := range r.forwarders {
		out = append(out, p)
	}
	return out
}
