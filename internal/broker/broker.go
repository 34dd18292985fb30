// Package broker is the entry point for inbound webhook payloads. It
// normalizes each platform's native JSON into the canonical message envelope
// and hands it to the routing engine.
//
// Events that carry no routable message (status updates, contact edits,
// unknown event types, bridge echoes) produce a no-op outcome, never an
// error: failing a webhook delivery over an unactionable event would lead
// the origin platform to disable or retry-storm the webhook. An error is
// returned only for structurally invalid payloads.
package broker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
	"github.com/chatbridge/go-bridge-backend/internal/routing"
)

// Router is the slice of the routing engine the broker needs.
type Router interface {
	Route(ctx context.Context, msg domain.CanonicalMessage) routing.Outcome
}

// Broker normalizes webhook payloads and dispatches them for routing.
type Broker struct {
	Engine Router
}

// New constructs a Broker backed by the given routing engine.
func New(engine Router) *Broker {
	return &Broker{Engine: engine}
}

// noop is the outcome for structurally valid events with nothing to route.
func noop() routing.Outcome {
	return routing.Outcome{Success: true, Results: []routing.TargetResult{}}
}

// Handle normalizes one raw webhook payload received by the given platform
// instance and routes the resulting message. instanceID comes from the
// webhook URL; raw payloads do not self-identify which configured instance
// received them.
func (b *Broker) Handle(ctx context.Context, origin domain.Platform, instanceID string, payload []byte) (routing.Outcome, error) {
	var (
		msg domain.CanonicalMessage
		ok  bool
		err error
	)
	switch origin {
	case domain.PlatformTelegram:
		msg, ok, err = normalizeTelegram(instanceID, payload)
	case domain.PlatformChatwoot:
		msg, ok, err = normalizeChatwoot(instanceID, payload)
	case domain.PlatformDify:
		msg, ok, err = normalizeDify(instanceID, payload)
	default:
		return routing.Outcome{}, fmt.Errorf("unknown origin platform %q", origin)
	}
	if err != nil {
		return routing.Outcome{}, err
	}
	if !ok {
		log.Debug().
			Str("origin", string(origin)).
			Str("instance_id", instanceID).
			Msg("webhook event carries no routable message")
		return noop(), nil
	}
	return b.Engine.Route(ctx, msg), nil
}
