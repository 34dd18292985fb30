package platform

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

type stubForwarder struct{ p domain.Platform }

func (s *stubForwarder) Platform() domain.Platform { return s.p }
func (s *stubForwarder) Forward(ctx context.Context, req ForwardRequest) (ForwardResult, error) {
	return ForwardResult{Target: s.p}, nil
}
func (s *stubForwarder) TestConnection(ctx context.Context, instanceID string) error { return nil }

func TestRegistry_LookupAndMiss(t *testing.T) {
	r := NewRegistry(
		&stubForwarder{p: domain.PlatformChatwoot},
		&stubForwarder{p: domain.PlatformDify},
		nil,
	)

	fw, err := r.Lookup(domain.PlatformChatwoot)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if fw.Platform() != domain.PlatformChatwoot {
		t.Fatalf("wrong forwarder: %s", fw.Platform())
	}

	if _, err := r.Lookup(domain.PlatformTelegram); err == nil {
		t.Fatalf("expected error for unregistered platform")
	}

	if got := len(r.Platforms()); got != 2 {
		t.Fatalf("Platforms() = %d entries; want 2", got)
	}
}

func TestUpstreamError_Formatting(t *testing.T) {
	base := errors.New("boom")
	e := &UpstreamError{Platform: domain.PlatformDify, Op: "chat-messages", Status: 502, Err: base}

	if !errors.Is(e, base) {
		t.Fatalf("Unwrap chain broken")
	}
	msg := e.Error()
	if !strings.Contains(msg, "502") || !strings.Contains(msg, "dify") {
		t.Fatalf("unexpected message: %s", msg)
	}

	noStatus := &UpstreamError{Platform: domain.PlatformTelegram, Op: "sendMessage", Err: base}
	if strings.Contains(noStatus.Error(), "status") {
		t.Fatalf("status should be omitted when zero: %s", noStatus.Error())
	}
}
