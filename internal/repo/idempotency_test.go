package repo

import (
	"context"
	"testing"
	"time"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

func TestIdempotency_RoundTrip(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "admin", "mappings", "k-1", "map-1", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.ExpiresAt.Before(rec.CreatedAt) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "admin", "mappings", "k-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ResourceID != "map-1" || got.Status != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestIdempotency_DuplicateTuple(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "admin", "mappings", "k-1", "map-1", 201, time.Hour); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "admin", "mappings", "k-1", "map-2", 201, time.Hour); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// Same key under a different scope is a fresh record.
	if _, err := CreateIdempotency(ctx, db, "admin", "bots", "k-1", "bot-1", 201, time.Hour); err != nil {
		t.Fatalf("distinct scope should not collide: %v", err)
	}
}

func TestGetIdempotency_ExpiryAndBlankScope(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "admin", "mappings", "k-1", "map-1", 201, time.Minute); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}

	// Expired records are invisible.
	future := time.Now().UTC().Add(2 * time.Minute)
	if _, err := GetIdempotency(ctx, db, "admin", "mappings", "k-1", future); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound past expiry, got %v", err)
	}

	if _, err := GetIdempotency(ctx, db, "admin", "   ", "k-1", time.Now().UTC()); err != ErrNotFound {
		t.Fatalf("blank scope should be ErrNotFound, got %v", err)
	}
}
