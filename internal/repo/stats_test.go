package repo

import (
	"context"
	"testing"
	"time"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

func TestMappingsStats_Empty(t *testing.T) {
	db := newTestDB(t, &domain.PlatformMapping{})

	count, max, err := MappingsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("MappingsStats: %v", err)
	}
	if count != 0 || max != nil {
		t.Fatalf("empty table: count=%d max=%v; want 0, nil", count, max)
	}
}

func TestMappingsStats_CountAndLatest(t *testing.T) {
	db := newTestDB(t, &domain.PlatformMapping{})
	ctx := context.Background()

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.PlatformMapping{
		{ID: "m1", SourcePlatform: "telegram", SourcePlatformID: "bot-1", IsActive: true, CreatedBy: "a", CreatedAt: older, UpdatedAt: older},
		{ID: "m2", SourcePlatform: "telegram", SourcePlatformID: "bot-2", IsActive: true, CreatedBy: "a", CreatedAt: newer, UpdatedAt: newer},
	}
	for i := range rows {
		if err := db.WithContext(ctx).Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, max, err := MappingsStats(ctx, db)
	if err != nil {
		t.Fatalf("MappingsStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if max == nil || !max.Equal(newer) {
		t.Fatalf("max = %v; want %v", max, newer)
	}
}
