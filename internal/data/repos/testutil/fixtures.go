package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
)

// SeedSnapshot inserts a snapshot row directly, bypassing the repo.
func SeedSnapshot(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID string, total float64, locked bool, createdAt time.Time) *domain.Snapshot {
	tb.Helper()
	s := &domain.Snapshot{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        "seed",
		Hash:        "0000000000000000000000000000000000000000000000000000000000000000",
		Positions:   datatypes.JSON([]byte("[]")),
		HeaderKPI:   datatypes.JSON([]byte("{}")),
		IsLocked:    locked,
		TotalAtLock: total,
		CreatedAt:   createdAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed snapshot: %v", err)
	}
	return s
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
