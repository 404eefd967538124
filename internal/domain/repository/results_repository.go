package repository

import (
	"context"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/google/uuid"
)

// ResultsRepository stores finished runs and their hotspots.
type ResultsRepository interface {
	EnsureSchema(ctx context.Context) error

	// SaveRun is idempotent per run ID.
	SaveRun(ctx context.Context, cp *domain.Checkpoint, hotspots []domain.Hotspot) error

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	GetRun(ctx context.Context, id uuid.UUID) (*domain.Checkpoint, error)

	// GetHotspots returns the run's hotspots ordered by rank.
	GetHotspots(ctx context.Context, id uuid.UUID) ([]domain.Hotspot, error)

	Health(ctx context.Context) error
}
