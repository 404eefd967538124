package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	apperrors "github.com/earthwork-discovery/internal/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS discovery_runs (
	run_id        UUID PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	backend       TEXT NOT NULL,
	test_auc      DOUBLE PRECISION NOT NULL,
	hotspot_count INTEGER NOT NULL,
	checkpoint    JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS discovery_hotspots (
	run_id      UUID NOT NULL REFERENCES discovery_runs(run_id) ON DELETE CASCADE,
	rank        INTEGER NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	mean_prob   DOUBLE PRECISION NOT NULL,
	max_prob    DOUBLE PRECISION NOT NULL,
	point_count INTEGER NOT NULL,
	tile        TEXT NOT NULL,
	confidence  TEXT NOT NULL,
	deforested  BOOLEAN NOT NULL DEFAULT FALSE,
	geom        GEOMETRY(Point, 4326) NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_discovery_runs_finished ON discovery_runs (finished_at DESC);
CREATE INDEX IF NOT EXISTS idx_discovery_hotspots_geom ON discovery_hotspots USING GIST (geom);
`

type resultsRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewResultsRepository(db *DB, logger *zap.Logger) repository.ResultsRepository {
	return &resultsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *resultsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *resultsRepository) SaveRun(ctx context.Context, cp *domain.Checkpoint, hotspots []domain.Hotspot) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO discovery_runs (run_id, started_at, finished_at, backend, test_auc, hotspot_count, checkpoint)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO NOTHING`,
		cp.RunID, cp.StartedAt, cp.FinishedAt, cp.Backend, cp.Metrics.TestAUC, len(hotspots), payload,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.logger.Debug("Run already stored", zap.String("run_id", cp.RunID.String()))
		return nil
	}

	for _, h := range hotspots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO discovery_hotspots
				(run_id, rank, lat, lon, mean_prob, max_prob, point_count, tile, confidence, deforested, geom)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, ST_SetSRID(ST_MakePoint($4, $3), $11))`,
			cp.RunID, h.Rank, h.Lat, h.Lon, h.MeanProb, h.MaxProb, h.Count, h.Tile, h.Confidence, h.Deforested, SRID4326,
		)
		if err != nil {
			return fmt.Errorf("insert hotspot %d: %w", h.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.Info("Run stored",
		zap.String("run_id", cp.RunID.String()),
		zap.Int("hotspots", len(hotspots)),
	)
	return nil
}

func (r *resultsRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	runs := []domain.RunSummary{}
	err := r.db.SelectContext(ctx, &runs, `
		SELECT run_id, started_at, finished_at, backend, test_auc, hotspot_count
		FROM discovery_runs
		ORDER BY finished_at DESC
		LIMIT $1`, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (r *resultsRepository) GetRun(ctx context.Context, id uuid.UUID) (*domain.Checkpoint, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `SELECT checkpoint FROM discovery_runs WHERE run_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

func (r *resultsRepository) GetHotspots(ctx context.Context, id uuid.UUID) ([]domain.Hotspot, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM discovery_runs WHERE run_id = $1)`, id); err != nil {
		return nil, fmt.Errorf("check run: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrRunNotFound
	}

	hotspots := []domain.Hotspot{}
	err := r.db.SelectContext(ctx, &hotspots, `
		SELECT rank, lat, lon, mean_prob, max_prob, point_count, tile, confidence, deforested
		FROM discovery_hotspots
		WHERE run_id = $1
		ORDER BY rank`, id)
	if err != nil {
		return nil, fmt.Errorf("get hotspots: %w", err)
	}
	return hotspots, nil
}

func (r *resultsRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}
