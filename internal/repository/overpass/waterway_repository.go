// Package overpass fetches OSM waterways as a fallback hydrography layer.
package overpass

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ctessum/geom"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/serjvanilla/go-overpass"
	"go.uber.org/zap"
)

const waterwayQuery = `[out:json][timeout:%d];
(
	way["waterway"~"^(river|stream|canal)$"](%g,%g,%g,%g);
);
out body;
>;
out skel qt;`

type waterwayRepository struct {
	client  *overpass.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewWaterwayRepository(endpoint string, timeout time.Duration, logger *zap.Logger) repository.WaterwayRepository {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &waterwayRepository{
		client:  &client,
		timeout: timeout,
		logger:  logger,
	}
}

// Waterways returns one line string per OSM way with at least two nodes,
// ordered by way ID.
func (r *waterwayRepository) Waterways(ctx context.Context, bbox domain.BoundingBox) ([]geom.Geom, error) {
	query := fmt.Sprintf(waterwayQuery, int(r.timeout.Seconds()),
		bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)

	result, err := r.executeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute waterway query: %w", err)
	}

	lines := convertToLines(result)
	r.logger.Info("Waterways fetched from Overpass",
		zap.Stringer("bbox", bbox),
		zap.Int("ways", len(result.Ways)),
		zap.Int("lines", len(lines)),
	)
	return lines, nil
}

type queryResult struct {
	result overpass.Result
	err    error
}

// executeQuery gives up when ctx ends; the HTTP client timeout bounds the
// abandoned request.
func (r *waterwayRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	done := make(chan queryResult, 1)
	go func() {
		res, err := r.client.Query(query)
		done <- queryResult{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case q := <-done:
		if q.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", q.err)
		}
		return &q.result, nil
	}
}

func convertToLines(result *overpass.Result) []geom.Geom {
	ids := make([]int64, 0, len(result.Ways))
	for id := range result.Ways {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var lines []geom.Geom
	for _, id := range ids {
		way := result.Ways[id]
		line := make(geom.LineString, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			line = append(line, geom.Point{X: node.Lon, Y: node.Lat})
		}
		if len(line) < 2 {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
