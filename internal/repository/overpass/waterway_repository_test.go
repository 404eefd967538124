package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const waterwayResponse = `{
  "version": 0.6,
  "elements": [
    {"type": "node", "id": 1, "lat": -9.50, "lon": -67.50},
    {"type": "node", "id": 2, "lat": -9.60, "lon": -67.40},
    {"type": "node", "id": 3, "lat": -9.70, "lon": -67.30},
    {"type": "way", "id": 20, "nodes": [3], "tags": {"waterway": "stream"}},
    {"type": "way", "id": 10, "nodes": [1, 2, 3], "tags": {"waterway": "river"}}
  ]
}`

func TestWaterways(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		query = r.FormValue("data")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(waterwayResponse))
	}))
	defer srv.Close()

	repo := NewWaterwayRepository(srv.URL, 5*time.Second, zap.NewNop())
	bbox := domain.BoundingBox{MinLon: -68, MinLat: -10, MaxLon: -67, MaxLat: -9}

	lines, err := repo.Waterways(context.Background(), bbox)
	require.NoError(t, err)

	assert.True(t, strings.Contains(query, `(-10,-68,-9,-67)`), query)
	assert.Contains(t, query, "waterway")
	require.Len(t, lines, 1)
	assert.Equal(t, geom.LineString{
		{X: -67.50, Y: -9.50},
		{X: -67.40, Y: -9.60},
		{X: -67.30, Y: -9.70},
	}, lines[0])
}

func TestWaterwaysServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	repo := NewWaterwayRepository(srv.URL, 5*time.Second, zap.NewNop())
	_, err := repo.Waterways(context.Background(), domain.BoundingBox{MaxLon: 1, MaxLat: 1})
	assert.Error(t, err)
}

func TestWaterwaysCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	repo := NewWaterwayRepository(srv.URL, 5*time.Second, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := repo.Waterways(ctx, domain.BoundingBox{MaxLon: 1, MaxLat: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
