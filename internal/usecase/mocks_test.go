package usecase_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockElevationRepository struct {
	mock.Mock
}

func (m *MockElevationRepository) ListTiles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockElevationRepository) LoadTile(ctx context.Context, name string) (*domain.ElevationTile, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ElevationTile), args.Error(1)
}

type MockSiteRepository struct {
	mock.Mock
}

func (m *MockSiteRepository) LoadSites(ctx context.Context) ([]domain.KnownSite, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.KnownSite), args.Error(1)
}

type MockImageryRepository struct {
	mock.Mock
}

func (m *MockImageryRepository) LoadForTile(ctx context.Context, tile *domain.ElevationTile) (*domain.ImagerySet, error) {
	args := m.Called(ctx, tile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImagerySet), args.Error(1)
}

type MockGeometryRepository struct {
	mock.Mock
}

func (m *MockGeometryRepository) LoadGeometries(ctx context.Context) ([]geom.Geom, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geom.Geom), args.Error(1)
}

type MockWaterwayRepository struct {
	mock.Mock
}

func (m *MockWaterwayRepository) Waterways(ctx context.Context, bbox domain.BoundingBox) ([]geom.Geom, error) {
	args := m.Called(ctx, bbox)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geom.Geom), args.Error(1)
}

type MockResultsRepository struct {
	mock.Mock
}

func (m *MockResultsRepository) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockResultsRepository) SaveRun(ctx context.Context, cp *domain.Checkpoint, hotspots []domain.Hotspot) error {
	return m.Called(ctx, cp, hotspots).Error(0)
}

func (m *MockResultsRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RunSummary), args.Error(1)
}

func (m *MockResultsRepository) GetRun(ctx context.Context, id uuid.UUID) (*domain.Checkpoint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Checkpoint), args.Error(1)
}

func (m *MockResultsRepository) GetHotspots(ctx context.Context, id uuid.UUID) ([]domain.Hotspot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Hotspot), args.Error(1)
}

func (m *MockResultsRepository) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	return m.Called(ctx, stream, data).Error(0)
}

func (m *MockStreamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	return m.Called(ctx, stream, group).Error(0)
}

func (m *MockStreamRepository) ConsumeBatch(ctx context.Context, stream, group, consumer string, count int) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) ClaimPending(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer, minIdle, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	return m.Called(ctx, stream, group, messageID).Error(0)
}

// memoryStore keeps artifacts in memory; Path points into dir so that
// writers going straight to disk still work.
type memoryStore struct {
	dir   string
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryStore(dir string) *memoryStore {
	return &memoryStore{dir: dir, files: make(map[string][]byte)}
}

func (s *memoryStore) Dir() string { return s.dir }

func (s *memoryStore) Path(kind string) string { return filepath.Join(s.dir, kind) }

func (s *memoryStore) Write(kind string, fn func(w io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.files[kind] = buf.Bytes()
	s.mu.Unlock()
	return s.Path(kind), nil
}

func (s *memoryStore) WriteJSON(kind string, v interface{}) (string, error) {
	return s.Write(kind, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(v)
	})
}

func (s *memoryStore) file(kind string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[kind]
}
