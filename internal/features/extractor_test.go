package features

import (
	"errors"
	"math"
	"testing"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockDistanceIndex struct {
	mock.Mock
}

func (m *MockDistanceIndex) Empty() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockDistanceIndex) Distance(p domain.Point) (float64, error) {
	args := m.Called(p)
	return args.Get(0).(float64), args.Error(1)
}

// 4x4 grid whose upper-left corner is (0, 4) with one-degree pixels.
func gridSet(t *testing.T) (*Set, raster.GeoTransform) {
	t.Helper()
	elev := raster.New(4, 4)
	slope := raster.New(4, 4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			elev.Set(i, j, float64(10*i+j))
			slope.Set(i, j, float64(i+j)/10)
		}
	}
	set := NewSet()
	require.NoError(t, set.Add(FeatureElevation, elev))
	require.NoError(t, set.Add(FeatureSlope, slope))
	return set, raster.NorthUp(0, 4, 1, 1)
}

func TestExtractInsideGrid(t *testing.T) {
	set, gt := gridSet(t)
	ref := new(MockDistanceIndex)
	ref.On("Empty").Return(false)
	ref.On("Distance", domain.Point{Lat: 2.5, Lon: 1.5}).Return(0.25, nil)

	table := NewExtractor(ref, zap.NewNop()).Extract(
		[]domain.Point{{Lat: 2.5, Lon: 1.5}}, set, gt)

	assert.Equal(t, []string{FeatureElevation, FeatureSlope, FeatureRiverDistance}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []float64{11, 0.2, 0.25}, table.Rows[0].Values)
	assert.False(t, table.Rows[0].Outcome.IsDefaulted())
	assert.False(t, table.Rows[0].DistanceDefaulted)
	ref.AssertExpectations(t)
}

func TestExtractOutsideGridWithoutReference(t *testing.T) {
	set, gt := gridSet(t)

	table := NewExtractor(nil, zap.NewNop()).Extract(
		[]domain.Point{{Lat: 40, Lon: 40}, {Lat: -1, Lon: 2}}, set, gt)

	require.Len(t, table.Rows, 2)
	for _, r := range table.Rows {
		assert.Equal(t, []float64{0, 0, 1000}, r.Values)
		assert.True(t, r.DistanceDefaulted)
	}
}

func TestExtractKeepsRowCountUnderFailures(t *testing.T) {
	set, gt := gridSet(t)
	ref := new(MockDistanceIndex)
	ref.On("Empty").Return(false)
	ref.On("Distance", mock.Anything).Return(0.0, errors.New("broken geometry"))

	points := []domain.Point{
		{Lat: 3.5, Lon: 0.5},
		{Lat: math.NaN(), Lon: 1},
		{Lat: 1, Lon: math.Inf(1)},
		{Lat: 0.5, Lon: 3.5},
	}
	table := NewExtractor(ref, zap.NewNop()).Extract(points, set, gt)

	require.Len(t, table.Rows, len(points))
	assert.Equal(t, 2, table.DefaultedCount())
	assert.Equal(t, []float64{0, 0, 0.0 + DefaultRiverDistance}, table.Rows[1].Values)
	assert.Equal(t, []float64{0, 0, 1000}, table.Rows[2].Values)
	assert.Equal(t, []float64{33, 0.6, 1000}, table.Rows[3].Values)
	assert.Equal(t, 2, table.Column(FeatureRiverDistance))
	assert.Equal(t, -1, table.Column("missing"))
}

func TestExtractSingularTransform(t *testing.T) {
	set, _ := gridSet(t)

	table := NewExtractor(nil, zap.NewNop()).Extract(
		[]domain.Point{{Lat: 1, Lon: 1}}, set, raster.GeoTransform{})

	require.Len(t, table.Rows, 1)
	assert.True(t, table.Rows[0].Outcome.IsDefaulted())
	assert.ErrorIs(t, table.Rows[0].Outcome.Reason, raster.ErrSingular)
	assert.Len(t, table.Matrix(), 1)
}
