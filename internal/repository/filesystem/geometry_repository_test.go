package filesystem

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGeometryRepositoryMissingShapefile(t *testing.T) {
	repo := NewGeometryRepository(filepath.Join(t.TempDir(), "rivers.shp"), "rivers", zap.NewNop())

	_, err := repo.LoadGeometries(context.Background())
	assert.ErrorContains(t, err, "open rivers shapefile")
}
