package usecase

import (
	"context"
	"fmt"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	apperrors "github.com/earthwork-discovery/internal/pkg/errors"
	"github.com/earthwork-discovery/internal/tile"
	"go.uber.org/zap"
)

// TileReport is the ranking of elevation tiles by known-site coverage.
type TileReport struct {
	Sites      []domain.KnownSite
	TotalTiles int
	Selection  tile.Selection
}

// TileUseCase selects the elevation tiles worth processing.
type TileUseCase struct {
	elevation repository.ElevationRepository
	sites     repository.SiteRepository
	maxTiles  int
	logger    *zap.Logger
}

// NewTileUseCase caps the selection at maxTiles when it is positive.
func NewTileUseCase(
	elevation repository.ElevationRepository,
	sites repository.SiteRepository,
	maxTiles int,
	logger *zap.Logger,
) *TileUseCase {
	return &TileUseCase{elevation: elevation, sites: sites, maxTiles: maxTiles, logger: logger}
}

// Report loads the known sites and tile names and ranks the tiles.
func (uc *TileUseCase) Report(ctx context.Context) (*TileReport, error) {
	sites, err := uc.sites.LoadSites(ctx)
	if err != nil {
		return nil, apperrors.ErrNoKnownSites.Wrap(err)
	}
	if len(sites) == 0 {
		return nil, apperrors.ErrNoKnownSites
	}

	names, err := uc.elevation.ListTiles(ctx)
	if err != nil {
		return nil, apperrors.ErrNoElevationTiles.Wrap(err)
	}
	if len(names) == 0 {
		return nil, apperrors.ErrNoElevationTiles
	}

	coverage := tile.FindCoverage(names, sites, uc.logger)
	sel := tile.Prioritize(coverage).Limit(uc.maxTiles)
	sel.Log(uc.logger)
	if len(sel.Selected()) == 0 {
		return nil, apperrors.ErrNoTilesSelected.WithDetails(map[string]interface{}{
			"tiles": len(names),
			"sites": len(sites),
		})
	}

	uc.logger.Info("Selected tiles",
		zap.Int("count", len(sel.Selected())),
		zap.String("coverage", fmt.Sprintf("%.1f%%", sel.FinalCoverage*100)),
		zap.String("rationale", sel.Rationale),
	)
	return &TileReport{Sites: sites, TotalTiles: len(names), Selection: sel}, nil
}
