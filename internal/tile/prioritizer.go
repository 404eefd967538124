package tile

import (
	"fmt"
	"slices"

	"github.com/earthwork-discovery/internal/domain"
	"go.uber.org/zap"
)

// Coverage lists the known sites whose location falls inside a tile.
type Coverage struct {
	Tile   string
	Bounds domain.BoundingBox
	Sites  []domain.KnownSite
}

func (c Coverage) Count() int { return len(c.Sites) }

// FindCoverage keeps the parseable tiles that overlap the extent of sites
// and contain at least one of them. Input order is preserved.
func FindCoverage(tileNames []string, sites []domain.KnownSite, logger *zap.Logger) []Coverage {
	extent, ok := domain.TotalBounds(domain.SitePoints(sites))
	if !ok {
		return nil
	}
	logger.Info("Finding overlapping elevation tiles", zap.Stringer("site_bounds", extent))

	var result []Coverage
	for _, name := range tileNames {
		bounds, err := ParseBounds(name)
		if err != nil {
			logger.Debug("Skipping tile with unparseable name", zap.String("tile", name))
			continue
		}
		if !Overlaps(bounds, extent) {
			continue
		}

		var inside []domain.KnownSite
		for _, s := range sites {
			if bounds.Contains(s.Point) {
				inside = append(inside, s)
			}
		}
		if len(inside) == 0 {
			continue
		}
		result = append(result, Coverage{Tile: name, Bounds: bounds, Sites: inside})
		logger.Info("Tile covers known sites",
			zap.String("tile", name),
			zap.Int("sites", len(inside)),
			zap.Stringer("bounds", bounds),
		)
	}

	logger.Info("Overlapping tiles found", zap.Int("count", len(result)))
	return result
}

// Selection is the outcome of ranking tiles by site density.
type Selection struct {
	// Ordered holds every tile, most sites first; equal counts keep their
	// input order.
	Ordered []Coverage
	// Cumulative[i] is the fraction of all sites covered by Ordered[:i+1].
	Cumulative []float64

	TotalSites      int
	HasMilestones   bool
	Count80         int
	Count90         int
	Count95         int
	TilesWith10Plus int
	Cutoff          int
	FinalCoverage   float64
	Rationale       string
}

const highValueSites = 10

// Prioritize ranks tiles and picks a cutoff: the larger of the prefix
// reaching 90% coverage and the number of leading tiles with at least ten
// sites. With no sites at all there are no coverage milestones.
func Prioritize(coverage []Coverage) Selection {
	ordered := slices.Clone(coverage)
	slices.SortStableFunc(ordered, func(a, b Coverage) int {
		return b.Count() - a.Count()
	})

	sel := Selection{
		Ordered:    ordered,
		Cumulative: make([]float64, len(ordered)),
	}
	for _, c := range ordered {
		sel.TotalSites += c.Count()
	}

	cumulative := 0
	for i, c := range ordered {
		cumulative += c.Count()
		if c.Count() >= highValueSites {
			sel.TilesWith10Plus = i + 1
		}
		if sel.TotalSites == 0 {
			continue
		}

		frac := float64(cumulative) / float64(sel.TotalSites)
		sel.Cumulative[i] = frac
		if frac >= 0.8 && sel.Count80 == 0 {
			sel.Count80 = i + 1
		}
		if frac >= 0.9 && sel.Count90 == 0 {
			sel.Count90 = i + 1
		}
		if frac >= 0.95 && sel.Count95 == 0 {
			sel.Count95 = i + 1
		}
	}

	sel.HasMilestones = sel.TotalSites > 0
	sel.Cutoff = max(sel.Count90, sel.TilesWith10Plus)

	switch {
	case !sel.HasMilestones:
		sel.Rationale = "no coverage milestones: no sites covered"
	case sel.Cutoff == sel.Count90:
		sel.Rationale = "90% coverage achieved"
	default:
		sel.Rationale = "including all high-value tiles (10+ sites)"
	}

	if sel.HasMilestones {
		covered := 0
		for _, c := range ordered[:sel.Cutoff] {
			covered += c.Count()
		}
		sel.FinalCoverage = float64(covered) / float64(sel.TotalSites)
	}
	return sel
}

// Selected returns the tiles up to the cutoff.
func (s Selection) Selected() []Coverage {
	return s.Ordered[:s.Cutoff]
}

// Limit caps the cutoff at n when n is positive and smaller.
func (s Selection) Limit(n int) Selection {
	if n > 0 && n < s.Cutoff {
		s.Cutoff = n
		s.Rationale = fmt.Sprintf("%s; capped at %d tiles", s.Rationale, n)
		if s.HasMilestones {
			s.FinalCoverage = s.Cumulative[n-1]
		}
	}
	return s
}

// Summary converts the selection into its checkpoint record.
func (s Selection) Summary(totalTiles int) domain.TileSelection {
	names := make([]string, 0, s.Cutoff)
	for _, c := range s.Selected() {
		names = append(names, c.Tile)
	}
	return domain.TileSelection{
		Selected:        names,
		TotalTiles:      totalTiles,
		TotalSites:      s.TotalSites,
		Count80:         s.Count80,
		Count90:         s.Count90,
		Count95:         s.Count95,
		TilesWith10Plus: s.TilesWith10Plus,
		FinalCoverage:   s.FinalCoverage,
		Rationale:       s.Rationale,
	}
}

// Log writes the ranking report.
func (s Selection) Log(logger *zap.Logger) {
	logger.Info("Sorted tiles by site density", zap.Int("total_sites", s.TotalSites))
	for i, c := range s.Ordered {
		if i >= 15 {
			break
		}
		logger.Info("Tile rank",
			zap.Int("rank", i+1),
			zap.String("tile", c.Tile),
			zap.Int("sites", c.Count()),
			zap.Float64("cumulative_pct", s.Cumulative[i]*100),
		)
	}
	logger.Info("Coverage analysis",
		zap.Bool("has_milestones", s.HasMilestones),
		zap.Int("tiles_80pct", s.Count80),
		zap.Int("tiles_90pct", s.Count90),
		zap.Int("tiles_95pct", s.Count95),
		zap.Int("tiles_10plus", s.TilesWith10Plus),
	)
	logger.Info("Selected tiles",
		zap.Int("count", s.Cutoff),
		zap.Float64("final_coverage_pct", s.FinalCoverage*100),
		zap.String("rationale", s.Rationale),
	)
}
