package usecase

import (
	"math"
	"sort"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/pkg/utils"
	"go.uber.org/zap"
)

// kmPerDegree is a lower bound on the length of one degree of latitude.
const kmPerDegree = 110.0

// Containment answers point-in-polygon queries.
type Containment interface {
	Empty() bool
	Contains(p domain.Point) bool
}

// HotspotOptions tune hotspot extraction.
type HotspotOptions struct {
	// Threshold is the probability a point must exceed.
	Threshold float64
	// MergeDistanceKm joins points within this distance of a cluster seed.
	MergeDistanceKm float64
	// MinSiteDistanceKm drops points this close to a known site.
	MinSiteDistanceKm float64
	// MaskDeforested keeps only points inside deforested land.
	MaskDeforested bool
	Top            int
}

// HotspotUseCase groups high-probability predictions into ranked hotspots.
type HotspotUseCase struct {
	opts   HotspotOptions
	logger *zap.Logger
}

func NewHotspotUseCase(opts HotspotOptions, logger *zap.Logger) *HotspotUseCase {
	return &HotspotUseCase{opts: opts, logger: logger}
}

type cluster struct {
	seed    Prediction
	latSum  float64
	lonSum  float64
	probSum float64
	maxProb float64
	count   int
}

func (c *cluster) add(p Prediction) {
	c.latSum += p.Lat
	c.lonSum += p.Lon
	c.probSum += p.Probability
	c.maxProb = math.Max(c.maxProb, p.Probability)
	c.count++
}

// Find filters, clusters and ranks predictions. deforestation may be nil.
// Points are visited by descending probability; each joins the first
// cluster whose seed is within the merge distance or seeds a new one.
func (uc *HotspotUseCase) Find(preds []Prediction, sites []domain.KnownSite, deforestation Containment) []domain.Hotspot {
	masked := uc.opts.MaskDeforested && deforestation != nil && !deforestation.Empty()

	var candidates []Prediction
	belowThreshold, outsideMask, nearSite := 0, 0, 0
	for _, p := range preds {
		switch {
		case !(p.Probability > uc.opts.Threshold):
			belowThreshold++
		case masked && !deforestation.Contains(p.Point):
			outsideMask++
		case uc.nearKnownSite(p.Point, sites):
			nearSite++
		default:
			candidates = append(candidates, p)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Probability > candidates[j].Probability
	})

	var clusters []*cluster
	for _, p := range candidates {
		var home *cluster
		for _, c := range clusters {
			if withinKm(c.seed.Point, p.Point, uc.opts.MergeDistanceKm) {
				home = c
				break
			}
		}
		if home == nil {
			home = &cluster{seed: p}
			clusters = append(clusters, home)
		}
		home.add(p)
	}

	hotspots := make([]domain.Hotspot, 0, len(clusters))
	for _, c := range clusters {
		n := float64(c.count)
		h := domain.Hotspot{
			Lat:      c.latSum / n,
			Lon:      c.lonSum / n,
			MeanProb: c.probSum / n,
			MaxProb:  c.maxProb,
			Count:    c.count,
			Tile:     c.seed.Tile,
		}
		h.Confidence = domain.ConfidenceFor(h.MeanProb)
		if deforestation != nil && !deforestation.Empty() {
			h.Deforested = deforestation.Contains(domain.Point{Lat: h.Lat, Lon: h.Lon})
		}
		hotspots = append(hotspots, h)
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		if hotspots[i].MeanProb != hotspots[j].MeanProb {
			return hotspots[i].MeanProb > hotspots[j].MeanProb
		}
		return hotspots[i].MaxProb > hotspots[j].MaxProb
	})
	if uc.opts.Top > 0 && len(hotspots) > uc.opts.Top {
		hotspots = hotspots[:uc.opts.Top]
	}
	for i := range hotspots {
		hotspots[i].Rank = i + 1
	}

	uc.logger.Info("Hotspots identified",
		zap.Int("predictions", len(preds)),
		zap.Int("below_threshold", belowThreshold),
		zap.Int("outside_deforestation", outsideMask),
		zap.Int("near_known_site", nearSite),
		zap.Int("clusters", len(clusters)),
		zap.Int("reported", len(hotspots)),
	)
	return hotspots
}

func (uc *HotspotUseCase) nearKnownSite(p domain.Point, sites []domain.KnownSite) bool {
	if uc.opts.MinSiteDistanceKm <= 0 {
		return false
	}
	for _, s := range sites {
		if withinKm(s.Point, p, uc.opts.MinSiteDistanceKm) {
			return true
		}
	}
	return false
}

func withinKm(a, b domain.Point, km float64) bool {
	if math.Abs(a.Lat-b.Lat)*kmPerDegree > km {
		return false
	}
	return utils.HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon) <= km
}
