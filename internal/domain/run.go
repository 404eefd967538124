package domain

import (
	"time"

	"github.com/google/uuid"
)

// Confidence classes of a hotspot.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ConfidenceFor buckets a probability: >0.7 high, >0.5 medium, else low.
func ConfidenceFor(prob float64) string {
	switch {
	case prob > 0.7:
		return ConfidenceHigh
	case prob > 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Hotspot is a cluster of high-probability prediction points.
type Hotspot struct {
	Rank       int     `json:"rank" db:"rank"`
	Lat        float64 `json:"lat" db:"lat"`
	Lon        float64 `json:"lon" db:"lon"`
	MeanProb   float64 `json:"mean_prob" db:"mean_prob"`
	MaxProb    float64 `json:"max_prob" db:"max_prob"`
	Count      int     `json:"count" db:"point_count"`
	Tile       string  `json:"tile" db:"tile"`
	Confidence string  `json:"confidence" db:"confidence"`
	Deforested bool    `json:"deforested" db:"deforested"`
}

// TileSelection summarises the coverage-based tile ranking of a run.
type TileSelection struct {
	Selected        []string `json:"selected"`
	TotalTiles      int      `json:"total_tiles"`
	TotalSites      int      `json:"total_sites"`
	Count80         int      `json:"count_80"`
	Count90         int      `json:"count_90"`
	Count95         int      `json:"count_95"`
	TilesWith10Plus int      `json:"tiles_with_10_plus"`
	FinalCoverage   float64  `json:"final_coverage"`
	Rationale       string   `json:"rationale"`
}

type DatasetStats struct {
	Positives int      `json:"positives"`
	Negatives int      `json:"negatives"`
	Defaulted int      `json:"defaulted"`
	Features  []string `json:"features"`
	TrainRows int      `json:"train_rows"`
	TestRows  int      `json:"test_rows"`
}

type ModelMetrics struct {
	TrainAUC   float64            `json:"train_auc"`
	TestAUC    float64            `json:"test_auc"`
	CVAUC      []float64          `json:"cv_auc"`
	CVMean     float64            `json:"cv_mean"`
	CVStd      float64            `json:"cv_std"`
	Importance map[string]float64 `json:"importance,omitempty"`
}

// Output kinds recorded in Checkpoint.Outputs.
const (
	OutputModel      = "model"
	OutputCheckpoint = "checkpoint"
	OutputHotspots   = "hotspots"
	OutputNarrative  = "narrative"
	OutputMetrics    = "metrics"
	OutputMap        = "map"
)

// Checkpoint is the run record written at the end of a run.
type Checkpoint struct {
	RunID        uuid.UUID         `json:"run_id"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Backend      string            `json:"backend"`
	Tiles        TileSelection     `json:"tiles"`
	Dataset      DatasetStats      `json:"dataset"`
	Metrics      ModelMetrics      `json:"metrics"`
	HotspotCount int               `json:"hotspot_count"`
	Outputs      map[string]string `json:"outputs,omitempty"`
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	RunID        uuid.UUID `json:"run_id" db:"run_id"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	FinishedAt   time.Time `json:"finished_at" db:"finished_at"`
	Backend      string    `json:"backend" db:"backend"`
	TestAUC      float64   `json:"test_auc" db:"test_auc"`
	HotspotCount int       `json:"hotspot_count" db:"hotspot_count"`
}
