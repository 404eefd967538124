package domain

import (
	"time"

	"github.com/google/uuid"
)

// StreamDiscoveryDone is the default stream for run-completed events.
const StreamDiscoveryDone = "stream:discovery:done"

// RunCompletedEvent is published once a run has written its outputs.
type RunCompletedEvent struct {
	RunID          uuid.UUID `json:"run_id"`
	FinishedAt     time.Time `json:"finished_at"`
	TestAUC        float64   `json:"test_auc"`
	HotspotCount   int       `json:"hotspot_count"`
	TopHotspot     *Hotspot  `json:"top_hotspot,omitempty"`
	MapPath        string    `json:"map_path,omitempty"`
	CheckpointPath string    `json:"checkpoint_path,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// NewRunCompletedEvent builds the event from a checkpoint and its ranked hotspots.
func NewRunCompletedEvent(cp *Checkpoint, hotspots []Hotspot) RunCompletedEvent {
	ev := RunCompletedEvent{
		RunID:          cp.RunID,
		FinishedAt:     cp.FinishedAt,
		TestAUC:        cp.Metrics.TestAUC,
		HotspotCount:   len(hotspots),
		MapPath:        cp.Outputs[OutputMap],
		CheckpointPath: cp.Outputs[OutputCheckpoint],
	}
	if len(hotspots) > 0 {
		top := hotspots[0]
		ev.TopHotspot = &top
	}
	return ev
}

// StreamMessage is a raw entry read back from a Redis stream.
type StreamMessage struct {
	ID   string
	Data string
}
