package genai

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/earthwork-discovery/internal/domain"
	"go.uber.org/zap"
)

// NoHotspotsText is the whole report of a run without hotspots.
const NoHotspotsText = "No hotspots identified for analysis"

// Narrator writes the report for the top hotspot of a run.
type Narrator struct {
	generator TextGenerator
	logger    *zap.Logger
}

// NewNarrator accepts a nil generator; every report is then the fallback.
func NewNarrator(generator TextGenerator, logger *zap.Logger) *Narrator {
	return &Narrator{generator: generator, logger: logger}
}

// Narrate never fails. hotspots must be ranked, best first.
func (n *Narrator) Narrate(ctx context.Context, hotspots []domain.Hotspot, auc float64) string {
	if len(hotspots) == 0 {
		return NoHotspotsText
	}
	top := hotspots[0]

	if n.generator == nil {
		n.logger.Warn("Text generation not configured, using fallback narrative")
		return Fallback(top, auc, "text generation not configured")
	}

	text, err := n.generator.Generate(ctx, Prompt(top, auc))
	if err != nil {
		n.logger.Error("Narrative generation failed, using fallback", zap.Error(err))
		return Fallback(top, auc, err.Error())
	}
	n.logger.Info("Narrative generated")
	return text
}

// FormatCoordinate renders a lat/lon pair with hemisphere letters.
func FormatCoordinate(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.6f°%s, %.6f°%s", math.Abs(lat), ns, math.Abs(lon), ew)
}

// Prompt asks for a two-part assessment of the hotspot.
func Prompt(top domain.Hotspot, auc float64) string {
	var b strings.Builder
	b.WriteString("A remote sensing model flagged a candidate pre-Columbian earthwork.\n\n")
	b.WriteString("Discovery details:\n")
	fmt.Fprintf(&b, "- Location: %s\n", FormatCoordinate(top.Lat, top.Lon))
	fmt.Fprintf(&b, "- Model confidence: %.1f%% (%s)\n", top.MeanProb*100, top.Confidence)
	fmt.Fprintf(&b, "- Model performance: ROC AUC %.3f\n", auc)
	fmt.Fprintf(&b, "- Supporting grid points: %d\n", top.Count)
	if top.Deforested {
		b.WriteString("- The location lies inside mapped deforestation.\n")
	}
	b.WriteString("- Evidence: bare-earth elevation anomalies (FABDEM), multi-year vegetation ")
	b.WriteString("stability from NASA HLS, spectral soil indices from Sentinel-2.\n\n")
	b.WriteString("Write a two paragraph assessment for an expedition team:\n")
	b.WriteString("1. Site significance: how convincing is the evidence and what kind of structure could it be?\n")
	b.WriteString("2. Research priority: does it warrant a field visit, and which survey methods fit?\n")
	return b.String()
}

// Fallback is the templated report used when generation fails. note names
// the reason and is appended to the text.
func Fallback(top domain.Hotspot, auc float64, note string) string {
	var b strings.Builder
	b.WriteString("ARCHAEOLOGICAL INTERPRETATION\n\n")
	b.WriteString("Discovery analysis\n")
	fmt.Fprintf(&b, "Location: %s\n", FormatCoordinate(top.Lat, top.Lon))
	fmt.Fprintf(&b, "Model confidence: %.1f%%\n", top.MeanProb*100)
	fmt.Fprintf(&b, "Model performance: ROC AUC %.3f\n\n", auc)
	b.WriteString("Site significance\n")
	b.WriteString("The classifier combines topographic irregularities, stable vegetation over time and ")
	b.WriteString("soil-sensitive spectral signatures. Together they resemble the known geoglyphs used for training.\n\n")
	b.WriteString("Research priority\n")
	fmt.Fprintf(&b, "With a confidence of %.1f%% the location is a candidate for field verification.\n\n", top.MeanProb*100)
	b.WriteString("Recommended methods\n")
	b.WriteString("- Ground-penetrating radar survey\n")
	b.WriteString("- High-resolution drone mapping\n")
	b.WriteString("- Soil composition analysis\n")
	b.WriteString("- Excavation planning\n")
	if note != "" {
		fmt.Fprintf(&b, "\nNote: %s\n", note)
	}
	return b.String()
}
