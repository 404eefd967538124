package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/earthwork-discovery/internal/features"
)

const (
	hlsPrefix        = "nasa-hls-"
	copernicusPrefix = "copernicus-"
)

// hlsBands are the HLS band files read per scene.
var hlsBands = []string{
	features.BandBlue, features.BandGreen, features.BandRed, features.BandRedEdge1,
	features.BandNIR, features.BandSWIR1, features.BandSWIR2,
}

// copernicusBands pairs band codes with the resolution suffix of their file.
var copernicusBands = []struct{ code, res string }{
	{features.BandBlue, "10m"},
	{features.BandGreen, "10m"},
	{features.BandRed, "10m"},
	{features.BandNIR, "10m"},
	{features.BandRedEdge1, "20m"},
	{features.BandSWIR1, "20m"},
	{features.BandSWIR2, "20m"},
}

// HLSIdentifier maps a scene directory such as
// nasa-hls-s30-t20lkp-2023181t143729 to HLS.S30.T20LKP.2023181T143729.
func HLSIdentifier(dir string) string {
	id := strings.Replace(dir, hlsPrefix, "HLS.", 1)
	return strings.ToUpper(strings.ReplaceAll(id, "-", "."))
}

// HLSBandPath is the GeoTIFF of one band inside an HLS scene directory.
func HLSBandPath(root, dir, band string) string {
	return filepath.Join(root, strings.ToLower(dir), fmt.Sprintf("%s.v2.0.%s.tif", HLSIdentifier(dir), band))
}

// CopernicusIdentifier maps copernicus-t20lkp-20230705 to T20LKP_20230705.
func CopernicusIdentifier(dir string) string {
	id := strings.Replace(dir, copernicusPrefix, "", 1)
	return strings.ToUpper(strings.ReplaceAll(id, "-", "_"))
}

func CopernicusBandPath(root, dir, band, res string) string {
	return filepath.Join(root, strings.ToLower(dir), fmt.Sprintf("%s_%s_%s.jp2", CopernicusIdentifier(dir), band, res))
}

// TemporalLabel is the first seven characters of the last dash-separated
// token of a scene directory name.
func TemporalLabel(dir string) string {
	parts := strings.Split(dir, "-")
	last := parts[len(parts)-1]
	if len(last) > 7 {
		return last[:7]
	}
	return last
}

// Prioritize keeps the scene directories mentioning one of the priority
// tiles, grouped in priority order. A directory is listed once, under the
// first tile it matches.
func Prioritize(dirs, tiles []string) []string {
	var out []string
	seen := make(map[string]bool, len(dirs))
	for _, t := range tiles {
		needle := strings.ToLower(t)
		for _, d := range dirs {
			if !seen[d] && strings.Contains(strings.ToLower(d), needle) {
				out = append(out, d)
				seen[d] = true
			}
		}
	}
	return out
}

// sceneDirs lists the subdirectories of root starting with prefix.
func sceneDirs(root, prefix string) ([]string, error) {
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}
