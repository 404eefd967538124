package filesystem

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/earthwork-discovery/internal/pkg/utils"
	"go.uber.org/zap"
)

// kmlContainer covers kml, Document and Folder elements alike.
type kmlContainer struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Documents  []kmlContainer `xml:"Document"`
	Folders    []kmlContainer `xml:"Folder"`
}

type kmlPlacemark struct {
	Name  string `xml:"name"`
	Point *struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
}

type siteRepository struct {
	path   string
	logger *zap.Logger
}

// NewSiteRepository reads known sites from the placemarks of a KML file.
func NewSiteRepository(path string, logger *zap.Logger) repository.SiteRepository {
	return &siteRepository{path: path, logger: logger}
}

func (r *siteRepository) LoadSites(ctx context.Context) ([]domain.KnownSite, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open sites: %w", err)
	}
	defer f.Close()

	sites, skipped, err := ParseKML(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	if skipped > 0 {
		r.logger.Warn("Skipped placemarks without valid point coordinates",
			zap.Int("skipped", skipped))
	}
	r.logger.Info("Known sites loaded",
		zap.String("path", r.path),
		zap.Int("sites", len(sites)),
	)
	return sites, nil
}

// ParseKML returns point placemarks at any folder depth. A container's own
// placemarks are numbered before those of nested documents and folders.
// skipped counts placemarks without a usable point.
func ParseKML(rd io.Reader) (sites []domain.KnownSite, skipped int, err error) {
	var root kmlContainer
	if err := xml.NewDecoder(rd).Decode(&root); err != nil {
		return nil, 0, err
	}

	var walk func(c *kmlContainer)
	walk = func(c *kmlContainer) {
		for _, pm := range c.Placemarks {
			if pm.Point == nil {
				skipped++
				continue
			}
			p, ok := parseCoordinates(pm.Point.Coordinates)
			if !ok {
				skipped++
				continue
			}
			sites = append(sites, domain.KnownSite{ID: len(sites), Name: strings.TrimSpace(pm.Name), Point: p})
		}
		for i := range c.Documents {
			walk(&c.Documents[i])
		}
		for i := range c.Folders {
			walk(&c.Folders[i])
		}
	}
	walk(&root)
	return sites, skipped, nil
}

// parseCoordinates reads the first "lon,lat[,alt]" tuple.
func parseCoordinates(s string) (domain.Point, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return domain.Point{}, false
	}
	parts := strings.Split(fields[0], ",")
	if len(parts) < 2 {
		return domain.Point{}, false
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return domain.Point{}, false
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return domain.Point{}, false
	}
	if !utils.ValidateCoordinates(lat, lon) {
		return domain.Point{}, false
	}
	return domain.Point{Lat: lat, Lon: lon}, true
}
