// Package visualization renders the discovery map as a standalone HTML
// document built on Leaflet.
package visualization

import (
	"fmt"
	"html/template"
	"io"

	"github.com/earthwork-discovery/internal/domain"
	"go.uber.org/zap"
)

// DefaultCenter is used when no elevation tile is available.
var DefaultCenter = domain.Point{Lat: -10.0, Lon: -67.0}

const (
	ColorHigh   = "red"
	ColorMedium = "orange"
	ColorLow    = "yellow"
	ColorKnown  = "cyan"
)

// MarkerColor buckets a hotspot by its mean probability.
func MarkerColor(meanProb float64) string {
	switch {
	case meanProb > 0.7:
		return ColorHigh
	case meanProb > 0.5:
		return ColorMedium
	default:
		return ColorLow
	}
}

// Prediction is one scored grid point of the heat layer.
type Prediction struct {
	domain.Point
	Probability float64 `json:"probability"`
}

// MapInput is everything drawn on the map. Bounds, when set, centers the
// view on the processed area.
type MapInput struct {
	Bounds      *domain.BoundingBox
	Predictions []Prediction
	Sites       []domain.KnownSite
	Hotspots    []domain.Hotspot
}

type heatPoint [3]float64

type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Color string  `json:"color"`
	Popup string  `json:"popup"`
}

type mapView struct {
	Center   [2]float64
	Zoom     int
	Heat     []heatPoint
	Sites    []marker
	Hotspots []marker
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Earthwork discovery map</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://unpkg.com/leaflet.heat@0.2.0/dist/leaflet-heat.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var center = {{.Center}};
var heat = {{.Heat}};
var sites = {{.Sites}};
var hotspots = {{.Hotspots}};

var map = L.map('map').setView(center, {{.Zoom}});
var osm = L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
var satellite = L.tileLayer('https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}', {
  attribution: 'Google Satellite'
});

var overlays = {};
if (heat.length > 0) {
  overlays['Archaeological Probability'] = L.heatLayer(heat, {radius: 15, blur: 10}).addTo(map);
}

var known = L.layerGroup();
sites.forEach(function (s) {
  L.circleMarker([s.lat, s.lon], {radius: 4, color: s.color, fill: true}).bindPopup(s.popup).addTo(known);
});
overlays['Known Geoglyphs'] = known;

var discoveries = L.layerGroup().addTo(map);
hotspots.forEach(function (h) {
  L.circleMarker([h.lat, h.lon], {radius: 8, color: h.color, fillColor: h.color, fillOpacity: 0.8})
    .bindPopup(h.popup, {maxWidth: 300}).addTo(discoveries);
});
overlays['New Discoveries'] = discoveries;

L.control.layers({'OpenStreetMap': osm, 'Satellite': satellite}, overlays).addTo(map);
L.control.scale().addTo(map);
</script>
</body>
</html>
`))

// MapRenderer writes discovery maps.
type MapRenderer struct {
	logger *zap.Logger
}

func NewMapRenderer(logger *zap.Logger) *MapRenderer {
	return &MapRenderer{logger: logger}
}

// Render writes the map document to w. Known sites start hidden.
func (r *MapRenderer) Render(w io.Writer, in MapInput) error {
	view := mapView{
		Center: [2]float64{DefaultCenter.Lat, DefaultCenter.Lon},
		Zoom:   12,
		Heat:   make([]heatPoint, 0, len(in.Predictions)),
		Sites:  make([]marker, 0, len(in.Sites)),
	}
	if in.Bounds != nil {
		c := in.Bounds.Center()
		view.Center = [2]float64{c.Lat, c.Lon}
	} else {
		r.logger.Warn("No tile bounds for the map, using default center")
	}

	for _, p := range in.Predictions {
		view.Heat = append(view.Heat, heatPoint{p.Lat, p.Lon, p.Probability})
	}
	for _, s := range in.Sites {
		view.Sites = append(view.Sites, marker{
			Lat:   s.Lat,
			Lon:   s.Lon,
			Color: ColorKnown,
			Popup: "Known Geoglyph Site",
		})
	}
	view.Hotspots = hotspotMarkers(in.Hotspots)

	if err := mapTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	r.logger.Info("Discovery map rendered",
		zap.Int("heat_points", len(view.Heat)),
		zap.Int("known_sites", len(view.Sites)),
		zap.Int("hotspots", len(view.Hotspots)),
	)
	return nil
}

func hotspotMarkers(hotspots []domain.Hotspot) []marker {
	out := make([]marker, 0, len(hotspots))
	for i, h := range hotspots {
		rank := h.Rank
		if rank == 0 {
			rank = i + 1
		}
		out = append(out, marker{
			Lat:   h.Lat,
			Lon:   h.Lon,
			Color: MarkerColor(h.MeanProb),
			Popup: fmt.Sprintf(
				"<h4>Discovery #%d</h4><p><b>Coordinates:</b> %.6f, %.6f</p><p><b>Confidence:</b> %.2f%%</p>",
				rank, h.Lat, h.Lon, h.MeanProb*100),
		})
	}
	return out
}
