// Package station provides the aggregated monitoring-station domain:
// source-priority merging, area statistics, display clustering, and the
// query service that fronts the upstream feeds.
package station

import (
	"errors"
	"time"

	"github.com/airsight/airsight/internal/geo"
)

// Service errors.
var (
	ErrNoStationFound = errors.New("no station found near point")
)

// Source identifies an upstream feed. Sources are merged in an explicit
// priority order; see DefaultPriority.
type Source string

const (
	// SourceDOE is the primary feed: the Department of Environment
	// GIS station index.
	SourceDOE Source = "DOE"

	// SourceWAQI is the fallback feed: the World Air Quality Index
	// project, used when the primary is unavailable or insufficient.
	SourceWAQI Source = "WAQI"
)

// DefaultPriority orders sources for merging; earlier wins duplicates.
func DefaultPriority() []Source {
	return []Source{SourceDOE, SourceWAQI}
}

// Pollutant identifies a pollutant reading.
type Pollutant string

const (
	PollutantPM25 Pollutant = "pm25"
	PollutantNO2  Pollutant = "no2"
	PollutantCO   Pollutant = "co"
	PollutantO3   Pollutant = "o3"
	PollutantSO2  Pollutant = "so2"
)

// Station is one monitoring point normalized from an upstream feed.
//
// AQI is a composite index; zero means no reading. Distance is the
// kilometers from a query center and is populated only inside
// radius-query results, never cached or persisted.
type Station struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Location    string                `json:"location,omitempty"`
	City        string                `json:"city,omitempty"`
	State       string                `json:"state,omitempty"`
	Country     string                `json:"country,omitempty"`
	Region      string                `json:"region,omitempty"`
	Lat         float64               `json:"lat"`
	Lng         float64               `json:"lng"`
	AQI         float64               `json:"aqi,omitempty"`
	Pollutants  map[Pollutant]float64 `json:"pollutants,omitempty"`
	LastUpdated time.Time             `json:"lastUpdated,omitzero"`
	Source      Source                `json:"source"`
	Distance    float64               `json:"distance,omitempty"`
	Category    string                `json:"category,omitempty"`
}

// Point returns the station coordinate.
func (s *Station) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lng: s.Lng}
}

// Validate checks the coordinate invariants.
func (s *Station) Validate() error {
	return s.Point().Validate()
}

// AreaSummary is the derived statistics block for an area query. It is
// always recomputed from a station list, never mutated independently.
type AreaSummary struct {
	CenterLat     float64 `json:"centerLat"`
	CenterLng     float64 `json:"centerLng"`
	RadiusKm      float64 `json:"radiusKm"`
	TotalStations int     `json:"totalStations"`
	AverageAQI    float64 `json:"averageAQI"`
	HighestAQI    float64 `json:"highestAQI"`
	LowestAQI     float64 `json:"lowestAQI"`
}

// Cluster groups nearby stations for map display. Derived per query,
// not persisted.
type Cluster struct {
	CenterLat  float64   `json:"centerLat"`
	CenterLng  float64   `json:"centerLng"`
	Count      int       `json:"count"`
	AverageAQI float64   `json:"averageAQI"`
	Stations   []Station `json:"stations"`
}
