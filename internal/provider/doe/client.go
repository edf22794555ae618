// Package doe provides a client for the Department of Environment
// station index, a GIS-style feature service queried with a WHERE
// lat/lng predicate. It is the primary feed.
package doe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airsight/airsight/internal/geo"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/station"
)

const (
	// DefaultBaseURL is the base URL of the feature service layer.
	DefaultBaseURL = "https://gis.doe.gov.my/arcgis/rest/services/AQMS/stations/FeatureServer/0"

	// ProviderName identifies this feed; it matches station.SourceDOE so
	// registry health entries line up with service-side recording.
	ProviderName = string(station.SourceDOE)
)

// ClientConfig holds configuration for the DOE client.
type ClientConfig struct {
	// BaseURL is the feature service layer URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a DOE feature service client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new DOE client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Feature service response types.

type queryResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	Attributes featureAttributes `json:"attributes"`
}

type featureAttributes struct {
	StationID string  `json:"STATION_ID"`
	Location  string  `json:"LOCATION"`
	State     string  `json:"NEGERI"`
	Latitude  float64 `json:"LATITUDE"`
	Longitude float64 `json:"LONGITUDE"`
	API       float64 `json:"API"`
	Parameter string  `json:"PARAM"`
	Class     string  `json:"CLASS"`
	Datetime  int64   `json:"DATETIME"` // epoch milliseconds
}

// Source returns the source tag for stations from this feed.
func (c *Client) Source() station.Source {
	return station.SourceDOE
}

// FetchByRadius retrieves stations around center. The feature service
// only supports rectangular predicates, so this queries the bounding
// box covering the circle; callers needing circular semantics must
// post-filter by exact distance.
func (c *Client) FetchByRadius(ctx context.Context, center geo.Point, radiusKm float64, limit int) ([]station.Station, error) {
	return c.FetchByBounds(ctx, geo.BoundingBoxFromRadius(center, radiusKm), limit)
}

// FetchByBounds retrieves stations inside the bounding box.
func (c *Client) FetchByBounds(ctx context.Context, box geo.BoundingBox, limit int) ([]station.Station, error) {
	where := fmt.Sprintf(
		"LATITUDE >= %f AND LATITUDE <= %f AND LONGITUDE >= %f AND LONGITUDE <= %f",
		box.South, box.North, box.West, box.East,
	)

	params := url.Values{}
	params.Set("where", where)
	params.Set("outFields", "*")
	params.Set("f", "json")
	if limit > 0 {
		params.Set("resultRecordCount", fmt.Sprintf("%d", limit))
	}

	reqURL := c.baseURL + "/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from feature query", resp.StatusCode)
	}

	var result queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode feature query response: %w", err)
	}

	stations := make([]station.Station, 0, len(result.Features))
	for i := range result.Features {
		s := toStation(&result.Features[i].Attributes)
		if s.Validate() != nil {
			continue // drop malformed coordinates instead of failing the batch
		}
		stations = append(stations, s)
	}

	return stations, nil
}

// toStation converts feature attributes to a domain Station.
func toStation(a *featureAttributes) station.Station {
	s := station.Station{
		ID:       a.StationID,
		Name:     a.Location,
		Location: a.Location,
		State:    a.State,
		Country:  "Malaysia",
		Lat:      a.Latitude,
		Lng:      a.Longitude,
		AQI:      a.API,
		Source:   station.SourceDOE,
		Category: a.Class,
	}

	if a.Datetime > 0 {
		s.LastUpdated = time.UnixMilli(a.Datetime).UTC()
	}

	// The feed reports the dominant parameter tag, not its reading, so
	// it becomes the category when the class field is empty.
	if p := toPollutant(a.Parameter); p != "" && s.Category == "" {
		s.Category = string(p)
	}

	return s
}

// toPollutant normalizes the feed's dominant-parameter tag.
func toPollutant(param string) station.Pollutant {
	switch strings.ToUpper(strings.ReplaceAll(param, ".", "")) {
	case "PM25":
		return station.PollutantPM25
	case "NO2":
		return station.PollutantNO2
	case "CO":
		return station.PollutantCO
	case "O3":
		return station.PollutantO3
	case "SO2":
		return station.PollutantSO2
	default:
		return ""
	}
}
