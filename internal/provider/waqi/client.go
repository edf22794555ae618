// Package waqi provides a client for the World Air Quality Index map
// feed. It is the fallback source: station lists with a full per-station
// pollutant breakdown, consulted when the primary feed is unavailable
// or insufficient.
package waqi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airsight/airsight/internal/geo"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/station"
)

const (
	// DefaultBaseURL is the base URL for the WAQI API.
	DefaultBaseURL = "https://api.waqi.info"

	// ProviderName identifies this feed; it matches station.SourceWAQI so
	// registry health entries line up with service-side recording.
	ProviderName = string(station.SourceWAQI)
)

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// Token is the API access token.
	Token string

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

// Client is a WAQI API client.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
}

// NewClient creates a new WAQI client.
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
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

// API response types.

type boundsResponse struct {
	Status string        `json:"status"`
	Data   []stationData `json:"data"`
}

type stationData struct {
	UID     int64            `json:"uid"`
	AQI     string           `json:"aqi"` // numeric string, or "-" when absent
	Lat     float64          `json:"lat"`
	Lon     float64          `json:"lon"`
	Station stationMeta      `json:"station"`
	IAQI    map[string]iaqiV `json:"iaqi"`
}

type stationMeta struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

type iaqiV struct {
	V float64 `json:"v"`
}

// Source returns the source tag for stations from this feed.
func (c *Client) Source() station.Source {
	return station.SourceWAQI
}

// FetchByRadius retrieves stations around center via the covering
// bounding box; circular semantics require caller-side post-filtering.
func (c *Client) FetchByRadius(ctx context.Context, center geo.Point, radiusKm float64, limit int) ([]station.Station, error) {
	return c.FetchByBounds(ctx, geo.BoundingBoxFromRadius(center, radiusKm), limit)
}

// FetchByBounds retrieves stations inside the bounding box.
func (c *Client) FetchByBounds(ctx context.Context, box geo.BoundingBox, limit int) ([]station.Station, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f,%f,%f", box.South, box.West, box.North, box.East))
	params.Set("networks", "all")
	if c.token != "" {
		params.Set("token", c.token)
	}

	reqURL := c.baseURL + "/v2/map/bounds?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch map bounds: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from map bounds endpoint", resp.StatusCode)
	}

	var result boundsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode map bounds response: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("map bounds request failed with status %q", result.Status)
	}

	stations := make([]station.Station, 0, len(result.Data))
	for i := range result.Data {
		if limit > 0 && len(stations) >= limit {
			break
		}
		s := toStation(&result.Data[i])
		if s.Validate() != nil {
			continue
		}
		stations = append(stations, s)
	}

	return stations, nil
}

// toStation converts API station data to a domain Station.
func toStation(d *stationData) station.Station {
	s := station.Station{
		ID:       "waqi-" + strconv.FormatInt(d.UID, 10),
		Name:     d.Station.Name,
		Location: d.Station.Name,
		Lat:      d.Lat,
		Lng:      d.Lon,
		Source:   station.SourceWAQI,
	}

	// "-" marks stations without a current composite reading.
	if aqi, err := strconv.ParseFloat(d.AQI, 64); err == nil && aqi > 0 {
		s.AQI = aqi
	}

	if t, err := time.Parse(time.RFC3339, d.Station.Time); err == nil {
		s.LastUpdated = t
	}

	if readings := toPollutants(d.IAQI); len(readings) > 0 {
		s.Pollutants = readings
	}

	return s
}

// toPollutants extracts the supported subset of the per-station
// breakdown.
func toPollutants(iaqi map[string]iaqiV) map[station.Pollutant]float64 {
	known := []station.Pollutant{
		station.PollutantPM25,
		station.PollutantNO2,
		station.PollutantCO,
		station.PollutantO3,
		station.PollutantSO2,
	}

	readings := make(map[station.Pollutant]float64)
	for _, p := range known {
		if v, ok := iaqi[string(p)]; ok {
			readings[p] = v.V
		}
	}
	return readings
}
