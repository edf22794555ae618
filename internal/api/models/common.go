// Package models provides request and response models for the AirSight API.
package models

import (
	"time"

	"github.com/airsight/airsight/internal/station"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// StationsResponse is the envelope for area queries: the station list
// plus its derived summary. Success is true even when the area holds no
// stations; errors use the Problem shape instead.
type StationsResponse struct {
	Success bool                 `json:"success"`
	Data    []station.Station    `json:"data"`
	Summary *station.AreaSummary `json:"summary,omitempty"`
}

// StationResponse is the envelope for single-station lookups.
type StationResponse struct {
	Success bool             `json:"success"`
	Data    *station.Station `json:"data"`
}

// ClustersResponse is the envelope for cluster queries.
type ClustersResponse struct {
	Success bool              `json:"success"`
	Data    []station.Cluster `json:"data"`
}

// Timestamp is a helper type for time.Time with RFC3339 JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s := string(data[1 : len(data)-1])
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
