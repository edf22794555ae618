package models

import "github.com/airsight/airsight/internal/cache"

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status: upstream feeds and
// the cache layer.
type SystemStatus struct {
	Status HealthStatus `json:"status"`
	Time   Timestamp    `json:"time"`
	Feeds  []FeedStatus `json:"feeds"`
	Cache  cache.Stats  `json:"cache"`
}

// FeedStatus represents the status of one upstream feed.
type FeedStatus struct {
	Feed          string       `json:"feed"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	LastError     *string      `json:"lastError,omitempty"`
}
