package handler

import (
	"net/http"
	"time"

	"github.com/airsight/airsight/internal/api/models"
	"github.com/airsight/airsight/internal/api/response"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/station"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	service   *station.Service
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, service *station.Service, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		service:   service,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
//
// The service holds no persistent state, so readiness only means the
// process is up and serving. A feed being down degrades results but
// does not make the process unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - feed and cache status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	overall := models.HealthStatusOK

	var feeds []models.FeedStatus
	for _, fh := range h.registry.AllHealth() {
		fs := models.FeedStatus{
			Feed:         fh.Name,
			Status:       models.HealthStatusOK,
			CircuitState: fh.CircuitState.String(),
		}
		if !fh.IsHealthy() {
			fs.Status = models.HealthStatusDegraded
			overall = models.HealthStatusDegraded
		}
		if fh.LastSuccessAt != nil {
			ts := models.Timestamp(*fh.LastSuccessAt)
			fs.LastSuccessAt = &ts
		}
		if fh.LastFailureAt != nil {
			ts := models.Timestamp(*fh.LastFailureAt)
			fs.LastFailureAt = &ts
		}
		if fh.LastError != "" {
			msg := fh.LastError
			fs.LastError = &msg
		}
		feeds = append(feeds, fs)
	}

	status := models.SystemStatus{
		Status: overall,
		Time:   models.Timestamp(time.Now()),
		Feeds:  feeds,
		Cache:  h.service.CacheStats(),
	}
	response.JSON(w, r, http.StatusOK, status)
}

// InvalidateCache handles POST /v1/ops/cache/invalidate - drops every
// cached feed result.
func (h *OpsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache()
	response.NoContent(w, r)
}
