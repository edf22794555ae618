// Package handler provides HTTP handlers for the AirSight API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/airsight/airsight/internal/api/models"
	"github.com/airsight/airsight/internal/api/response"
	"github.com/airsight/airsight/internal/geo"
	"github.com/airsight/airsight/internal/station"
)

// StationsHandler handles station query endpoints.
type StationsHandler struct {
	service *station.Service
}

// NewStationsHandler creates a new StationsHandler.
func NewStationsHandler(service *station.Service) *StationsHandler {
	return &StationsHandler{service: service}
}

// QueryByRadius handles GET /v1/stations - stations within a radius of a
// point, nearest first, with an area summary.
func (h *StationsHandler) QueryByRadius(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	center := geo.Point{
		Lat: q.float("lat", true, 0),
		Lng: q.float("lng", true, 0),
	}
	radius := q.float("radius", false, 10)
	limit := q.int("limit", 0)
	if q.failed(w, r) {
		return
	}

	result, err := h.service.FetchByRadius(r.Context(), center, radius, station.QueryOptions{
		Limit:    limit,
		Debounce: true,
	})
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.StationsResponse{
		Success: true,
		Data:    result.Stations,
		Summary: &result.Summary,
	})
}

// QueryByBounds handles GET /v1/stations/bounds - stations inside a
// bounding box.
func (h *StationsHandler) QueryByBounds(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	box := geo.BoundingBox{
		North: q.float("north", true, 0),
		South: q.float("south", true, 0),
		East:  q.float("east", true, 0),
		West:  q.float("west", true, 0),
	}
	limit := q.int("limit", 0)
	if q.failed(w, r) {
		return
	}

	result, err := h.service.FetchByBounds(r.Context(), box, station.QueryOptions{
		Limit:    limit,
		Debounce: true,
	})
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.StationsResponse{
		Success: true,
		Data:    result.Stations,
		Summary: &result.Summary,
	})
}

// Nearest handles GET /v1/stations/nearest - the station closest to a
// point, or 404 when none is within range.
func (h *StationsHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	center := geo.Point{
		Lat: q.float("lat", true, 0),
		Lng: q.float("lng", true, 0),
	}
	if q.failed(w, r) {
		return
	}

	st, err := h.service.GetSingleStation(r.Context(), center)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.StationResponse{
		Success: true,
		Data:    st,
	})
}

// Clusters handles GET /v1/stations/clusters - stations within a radius
// grouped into map-display clusters.
func (h *StationsHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	center := geo.Point{
		Lat: q.float("lat", true, 0),
		Lng: q.float("lng", true, 0),
	}
	radius := q.float("radius", false, 10)
	size := q.float("size", false, 0)
	limit := q.int("limit", 0)
	if q.failed(w, r) {
		return
	}

	clusters, err := h.service.ClusterByRadius(r.Context(), center, radius, size, station.QueryOptions{
		Limit:    limit,
		Debounce: true,
	})
	if err != nil {
		writeQueryError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ClustersResponse{
		Success: true,
		Data:    clusters,
	})
}

// writeQueryError maps service errors to Problem responses.
func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, station.ErrNoStationFound):
		response.NotFound(w, r, "no monitoring station found near this location")
	case errors.Is(err, geo.ErrInvalidLatitude),
		errors.Is(err, geo.ErrInvalidLongitude),
		errors.Is(err, geo.ErrInvalidBoundingBox),
		errors.Is(err, station.ErrInvalidRadius):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		response.InternalError(w, r, "station query failed")
	}
}

// queryParser accumulates query parameter parsing errors so a response
// can report them all at once.
type queryParser struct {
	r      *http.Request
	errors []models.FieldError
}

func newQueryParser(r *http.Request) *queryParser {
	return &queryParser{r: r}
}

func (q *queryParser) float(name string, required bool, def float64) float64 {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		if required {
			q.errors = append(q.errors, models.FieldError{
				Field:   name,
				Message: "is required",
				Code:    "required",
			})
		}
		return def
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.errors = append(q.errors, models.FieldError{
			Field:   name,
			Message: "must be a number",
			Code:    "invalid",
		})
		return def
	}
	return v
}

func (q *queryParser) int(name string, def int) int {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return def
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		q.errors = append(q.errors, models.FieldError{
			Field:   name,
			Message: "must be a non-negative integer",
			Code:    "invalid",
		})
		return def
	}
	return v
}

// failed writes a 400 response if any parameter failed to parse.
func (q *queryParser) failed(w http.ResponseWriter, r *http.Request) bool {
	if len(q.errors) == 0 {
		return false
	}
	response.BadRequest(w, r, "invalid query parameters", q.errors)
	return true
}
