package doe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/geo"
	"github.com/airsight/airsight/internal/provider/doe"
	"github.com/airsight/airsight/internal/station"
)

const queryPayload = `{
	"features": [
		{"attributes": {
			"STATION_ID": "CA0016",
			"LOCATION": "Cheras, Kuala Lumpur",
			"NEGERI": "Kuala Lumpur",
			"LATITUDE": 3.1063,
			"LONGITUDE": 101.7177,
			"API": 62,
			"PARAM": "PM2.5",
			"DATETIME": 1717171200000
		}},
		{"attributes": {
			"STATION_ID": "CA0054",
			"LOCATION": "Batu Muda, Kuala Lumpur",
			"NEGERI": "Kuala Lumpur",
			"LATITUDE": 3.2126,
			"LONGITUDE": 101.6804,
			"API": 58,
			"PARAM": "PM2.5",
			"DATETIME": 1717171200000
		}},
		{"attributes": {
			"STATION_ID": "BROKEN",
			"LOCATION": "Bad coordinates",
			"LATITUDE": 181.0,
			"LONGITUDE": 500.0,
			"API": 10
		}}
	]
}`

func TestFetchByBounds(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		gotQuery = r.URL.Query().Get("where")
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		assert.Equal(t, "25", r.URL.Query().Get("resultRecordCount"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(queryPayload))
	}))
	defer server.Close()

	client := doe.NewClient(doe.ClientConfig{BaseURL: server.URL})
	box := geo.BoundingBox{North: 3.3, South: 3.0, East: 101.8, West: 101.6}

	stations, err := client.FetchByBounds(context.Background(), box, 25)
	require.NoError(t, err)

	// The WHERE predicate carries the box edges.
	assert.Contains(t, gotQuery, "LATITUDE >= 3.0")
	assert.Contains(t, gotQuery, "LONGITUDE <= 101.8")

	// Malformed coordinates are dropped, valid stations normalized.
	require.Len(t, stations, 2)
	first := stations[0]
	assert.Equal(t, "CA0016", first.ID)
	assert.Equal(t, "Cheras, Kuala Lumpur", first.Name)
	assert.Equal(t, station.SourceDOE, first.Source)
	assert.Equal(t, 62.0, first.AQI)
	assert.Equal(t, "Kuala Lumpur", first.State)
	assert.Equal(t, string(station.PollutantPM25), first.Category)
	assert.Equal(t, time.UnixMilli(1717171200000).UTC(), first.LastUpdated)
}

func TestFetchByRadius_QueriesCoveringBox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		where := r.URL.Query().Get("where")
		// The radius is translated into a rectangular predicate.
		assert.Contains(t, where, "LATITUDE")
		assert.Contains(t, where, "LONGITUDE")
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer server.Close()

	client := doe.NewClient(doe.ClientConfig{BaseURL: server.URL})
	stations, err := client.FetchByRadius(context.Background(), geo.Point{Lat: 3.139, Lng: 101.6869}, 10, 50)

	require.NoError(t, err)
	assert.Empty(t, stations)
}

func TestFetchByBounds_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := doe.NewClient(doe.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient, // no retries, fail fast
	})

	_, err := client.FetchByBounds(context.Background(), geo.BoundingBox{North: 1, South: 0, East: 1, West: 0}, 10)
	assert.Error(t, err)
}

func TestFetchByBounds_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": [`))
	}))
	defer server.Close()

	client := doe.NewClient(doe.ClientConfig{BaseURL: server.URL})
	_, err := client.FetchByBounds(context.Background(), geo.BoundingBox{North: 1, South: 0, East: 1, West: 0}, 10)
	assert.ErrorContains(t, err, "decode")
}

func TestSource(t *testing.T) {
	client := doe.NewClient(doe.ClientConfig{})
	assert.Equal(t, station.SourceDOE, client.Source())
}
