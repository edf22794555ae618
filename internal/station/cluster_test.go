package station_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/station"
)

func TestClusterStations_Singleton(t *testing.T) {
	stations := []station.Station{
		{ID: "lone", Lat: 3.139, Lng: 101.6869, AQI: 55},
	}

	clusters := station.ClusterStations(stations, station.DefaultClusterConfig())

	require.Len(t, clusters, 1)
	assert.Equal(t, 1, clusters[0].Count)
	// A cluster of one has its member's own coordinates as centroid.
	assert.Equal(t, 3.139, clusters[0].CenterLat)
	assert.Equal(t, 101.6869, clusters[0].CenterLng)
	assert.Equal(t, 55.0, clusters[0].AverageAQI)
}

func TestClusterStations_GroupsNearby(t *testing.T) {
	stations := []station.Station{
		{ID: "a", Lat: 3.1390, Lng: 101.6869, AQI: 40},
		{ID: "b", Lat: 3.1395, Lng: 101.6875, AQI: 60}, // ~80 m from a
		{ID: "c", Lat: 3.2500, Lng: 101.8000, AQI: 90}, // far away
	}

	clusters := station.ClusterStations(stations, station.ClusterConfig{SizeKm: 1.0})

	require.Len(t, clusters, 2)
	assert.Equal(t, 2, clusters[0].Count)
	assert.Equal(t, 50.0, clusters[0].AverageAQI)
	assert.InDelta(t, (3.1390+3.1395)/2, clusters[0].CenterLat, 1e-9)
	assert.Equal(t, 1, clusters[1].Count)
}

func TestClusterStations_ZeroAQIMembersExcludedFromAverage(t *testing.T) {
	stations := []station.Station{
		{ID: "a", Lat: 3.1390, Lng: 101.6869, AQI: 80},
		{ID: "b", Lat: 3.1391, Lng: 101.6870, AQI: 0},
	}

	clusters := station.ClusterStations(stations, station.DefaultClusterConfig())

	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].Count)
	assert.Equal(t, 80.0, clusters[0].AverageAQI)
}

func TestClusterStations_OrderDependent(t *testing.T) {
	// Three stations in a row, each ~0.9 km from the next. Seeding from
	// either end yields different memberships; both are valid partitions.
	a := station.Station{ID: "a", Lat: 3.0000, Lng: 101.0}
	b := station.Station{ID: "b", Lat: 3.0081, Lng: 101.0}
	c := station.Station{ID: "c", Lat: 3.0162, Lng: 101.0}
	cfg := station.ClusterConfig{SizeKm: 1.0}

	forward := station.ClusterStations([]station.Station{a, b, c}, cfg)
	middle := station.ClusterStations([]station.Station{b, a, c}, cfg)

	require.Len(t, forward, 2) // {a,b} and {c}
	require.Len(t, middle, 1)  // b absorbs both neighbors
	assert.Equal(t, 3, middle[0].Count)
}

func TestClusterStations_Empty(t *testing.T) {
	assert.Empty(t, station.ClusterStations(nil, station.DefaultClusterConfig()))
}
