package station_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/station"
)

func doeStation(id string, lat, lng float64) station.Station {
	return station.Station{ID: id, Lat: lat, Lng: lng, Source: station.SourceDOE}
}

func waqiStation(id string, lat, lng float64) station.Station {
	return station.Station{ID: id, Lat: lat, Lng: lng, Source: station.SourceWAQI}
}

func TestMerge_PrimaryKeptUnconditionally(t *testing.T) {
	bySource := map[station.Source][]station.Station{
		// Two primary stations inside each other's epsilon are both kept;
		// dedup applies to lower-priority sources only.
		station.SourceDOE: {
			doeStation("d1", 3.1390, 101.6869),
			doeStation("d2", 3.1391, 101.6869),
		},
	}

	merged := station.Merge(station.DefaultPriority(), bySource, 10, station.DefaultMergeConfig())
	assert.Len(t, merged, 2)
}

func TestMerge_FallbackDuplicateDropped(t *testing.T) {
	bySource := map[station.Source][]station.Station{
		station.SourceDOE: {
			doeStation("d1", 3.1390, 101.6869),
		},
		station.SourceWAQI: {
			waqiStation("w1", 3.13905, 101.68685), // within 0.001° on both axes
			waqiStation("w2", 3.2000, 101.7000),   // distinct
		},
	}

	merged := station.Merge(station.DefaultPriority(), bySource, 10, station.DefaultMergeConfig())

	require.Len(t, merged, 2)
	assert.Equal(t, "d1", merged[0].ID)
	assert.Equal(t, "w2", merged[1].ID)
}

func TestMerge_DuplicateNeedsBothAxes(t *testing.T) {
	bySource := map[station.Source][]station.Station{
		station.SourceDOE: {
			doeStation("d1", 3.1390, 101.6869),
		},
		station.SourceWAQI: {
			// Same latitude cell, longitude well outside epsilon.
			waqiStation("w1", 3.1390, 101.6980),
		},
	}

	merged := station.Merge(station.DefaultPriority(), bySource, 10, station.DefaultMergeConfig())
	assert.Len(t, merged, 2)
}

func TestMerge_NoEpsilonPairSurvives(t *testing.T) {
	bySource := map[station.Source][]station.Station{
		station.SourceDOE: {
			doeStation("d1", 3.10, 101.60),
			doeStation("d2", 3.20, 101.70),
		},
		station.SourceWAQI: {
			waqiStation("w1", 3.1001, 101.6001),
			waqiStation("w2", 3.2009, 101.7009),
			waqiStation("w3", 3.30, 101.80),
		},
	}
	cfg := station.DefaultMergeConfig()

	merged := station.Merge(station.DefaultPriority(), bySource, 10, cfg)

	// No kept primary/fallback pair may sit within epsilon on both axes.
	for i := range merged {
		for j := range merged {
			if i == j || merged[i].Source == merged[j].Source {
				continue
			}
			dLat := merged[i].Lat - merged[j].Lat
			dLng := merged[i].Lng - merged[j].Lng
			if dLat < 0 {
				dLat = -dLat
			}
			if dLng < 0 {
				dLng = -dLng
			}
			assert.False(t, dLat < cfg.Epsilon && dLng < cfg.Epsilon,
				"stations %s and %s are epsilon-duplicates", merged[i].ID, merged[j].ID)
		}
	}
	assert.Len(t, merged, 3)
}

func TestMerge_LimitStopsFallbackAppends(t *testing.T) {
	bySource := map[station.Source][]station.Station{
		station.SourceDOE: {
			doeStation("d1", 3.10, 101.60),
			doeStation("d2", 3.20, 101.70),
		},
		station.SourceWAQI: {
			waqiStation("w1", 3.30, 101.80),
			waqiStation("w2", 3.40, 101.90),
		},
	}

	merged := station.Merge(station.DefaultPriority(), bySource, 3, station.DefaultMergeConfig())

	require.Len(t, merged, 3)
	assert.Equal(t, station.SourceWAQI, merged[2].Source)
}

func TestMerge_CustomEpsilon(t *testing.T) {
	bySource := map[station.Source][]station.Station{
		station.SourceDOE:  {doeStation("d1", 3.1390, 101.6869)},
		station.SourceWAQI: {waqiStation("w1", 3.1420, 101.6890)},
	}

	// Under the default epsilon these are distinct stations.
	cfg := station.DefaultMergeConfig()
	assert.Len(t, station.Merge(station.DefaultPriority(), bySource, 10, cfg), 2)

	// A coarser grid collapses them.
	cfg.Epsilon = 0.01
	assert.Len(t, station.Merge(station.DefaultPriority(), bySource, 10, cfg), 1)
}

func TestNeedFallback(t *testing.T) {
	cfg := station.DefaultMergeConfig()

	// Primary already covers >= 50% of the limit: skip the fallback.
	assert.False(t, cfg.NeedFallback(5, 10))
	assert.False(t, cfg.NeedFallback(10, 10))

	// Under half full: fetch the fallback.
	assert.True(t, cfg.NeedFallback(4, 10))
	assert.True(t, cfg.NeedFallback(0, 10))

	// Short-circuiting disabled: always fetch.
	cfg.ShortCircuit = false
	assert.True(t, cfg.NeedFallback(10, 10))
}
