package station

import "github.com/airsight/airsight/internal/geo"

// ClusterConfig tunes map-display clustering.
type ClusterConfig struct {
	// SizeKm is the haversine radius within which stations collapse
	// into one cluster. Default 1.0 km.
	SizeKm float64
}

// DefaultClusterConfig returns the default cluster settings.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{SizeKm: 1.0}
}

// ClusterStations groups nearby stations for map-pin decluttering using
// a single greedy pass: each unprocessed station seeds a cluster that
// absorbs every remaining station within SizeKm of the seed.
//
// The partition depends on input order. Re-ordering the input can move
// stations across cluster boundaries; that is acceptable for display
// and is part of the contract, not a defect.
func ClusterStations(stations []Station, cfg ClusterConfig) []Cluster {
	if cfg.SizeKm <= 0 {
		cfg.SizeKm = DefaultClusterConfig().SizeKm
	}

	processed := make([]bool, len(stations))
	clusters := make([]Cluster, 0, len(stations))

	for i := range stations {
		if processed[i] {
			continue
		}
		processed[i] = true
		members := []Station{stations[i]}
		seed := stations[i].Point()

		for j := i + 1; j < len(stations); j++ {
			if processed[j] {
				continue
			}
			if geo.HaversineKm(seed, stations[j].Point()) <= cfg.SizeKm {
				processed[j] = true
				members = append(members, stations[j])
			}
		}

		clusters = append(clusters, newCluster(members))
	}

	return clusters
}

// newCluster builds a cluster whose centroid is the arithmetic mean of
// member coordinates.
func newCluster(members []Station) Cluster {
	var latSum, lngSum float64
	for i := range members {
		latSum += members[i].Lat
		lngSum += members[i].Lng
	}
	n := float64(len(members))

	return Cluster{
		CenterLat:  latSum / n,
		CenterLng:  lngSum / n,
		Count:      len(members),
		AverageAQI: AverageAQI(members),
		Stations:   members,
	}
}
