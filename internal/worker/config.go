// Package worker provides background cache warming for AirSight.
package worker

import (
	"time"

	"github.com/airsight/airsight/internal/geo"
)

// WarmTarget represents a geographic region whose station data is kept
// warm in the query cache.
type WarmTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the query centers to warm. Typically the centers of
	// major population areas.
	Points []geo.Point

	// Priority determines warm order (lower = higher priority).
	Priority int
}

// WarmConfig holds configuration for the cache warming job.
type WarmConfig struct {
	// Targets are the geographic regions to warm.
	// If empty, uses DefaultWarmTargets.
	Targets []WarmTarget

	// RadiusKm is the query radius around each point.
	// Default: 15 km.
	RadiusKm float64

	// Limit is the per-query result cap.
	// Default: 50.
	Limit int

	// Concurrency is the number of concurrent warm queries.
	// Default: 3.
	Concurrency int

	// Timeout is the timeout for each warm query.
	// Default: 30 seconds.
	Timeout time.Duration
}

// DefaultWarmConfig returns the default warm configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Targets:     DefaultWarmTargets(),
		RadiusKm:    15,
		Limit:       50,
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultWarmTargets returns the default warm targets for Malaysia.
// Focuses on the Klang Valley conurbation and the major state capitals.
func DefaultWarmTargets() []WarmTarget {
	return []WarmTarget{
		{
			Name:     "Klang Valley",
			Priority: 1,
			Points: []geo.Point{
				{Lat: 3.1390, Lng: 101.6869}, // Kuala Lumpur city centre
				{Lat: 3.1073, Lng: 101.6067}, // Petaling Jaya
				{Lat: 3.0733, Lng: 101.5185}, // Shah Alam
				{Lat: 3.0449, Lng: 101.4456}, // Klang
				{Lat: 2.9264, Lng: 101.6964}, // Putrajaya
			},
		},
		{
			Name:     "Penang",
			Priority: 1,
			Points: []geo.Point{
				{Lat: 5.4141, Lng: 100.3288}, // George Town
				{Lat: 5.2945, Lng: 100.2640}, // Bayan Lepas
				{Lat: 5.3991, Lng: 100.4735}, // Seberang Perai
			},
		},
		{
			Name:     "Johor Bahru",
			Priority: 1,
			Points: []geo.Point{
				{Lat: 1.4927, Lng: 103.7414}, // Johor Bahru
				{Lat: 1.5533, Lng: 103.6393}, // Skudai
			},
		},
		{
			Name:     "Ipoh",
			Priority: 2,
			Points: []geo.Point{
				{Lat: 4.5975, Lng: 101.0901},
			},
		},
		{
			Name:     "Malacca",
			Priority: 2,
			Points: []geo.Point{
				{Lat: 2.1896, Lng: 102.2501},
			},
		},
		{
			Name:     "Kuantan",
			Priority: 3,
			Points: []geo.Point{
				{Lat: 3.8077, Lng: 103.3260},
			},
		},
		{
			Name:     "Kuching",
			Priority: 3,
			Points: []geo.Point{
				{Lat: 1.5535, Lng: 110.3593},
			},
		},
		{
			Name:     "Kota Kinabalu",
			Priority: 3,
			Points: []geo.Point{
				{Lat: 5.9804, Lng: 116.0735},
			},
		},
	}
}

// AllPoints returns all points from all targets.
func (c WarmConfig) AllPoints() []geo.Point {
	var points []geo.Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to warm.
func (c WarmConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
