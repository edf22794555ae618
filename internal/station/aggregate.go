package station

import "math"

// AverageAQI returns the mean AQI over stations with a positive reading.
// Stations with a zero or missing AQI are ignored. Returns 0 when no
// station has a valid reading.
func AverageAQI(stations []Station) float64 {
	var sum float64
	var n int
	for i := range stations {
		if stations[i].AQI > 0 {
			sum += stations[i].AQI
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Summarize computes the AreaSummary for a station list around the given
// center. TotalStations counts every station, including those without a
// valid AQI; the min/max/average cover only the positive-AQI subset.
func Summarize(stations []Station, centerLat, centerLng, radiusKm float64) AreaSummary {
	highest := math.Inf(-1)
	lowest := math.Inf(1)
	var sum float64
	var valid int

	for i := range stations {
		aqi := stations[i].AQI
		if aqi <= 0 {
			continue
		}
		sum += aqi
		valid++
		if aqi > highest {
			highest = aqi
		}
		if aqi < lowest {
			lowest = aqi
		}
	}

	summary := AreaSummary{
		CenterLat:     centerLat,
		CenterLng:     centerLng,
		RadiusKm:      radiusKm,
		TotalStations: len(stations),
	}

	// The ±Inf sentinels never leave this function.
	if valid > 0 {
		summary.AverageAQI = sum / float64(valid)
		summary.HighestAQI = highest
		summary.LowestAQI = lowest
	}

	return summary
}
