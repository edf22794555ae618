package station

import "math"

// MergeConfig tunes source-priority deduplication.
type MergeConfig struct {
	// Epsilon is the coordinate delta (degrees) under which two
	// stations from different sources are treated as the same physical
	// station. The default 0.001° (~111 m) is a coarse grid-cell test,
	// not a geodesic one; stations straddling the epsilon boundary can
	// merge or split either way.
	Epsilon float64

	// ShortCircuit skips the fallback fetch entirely when the primary
	// source alone satisfies ShortCircuitFraction of the requested
	// limit. Trades completeness for latency.
	ShortCircuit bool

	// ShortCircuitFraction is the fill ratio above which the fallback
	// is skipped. Default 0.5.
	ShortCircuitFraction float64
}

// DefaultMergeConfig returns the default merge settings.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		Epsilon:              0.001,
		ShortCircuit:         true,
		ShortCircuitFraction: 0.5,
	}
}

func (c MergeConfig) withDefaults() MergeConfig {
	if c.Epsilon <= 0 {
		c.Epsilon = 0.001
	}
	if c.ShortCircuitFraction <= 0 {
		c.ShortCircuitFraction = 0.5
	}
	return c
}

// NeedFallback reports whether the fallback source should be queried
// given the primary result count. With short-circuiting disabled the
// fallback is always queried (up to the limit check by the caller).
func (c MergeConfig) NeedFallback(primaryCount, limit int) bool {
	c = c.withDefaults()
	if !c.ShortCircuit {
		return true
	}
	if limit <= 0 {
		return primaryCount == 0
	}
	return float64(primaryCount) < c.ShortCircuitFraction*float64(limit)
}

// Merge combines per-source result sets into one deduplicated list.
//
// Sources are visited in priority order. Every station from the first
// non-empty priority level is kept unconditionally; a lower-priority
// station is dropped iff an already-kept station lies within Epsilon on
// both axes. Lower-priority stations are appended only while the result
// is under limit (limit <= 0 means unlimited).
//
// Merge is a pure function of (priority, bySource, limit, cfg).
func Merge(priority []Source, bySource map[Source][]Station, limit int, cfg MergeConfig) []Station {
	cfg = cfg.withDefaults()

	var merged []Station
	for rank, src := range priority {
		for _, s := range bySource[src] {
			if rank > 0 {
				if limit > 0 && len(merged) >= limit {
					return merged
				}
				if isDuplicate(merged, s, cfg.Epsilon) {
					continue
				}
			}
			merged = append(merged, s)
		}
	}
	return merged
}

// isDuplicate reports whether candidate falls within eps of any kept
// station on both axes.
func isDuplicate(kept []Station, candidate Station, eps float64) bool {
	for i := range kept {
		if math.Abs(kept[i].Lat-candidate.Lat) < eps &&
			math.Abs(kept[i].Lng-candidate.Lng) < eps {
			return true
		}
	}
	return false
}
