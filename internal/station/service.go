package station

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/cache"
	"github.com/airsight/airsight/internal/debounce"
	"github.com/airsight/airsight/internal/geo"
	"github.com/airsight/airsight/internal/provider/resilience"
)

// Query errors.
var (
	ErrInvalidRadius = errors.New("radius must be positive")
	ErrNoAdapters    = errors.New("at least one adapter is required")
)

// singleStationRadiusKm is the search radius for point lookups.
const singleStationRadiusKm = 0.1

// Adapter normalizes one upstream feed into Stations tagged with its
// source identity.
type Adapter interface {
	Source() Source
	FetchByRadius(ctx context.Context, center geo.Point, radiusKm float64, limit int) ([]Station, error)
	FetchByBounds(ctx context.Context, box geo.BoundingBox, limit int) ([]Station, error)
}

// ServiceConfig holds configuration for the query service.
type ServiceConfig struct {
	// Adapters in priority order: the first is the primary source,
	// later entries are fallbacks.
	Adapters []Adapter

	// Logger for service operations.
	Logger zerolog.Logger

	// Registry receives per-feed success/failure signals. Optional.
	Registry *resilience.Registry

	// CacheTTL is how long adapter results are cached (default: 5 minutes).
	CacheTTL time.Duration

	// CacheMaxEntries is the cache sweep ceiling (default: cache.DefaultMaxEntries).
	CacheMaxEntries int

	// AdapterTimeout bounds each upstream call so one slow feed cannot
	// stall an aggregate query (default: 8 seconds).
	AdapterTimeout time.Duration

	// DefaultLimit caps results when a query does not specify one
	// (default: 50).
	DefaultLimit int

	// Merge tunes deduplication and the fallback short-circuit.
	Merge MergeConfig

	// Cluster tunes map-display clustering.
	Cluster ClusterConfig

	// Debounce tunes same-key call coalescing.
	Debounce debounce.Config
}

// Service answers radius, bounding-box, and single-point station
// queries over the configured feeds. It owns its cache and debounce
// state; construct one per process and pass it by handle.
//
// The service is a pure latency layer: nothing it holds survives a
// restart, and a restart is always safe.
type Service struct {
	adapters       []Adapter
	priority       []Source
	logger         zerolog.Logger
	registry       *resilience.Registry
	cache          *cache.Store[[]Station]
	debouncer      *debounce.Debouncer[[]Station]
	cacheTTL       time.Duration
	adapterTimeout time.Duration
	defaultLimit   int
	merge          MergeConfig
	cluster        ClusterConfig
}

// NewService creates a query service from the given configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if len(cfg.Adapters) == 0 {
		return nil, ErrNoAdapters
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.AdapterTimeout == 0 {
		cfg.AdapterTimeout = 8 * time.Second
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = 50
	}
	cfg.Merge = cfg.Merge.withDefaults()
	if cfg.Cluster.SizeKm <= 0 {
		cfg.Cluster = DefaultClusterConfig()
	}

	priority := make([]Source, len(cfg.Adapters))
	for i, a := range cfg.Adapters {
		priority[i] = a.Source()
	}

	var cacheOpts []cache.Option[[]Station]
	if cfg.CacheMaxEntries > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxEntries[[]Station](cfg.CacheMaxEntries))
	}

	return &Service{
		adapters:       cfg.Adapters,
		priority:       priority,
		logger:         cfg.Logger,
		registry:       cfg.Registry,
		cache:          cache.New(cacheOpts...),
		debouncer:      debounce.New[[]Station](cfg.Debounce),
		cacheTTL:       cfg.CacheTTL,
		adapterTimeout: cfg.AdapterTimeout,
		defaultLimit:   cfg.DefaultLimit,
		merge:          cfg.Merge,
		cluster:        cfg.Cluster,
	}, nil
}

// QueryOptions tunes a single query.
type QueryOptions struct {
	// Limit caps the result size; zero uses the service default.
	Limit int

	// Debounce coalesces this call with concurrent same-key calls.
	Debounce bool
}

// Result is an area query response: the merged, filtered station list
// plus its derived summary.
type Result struct {
	Stations []Station
	Summary  AreaSummary
}

// FetchByRadius returns stations within radiusKm of center, nearest
// first, with the area summary.
//
// The upstream fetch covers the bounding box of the circle, so results
// are post-filtered by exact haversine distance; every returned station
// satisfies Distance <= radiusKm.
func (s *Service) FetchByRadius(ctx context.Context, center geo.Point, radiusKm float64, opts QueryOptions) (*Result, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		return nil, ErrInvalidRadius
	}
	limit := s.limit(opts)

	primary := s.adapters[0]
	bySource := map[Source][]Station{
		primary.Source(): s.fetch(ctx, primary, radiusQuery, center, radiusKm, geo.BoundingBox{}, limit, opts.Debounce),
	}

	if s.merge.NeedFallback(len(bySource[primary.Source()]), limit) {
		for _, fallback := range s.adapters[1:] {
			bySource[fallback.Source()] = s.fetch(ctx, fallback, radiusQuery, center, radiusKm, geo.BoundingBox{}, limit, opts.Debounce)
		}
	}

	merged := Merge(s.priority, bySource, limit, s.merge)

	// Mandatory circle filter over the rectangular superset.
	filtered := make([]Station, 0, len(merged))
	for i := range merged {
		d := geo.HaversineKm(center, merged[i].Point())
		if d <= radiusKm {
			st := merged[i]
			st.Distance = d
			filtered = append(filtered, st)
		}
	}

	sort.SliceStable(filtered, func(a, b int) bool {
		return filtered[a].Distance < filtered[b].Distance
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	return &Result{
		Stations: filtered,
		Summary:  Summarize(filtered, center.Lat, center.Lng, radiusKm),
	}, nil
}

// FetchByBounds returns stations inside the bounding box with a summary
// centered on the box centroid. Box membership is the inclusion rule;
// there is no distance filter.
func (s *Service) FetchByBounds(ctx context.Context, box geo.BoundingBox, opts QueryOptions) (*Result, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	limit := s.limit(opts)

	primary := s.adapters[0]
	bySource := map[Source][]Station{
		primary.Source(): s.fetch(ctx, primary, boundsQuery, geo.Point{}, 0, box, limit, opts.Debounce),
	}

	// Fallbacks are consulted only while the primary left the request
	// unsatisfied.
	if len(bySource[primary.Source()]) < limit {
		for _, fallback := range s.adapters[1:] {
			bySource[fallback.Source()] = s.fetch(ctx, fallback, boundsQuery, geo.Point{}, 0, box, limit, opts.Debounce)
		}
	}

	merged := Merge(s.priority, bySource, limit, s.merge)
	center := box.Center()

	return &Result{
		Stations: merged,
		Summary:  Summarize(merged, center.Lat, center.Lng, box.CoveringRadiusKm()),
	}, nil
}

// GetSingleStation returns the monitoring station closest to center
// within a 0.1 km search radius, or ErrNoStationFound.
//
// Unlike area queries, where an empty result is a valid outcome, a
// point lookup with no station is an error.
func (s *Service) GetSingleStation(ctx context.Context, center geo.Point) (*Station, error) {
	result, err := s.FetchByRadius(ctx, center, singleStationRadiusKm, QueryOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(result.Stations) == 0 {
		return nil, ErrNoStationFound
	}
	return &result.Stations[0], nil
}

// ClusterByRadius runs a radius query and groups the results for map
// display. sizeKm <= 0 uses the configured cluster size.
func (s *Service) ClusterByRadius(ctx context.Context, center geo.Point, radiusKm, sizeKm float64, opts QueryOptions) ([]Cluster, error) {
	result, err := s.FetchByRadius(ctx, center, radiusKm, opts)
	if err != nil {
		return nil, err
	}

	cfg := s.cluster
	if sizeKm > 0 {
		cfg.SizeKm = sizeKm
	}
	return ClusterStations(result.Stations, cfg), nil
}

// CacheStats exposes cache counters for ops surfaces.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache drops every cached adapter result.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

func (s *Service) limit(opts QueryOptions) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	return s.defaultLimit
}

type queryKind string

const (
	radiusQuery queryKind = "radius"
	boundsQuery queryKind = "bounds"
)

// fetch runs one adapter call behind the cache and, when requested, the
// debouncer. Upstream failures are absorbed into an empty result set:
// the pipeline deliberately treats "zero results" and "source down"
// identically, and the failure is visible only through the log and the
// feed registry.
func (s *Service) fetch(ctx context.Context, adapter Adapter, kind queryKind, center geo.Point, radiusKm float64, box geo.BoundingBox, limit int, debounced bool) []Station {
	src := string(adapter.Source())

	var key string
	switch kind {
	case radiusQuery:
		key = cache.Key(src, string(kind), []float64{center.Lat, center.Lng, radiusKm}, limit)
	case boundsQuery:
		key = cache.Key(src, string(kind), []float64{box.North, box.South, box.East, box.West}, limit)
	}

	doFetch := func() ([]Station, error) {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}

		callCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
		defer cancel()

		var stations []Station
		var err error
		switch kind {
		case radiusQuery:
			stations, err = adapter.FetchByRadius(callCtx, center, radiusKm, limit)
		case boundsQuery:
			stations, err = adapter.FetchByBounds(callCtx, box, limit)
		}
		if err != nil {
			if s.registry != nil {
				s.registry.RecordFailure(src, err)
			}
			return nil, err
		}

		if s.registry != nil {
			s.registry.RecordSuccess(src)
		}
		s.cache.Set(key, stations, s.cacheTTL)
		return stations, nil
	}

	var stations []Station
	var err error
	if debounced {
		stations, err = s.debouncer.Do(ctx, key, doFetch)
	} else {
		stations, err = doFetch()
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("source", src).
			Str("kind", string(kind)).
			Msg("upstream fetch failed, continuing with empty result set")
		return nil
	}
	return stations
}
