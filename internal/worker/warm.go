package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/geo"
	"github.com/airsight/airsight/internal/station"
)

// WarmJob runs radius queries for the configured targets so that a
// user's first request in those areas is a cache hit rather than a cold
// upstream fetch.
type WarmJob struct {
	config  WarmConfig
	logger  zerolog.Logger
	service *station.Service
	metrics *WarmMetrics
}

// WarmMetrics tracks warm job statistics.
type WarmMetrics struct {
	mu sync.RWMutex

	TotalRuns      int64
	SuccessfulWarm int64
	FailedWarm     int64
	StationsSeen   int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config  WarmConfig
	Logger  zerolog.Logger
	Service *station.Service
}

// NewWarmJob creates a new cache warming job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultWarmConfig()
	}
	if config.RadiusKm <= 0 {
		config.RadiusKm = 15
	}
	if config.Limit <= 0 {
		config.Limit = 50
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &WarmJob{
		config:  config,
		logger:  cfg.Logger,
		service: cfg.Service,
		metrics: &WarmMetrics{},
	}
}

// WarmResult contains the result of one warm run.
type WarmResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalPoints  int
	Successful   int
	Failed       int
	StationsSeen int
	Errors       []WarmError
}

// WarmError represents an error during warming.
type WarmError struct {
	Point geo.Point
	Error string
}

// Run executes the warm job for all configured targets.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	startTime := time.Now()
	result := &WarmResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Float64("radius_km", j.config.RadiusKm).
		Msg("starting cache warm job")

	points := j.config.AllPoints()

	pointsChan := make(chan geo.Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.err == "" {
			result.Successful++
			result.StationsSeen += pr.stations
		} else {
			result.Failed++
			result.Errors = append(result.Errors, WarmError{Point: pr.point, Error: pr.err})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("stations_seen", result.StationsSeen).
		Msg("cache warm job completed")

	return result
}

type pointResult struct {
	point    geo.Point
	stations int
	err      string
}

func (j *WarmJob) warmWorker(ctx context.Context, points <-chan geo.Point, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.warmPoint(ctx, point)
		}
	}
}

func (j *WarmJob) warmPoint(ctx context.Context, point geo.Point) pointResult {
	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	result, err := j.service.FetchByRadius(pointCtx, point, j.config.RadiusKm, station.QueryOptions{
		Limit: j.config.Limit,
	})
	if err != nil {
		return pointResult{point: point, err: err.Error()}
	}
	return pointResult{point: point, stations: len(result.Stations)}
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulWarm += int64(result.Successful)
	j.metrics.FailedWarm += int64(result.Failed)
	j.metrics.StationsSeen += int64(result.StationsSeen)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		SuccessfulWarm:  j.metrics.SuccessfulWarm,
		FailedWarm:      j.metrics.FailedWarm,
		StationsSeen:    j.metrics.StationsSeen,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_warms":  m.SuccessfulWarm,
		"failed_warms":      m.FailedWarm,
		"stations_seen":     m.StationsSeen,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
