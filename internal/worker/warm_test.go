package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/geo"
	"github.com/airsight/airsight/internal/station"
	"github.com/airsight/airsight/internal/worker"
)

// countingAdapter serves a fixed station list and counts fetches.
type countingAdapter struct {
	calls    atomic.Int32
	stations []station.Station
}

func (a *countingAdapter) Source() station.Source { return station.SourceDOE }

func (a *countingAdapter) FetchByRadius(_ context.Context, _ geo.Point, _ float64, _ int) ([]station.Station, error) {
	a.calls.Add(1)
	return a.stations, nil
}

func (a *countingAdapter) FetchByBounds(_ context.Context, _ geo.BoundingBox, _ int) ([]station.Station, error) {
	a.calls.Add(1)
	return a.stations, nil
}

func newTestService(t *testing.T, adapter station.Adapter) *station.Service {
	t.Helper()
	svc, err := station.NewService(station.ServiceConfig{
		Adapters: []station.Adapter{adapter},
		CacheTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestDefaultWarmConfig(t *testing.T) {
	cfg := worker.DefaultWarmConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 15.0, cfg.RadiusKm)
	assert.NotEmpty(t, cfg.Targets)
}

func TestDefaultWarmTargets(t *testing.T) {
	targets := worker.DefaultWarmTargets()

	assert.GreaterOrEqual(t, len(targets), 5)

	var klangValley *worker.WarmTarget
	for i := range targets {
		if targets[i].Name == "Klang Valley" {
			klangValley = &targets[i]
			break
		}
	}
	require.NotNil(t, klangValley, "Klang Valley should be in targets")
	assert.Equal(t, 1, klangValley.Priority)
	assert.GreaterOrEqual(t, len(klangValley.Points), 3)
}

func TestWarmConfig_AllPoints(t *testing.T) {
	cfg := worker.WarmConfig{
		Targets: []worker.WarmTarget{
			{Name: "A", Points: []geo.Point{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}},
			{Name: "B", Points: []geo.Point{{Lat: 3, Lng: 3}}},
		},
	}

	assert.Len(t, cfg.AllPoints(), 3)
	assert.Equal(t, 3, cfg.TotalPoints())
}

func TestWarmJob_Run(t *testing.T) {
	adapter := &countingAdapter{
		stations: []station.Station{
			{ID: "CA0016", Lat: 3.14, Lng: 101.69, AQI: 62, Source: station.SourceDOE},
		},
	}

	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Targets: []worker.WarmTarget{
				{Name: "Test", Points: []geo.Point{{Lat: 3.139, Lng: 101.6869}}},
			},
			Concurrency: 1,
			Timeout:     time.Second,
		},
		Logger:  zerolog.Nop(),
		Service: newTestService(t, adapter),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.TotalPoints)
	assert.Equal(t, 1, result.Successful)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 1, result.StationsSeen)
	assert.Greater(t, result.Duration, time.Duration(0))
	assert.Equal(t, int32(1), adapter.calls.Load())
}

func TestWarmJob_Run_PopulatesCache(t *testing.T) {
	adapter := &countingAdapter{}
	svc := newTestService(t, adapter)

	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Targets: []worker.WarmTarget{
				{Name: "Test", Points: []geo.Point{{Lat: 3.139, Lng: 101.6869}}},
			},
			RadiusKm:    15,
			Limit:       50,
			Concurrency: 1,
			Timeout:     time.Second,
		},
		Logger:  zerolog.Nop(),
		Service: svc,
	})

	_ = job.Run(context.Background())

	// A user query over the same area must now be a cache hit.
	_, err := svc.FetchByRadius(context.Background(), geo.Point{Lat: 3.139, Lng: 101.6869}, 15, station.QueryOptions{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int32(1), adapter.calls.Load())
}

func TestWarmJob_Run_WithConcurrency(t *testing.T) {
	points := make([]geo.Point, 10)
	for i := range points {
		points[i] = geo.Point{Lat: 3.0 + float64(i)*0.1, Lng: 101.0 + float64(i)*0.1}
	}

	adapter := &countingAdapter{}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Targets:     []worker.WarmTarget{{Name: "Test", Points: points}},
			Concurrency: 3,
			Timeout:     time.Second,
		},
		Logger:  zerolog.Nop(),
		Service: newTestService(t, adapter),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 10, result.TotalPoints)
	assert.Equal(t, 10, result.Successful)
}

func TestWarmJob_Run_ContextCancellation(t *testing.T) {
	points := make([]geo.Point, 100)
	for i := range points {
		points[i] = geo.Point{Lat: 3.0 + float64(i)*0.01, Lng: 101.0 + float64(i)*0.01}
	}

	adapter := &countingAdapter{}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Targets:     []worker.WarmTarget{{Name: "Test", Points: points}},
			Concurrency: 1,
			Timeout:     100 * time.Millisecond,
		},
		Logger:  zerolog.Nop(),
		Service: newTestService(t, adapter),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	// Should complete even if not all points were processed.
	assert.NotNil(t, result)
}

func TestWarmJob_GetMetrics(t *testing.T) {
	adapter := &countingAdapter{}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Targets:     []worker.WarmTarget{{Name: "Test", Points: []geo.Point{{Lat: 3.1, Lng: 101.7}}}},
			Concurrency: 1,
			Timeout:     time.Second,
		},
		Logger:  zerolog.Nop(),
		Service: newTestService(t, adapter),
	})

	_ = job.Run(context.Background())

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.NotZero(t, metrics.LastRunAt)
	assert.Greater(t, metrics.LastRunDuration, time.Duration(0))
}

func TestWarmJob_MetricsSnapshot(t *testing.T) {
	adapter := &countingAdapter{}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Targets:     []worker.WarmTarget{{Name: "Test", Points: []geo.Point{{Lat: 3.1, Lng: 101.7}}}},
			Concurrency: 1,
			Timeout:     time.Second,
		},
		Logger:  zerolog.Nop(),
		Service: newTestService(t, adapter),
	})

	_ = job.Run(context.Background())

	snapshot := job.MetricsSnapshot()
	assert.Contains(t, snapshot, "total_runs")
	assert.Contains(t, snapshot, "successful_warms")
	assert.Contains(t, snapshot, "failed_warms")
	assert.Contains(t, snapshot, "last_run_at")
	assert.Contains(t, snapshot, "last_run_duration")
}

func TestNewWarmJob_DefaultConfig(t *testing.T) {
	adapter := &countingAdapter{}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config:  worker.WarmConfig{}, // empty, should fall back to defaults
		Logger:  zerolog.Nop(),
		Service: newTestService(t, adapter),
	})

	metrics := job.GetMetrics()
	assert.Equal(t, int64(0), metrics.TotalRuns)
}
