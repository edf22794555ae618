package debounce_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/debounce"
)

func TestDo_SingleCall(t *testing.T) {
	d := debounce.New[int](debounce.Config{Window: 10 * time.Millisecond})

	got, err := d.Do(context.Background(), "k", func() (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Zero(t, d.Pending())
}

func TestDo_ConcurrentCallsShareOneExecution(t *testing.T) {
	d := debounce.New[int](debounce.Config{Window: 50 * time.Millisecond})

	var executions atomic.Int32
	fn := func() (int, error) {
		executions.Add(1)
		return 7, nil
	}

	const callers = 10
	results := make([]int, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Do(context.Background(), "k", fn)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), executions.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 7, results[i])
	}
}

func TestDo_DistinctKeysExecuteIndependently(t *testing.T) {
	d := debounce.New[string](debounce.Config{Window: 10 * time.Millisecond})

	var wg sync.WaitGroup
	var a, b string
	wg.Add(2)
	go func() {
		defer wg.Done()
		a, _ = d.Do(context.Background(), "ka", func() (string, error) { return "a", nil })
	}()
	go func() {
		defer wg.Done()
		b, _ = d.Do(context.Background(), "kb", func() (string, error) { return "b", nil })
	}()
	wg.Wait()

	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)
}

func TestDo_MaxWaitForcesExecution(t *testing.T) {
	d := debounce.New[int](debounce.Config{
		Window:  40 * time.Millisecond,
		MaxWait: 100 * time.Millisecond,
	})

	var executions atomic.Int32
	fn := func() (int, error) {
		executions.Add(1)
		return 1, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := d.Do(context.Background(), "k", fn)
		assert.NoError(t, err)
	}()

	// Keep resetting the window past maxWait; execution must still
	// happen around the deadline.
	start := time.Now()
	deadline := start.Add(250 * time.Millisecond)
	for time.Now().Before(deadline) && executions.Load() == 0 {
		go d.Do(context.Background(), "k", fn) //nolint:errcheck // hammering the key
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first caller never unblocked")
	}
	assert.Equal(t, int32(1), executions.Load())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDo_ContextCancelUnblocksCaller(t *testing.T) {
	d := debounce.New[int](debounce.Config{Window: time.Second, MaxWait: 2 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Do(ctx, "k", func() (int, error) { return 0, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_ErrorFansOutToAllWaiters(t *testing.T) {
	d := debounce.New[int](debounce.Config{Window: 30 * time.Millisecond})

	wantErr := assert.AnError
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Do(context.Background(), "k", func() (int, error) {
				return 0, wantErr
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, wantErr)
	}
}

func TestDo_NewCycleAfterExecution(t *testing.T) {
	d := debounce.New[int](debounce.Config{Window: 10 * time.Millisecond})

	var executions atomic.Int32
	fn := func() (int, error) {
		executions.Add(1)
		return 0, nil
	}

	_, err := d.Do(context.Background(), "k", fn)
	require.NoError(t, err)
	_, err = d.Do(context.Background(), "k", fn)
	require.NoError(t, err)

	assert.Equal(t, int32(2), executions.Load())
}
