package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ctxSleep waits for d or until the job's context is cancelled, whichever
// comes first. Mirrors how real jobs are expected to honor forced teardown.
func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestTracker_UnitDeathFailsWholeBatch(t *testing.T) {
	opts := append(fastPoll(), WithUnitCount(4))
	p, err := New[int](context.Background(), opts...)
	require.NoError(t, err)

	for i := range 12 {
		require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
			if i == 5 {
				return 0, Exit(3)
			}
			if err := ctxSleep(ctx, 20*time.Millisecond); err != nil {
				return 0, err
			}
			return i + 1, nil
		}))
	}

	results, err := p.Wait()
	assert.Nil(t, results, "no partial results on fatal failure")

	var fatal *AbnormalPoolTerminationError
	require.ErrorAs(t, err, &fatal)

	var dead *UnitTerminatedError
	require.ErrorAs(t, err, &dead)
	assert.Equal(t, 3, dead.Code)
}

func TestTracker_UnitDeathDetectedWhileAwaitingUnrelatedJob(t *testing.T) {
	// One unit dies immediately; the job being awaited runs on another unit
	// and would resolve fine. Fail-fast must still trip.
	opts := append(fastPoll(), WithUnitCount(2))
	p, err := New[int](context.Background(), opts...)
	require.NoError(t, err)

	require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
		if err := ctxSleep(ctx, 200*time.Millisecond); err != nil {
			return 0, err
		}
		return 1, nil
	}))
	require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
		return 0, Exit(9)
	}))

	_, err = p.Wait()
	var dead *UnitTerminatedError
	require.ErrorAs(t, err, &dead)
	assert.Equal(t, 9, dead.Code)
}

func TestTracker_SingleSlowSegmentTimesOut(t *testing.T) {
	p, err := New[int](context.Background(),
		WithUnitCount(4),
		WithPollInterval(20*time.Millisecond),
		WithPerJobTimeout(150*time.Millisecond),
	)
	require.NoError(t, err)

	for i := range 12 {
		require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
			if i == 3 {
				if err := ctxSleep(ctx, 600*time.Millisecond); err != nil {
					return 0, err
				}
			}
			return i, nil
		}))
	}

	results, err := p.Wait()
	assert.Nil(t, results)

	var fatal *AbnormalPoolTerminationError
	require.ErrorAs(t, err, &fatal)

	var timeout *JobTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 3, timeout.Index)
}

func TestTracker_TimeoutIsPerSegmentNotPerBatch(t *testing.T) {
	// 12 jobs x 60ms over 4 units: total wall time (~180ms) exceeds the
	// 150ms timeout, but no single wait segment does, so the batch succeeds.
	p, err := New[int](context.Background(),
		WithUnitCount(4),
		WithPollInterval(20*time.Millisecond),
		WithPerJobTimeout(150*time.Millisecond),
	)
	require.NoError(t, err)

	start := time.Now()
	for range 12 {
		require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
			if err := ctxSleep(ctx, 60*time.Millisecond); err != nil {
				return 0, err
			}
			return 1, nil
		}))
	}

	results, err := p.Wait()
	require.NoError(t, err)
	require.Len(t, results, 12)
	assert.Greater(t, time.Since(start), 150*time.Millisecond,
		"batch must outlive the per-job timeout for this test to mean anything")
	for _, res := range results {
		assert.Equal(t, 1, res.Value)
	}
}

func TestTracker_InterruptAbortsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := append(fastPoll(), WithUnitCount(2))
	p, err := New[int](ctx, opts...)
	require.NoError(t, err)

	for range 4 {
		require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
			if err := ctxSleep(ctx, 2*time.Second); err != nil {
				return 0, err
			}
			return 1, nil
		}))
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results, err := p.Wait()
	assert.Nil(t, results)

	var fatal *AbnormalPoolTerminationError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "interrupt must abort promptly")
}

func TestTracker_UnitDeathBeforeWait(t *testing.T) {
	opts := append(fastPoll(), WithUnitCount(1))
	p, err := New[int](context.Background(), opts...)
	require.NoError(t, err)

	require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
		return 0, Exit(2)
	}))
	// second job can never run: its only unit is dead
	require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
		return 1, nil
	}))

	// give the unit time to die before Wait starts polling
	require.Eventually(t, func() bool { return p.deadUnit() != nil },
		time.Second, 5*time.Millisecond)

	_, err = p.Wait()
	var dead *UnitTerminatedError
	require.ErrorAs(t, err, &dead)
	assert.Equal(t, 2, dead.Code)
}

func TestTracker_FatalWrapsSingleKind(t *testing.T) {
	opts := append(fastPoll(), WithUnitCount(1))
	p, err := New[int](context.Background(), opts...)
	require.NoError(t, err)

	require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
		return 0, Exit(1)
	}))

	_, err = p.Wait()
	require.Error(t, err)

	// the boundary surfaces exactly one kind; the cause stays reachable
	var fatal *AbnormalPoolTerminationError
	require.ErrorAs(t, err, &fatal)
	assert.NotNil(t, fatal.Cause)
	assert.False(t, errors.Is(err, ErrPoolClosed))
}
