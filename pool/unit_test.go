package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_RespawnPreservesOrdering(t *testing.T) {
	opts := append(fastPoll(), WithUnitCount(2), WithMaxJobsPerUnit(2))
	p, err := New[int](context.Background(), opts...)
	require.NoError(t, err)

	for i := range 12 {
		require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
			if err := ctxSleep(ctx, 10*time.Millisecond); err != nil {
				return 0, err
			}
			return i + 1, nil
		}))
	}

	results, err := p.Wait()
	require.NoError(t, err)
	require.Len(t, results, 12)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, i+1, res.Value)
	}
}

func TestUnit_RespawnSpawnsFreshUnits(t *testing.T) {
	opts := append(fastPoll(), WithUnitCount(1), WithMaxJobsPerUnit(2))
	p, err := New[int](context.Background(), opts...)
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		ids = map[int]struct{}{}
	)
	for range 6 {
		require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
			p.mu.Lock()
			for _, u := range p.units {
				mu.Lock()
				ids[u.id] = struct{}{}
				mu.Unlock()
			}
			p.mu.Unlock()
			return 0, nil
		}))
	}

	_, err = p.Wait()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// 6 jobs at 2 per unit forces at least two replacements
	assert.GreaterOrEqual(t, len(ids), 3, "expected respawned unit ids, saw %v", ids)
}

func TestUnit_DeathAfterRespawnIsStillFatal(t *testing.T) {
	// Exit status checks must track the live unit set: the unit that dies
	// here only exists because two predecessors already retired.
	opts := append(fastPoll(), WithUnitCount(1), WithMaxJobsPerUnit(2))
	p, err := New[int](context.Background(), opts...)
	require.NoError(t, err)

	for i := range 8 {
		require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
			if i == 5 {
				return 0, Exit(7)
			}
			return i, nil
		}))
	}

	_, err = p.Wait()
	var dead *UnitTerminatedError
	require.ErrorAs(t, err, &dead)
	assert.Equal(t, 7, dead.Code)
	assert.Equal(t, 2, dead.UnitID, "job 5 runs on the third unit (ids 0,1,2)")
}

func TestUnit_RetirementIsNotATermination(t *testing.T) {
	// A retired unit exits with status 0 and must never trip the dead-unit
	// scan, even transiently between retirement and replacement.
	opts := append(fastPoll(), WithUnitCount(1), WithMaxJobsPerUnit(1))
	p, err := New[int](context.Background(), opts...)
	require.NoError(t, err)

	for i := range 10 {
		require.NoError(t, p.Submit(func(ctx context.Context) (int, error) {
			return i, nil
		}))
	}

	results, err := p.Wait()
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestRunJob_PanicCapturesStack(t *testing.T) {
	_, err := runJob(context.Background(), func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Contains(t, err.Error(), "stack trace")
}

func TestExit_CoercesZeroStatus(t *testing.T) {
	var exitErr *ExitError
	require.ErrorAs(t, Exit(0), &exitErr)
	assert.Equal(t, 1, exitErr.Code, "status 0 means success and cannot signal death")

	require.ErrorAs(t, Exit(42), &exitErr)
	assert.Equal(t, 42, exitErr.Code)
}
