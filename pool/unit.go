package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/MatthewThe/job-pool/relay"
)

// unitAlive marks a unit whose goroutine is still running. Any other value
// is the unit's terminal status: 0 for normal retirement, nonzero for an
// abnormal termination that must fail the whole batch.
const unitAlive = -1

// unit is one concurrently-running execution context. Units pull handles
// from the pool-owned dispatch channel, so job placement is decided by
// whichever unit is free, never per-unit. A unit is just a goroutine, which
// is what makes nesting unlimited: a job body may construct and drive its
// own pool without any daemon/non-daemon distinction.
type unit[R any] struct {
	id     int
	pool   *Pool[R]
	logger *zap.Logger
	served int
	exit   atomic.Int64
	done   chan struct{}
}

// exitStatus returns the unit's terminal status, or ok=false while it is
// still alive.
func (u *unit[R]) exitStatus() (int, bool) {
	code := u.exit.Load()
	if code == unitAlive {
		return 0, false
	}
	return int(code), true
}

// run is the unit's main loop. It exits on pool teardown, dispatcher
// shutdown, retirement after maxJobsPerUnit served jobs, or abnormal
// termination triggered by a job returning Exit.
func (u *unit[R]) run() {
	defer u.pool.unitWG.Done()
	defer close(u.done)

	u.logger.Debug("unit started")
	for {
		select {
		case <-u.pool.unitCtx.Done():
			u.exit.CompareAndSwap(unitAlive, 0)
			return
		case h, ok := <-u.pool.dispatch.out:
			if !ok {
				u.exit.CompareAndSwap(unitAlive, 0)
				return
			}
			if u.serve(h) {
				return
			}
			u.served++
			if limit := u.pool.conf.maxJobsPerUnit; limit > 0 && u.served >= limit {
				u.exit.CompareAndSwap(unitAlive, 0)
				u.logger.Debug("unit retiring", zap.Int("jobs_served", u.served))
				u.pool.replaceUnit(u)
				return
			}
		}
	}
}

// serve runs one job and resolves its handle. It reports true when the job
// terminated the unit: the exit status is recorded, the handle is left
// unresolved (the in-process analog of a worker process dying mid-job), and
// the caller must stop the unit loop.
func (u *unit[R]) serve(h *pendingHandle[R]) (terminated bool) {
	ctx := relay.NewContext(u.pool.unitCtx, u.logger)
	value, err := runJob(ctx, h.job)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		u.exit.CompareAndSwap(unitAlive, int64(exitErr.Code))
		u.logger.Warn("unit terminating abnormally",
			zap.Int("job", h.index),
			zap.Int("status", exitErr.Code),
		)
		return true
	}

	h.resolve(value, err)
	u.pool.jobDone()
	return false
}

// runJob executes a job with panic recovery. A panicking job resolves as an
// ordinary error at its index rather than killing the unit, matching how a
// raised exception inside a worker surfaces as a per-job failure.
func runJob[R any](ctx context.Context, job JobFunc[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%s: job panic: %v\nstack trace:\n%s", namespace, r, buf[:n])
		}
	}()

	return job(ctx)
}
