package pool

import (
	"fmt"
	"time"
)

// resultTracker owns the ordered pending-handle sequence during Wait and
// runs the polling/failure protocol. It is the only suspension point of the
// controller: a single cooperative loop that blocks in bounded increments.
type resultTracker[R any] struct {
	pool         *Pool[R]
	pollInterval time.Duration
	timeout      time.Duration
}

func newResultTracker[R any](p *Pool[R]) *resultTracker[R] {
	return &resultTracker[R]{
		pool:         p,
		pollInterval: p.conf.pollInterval,
		timeout:      p.conf.perJobTimeout,
	}
}

// awaitAll resolves every handle in submission order, including handles
// submitted while earlier ones were being awaited, and reports how many it
// resolved. Per-job callbacks fire here, best-effort, once the handle they
// belong to is ready.
func (t *resultTracker[R]) awaitAll() (int, error) {
	for i := 0; ; i++ {
		t.pool.mu.Lock()
		if i >= len(t.pool.handles) {
			t.pool.mu.Unlock()
			return i, nil
		}
		h := t.pool.handles[i]
		t.pool.mu.Unlock()

		if err := t.await(h); err != nil {
			return i, err
		}

		if h.err != nil {
			if h.onError != nil {
				h.onError(h.err)
			}
		} else if h.onSuccess != nil {
			h.onSuccess(h.value)
		}
	}
}

// await blocks until the handle resolves or a fatal condition is observed.
//
// Each loop iteration first inspects every currently-known unit's exit
// status (a nonzero status from ANY unit aborts the wait, even when that
// unit was not running the awaited job), then waits up to the poll interval
// for readiness. The timeout clock is scoped to this handle's wait segment:
// it starts here and is never carried over from previous handles, so a batch
// of many short jobs can exceed the timeout in aggregate as long as no
// single segment stalls past it.
func (t *resultTracker[R]) await(h *pendingHandle[R]) error {
	segmentStart := time.Now()
	for {
		if h.ready() {
			return nil
		}

		if u := t.pool.deadUnit(); u != nil {
			code, _ := u.exitStatus()
			return &UnitTerminatedError{UnitID: u.id, Code: code}
		}

		timer := time.NewTimer(t.pollInterval)
		select {
		case <-h.done:
			timer.Stop()
			return nil
		case <-t.pool.ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: interrupted: %w", namespace, t.pool.ctx.Err())
		case <-timer.C:
		}

		if time.Since(segmentStart) > t.timeout {
			return &JobTimeoutError{Index: h.index, Timeout: t.timeout}
		}
	}
}
