// Package pool is a worker-pool controller for batches of independently
// submitted jobs, built around a strict failure-detection and lifecycle
// protocol.
//
// The primary type is Pool[R]: a fixed set of concurrently running execution
// units, a submission queue with optional backpressure, and a result tracker
// that returns every outcome in submission order or fails the whole batch
// fast. The controller distinguishes a job that merely returned an error
// (recorded at its index, siblings unaffected) from a unit that terminated
// abnormally (the entire batch is abandoned, no partial results).
//
// # Basic Usage
//
//	p, err := pool.New[int](ctx, pool.WithUnitCount(4))
//	if err != nil {
//	    return err
//	}
//	for i := range 20 {
//	    _ = p.Submit(func(ctx context.Context) (int, error) { return i + 1, nil })
//	}
//	results, err := p.Wait() // [1, 2, ..., 20] in submission order
//
// # Failure Protocol
//
// Wait polls each pending handle in submission order. While a handle is
// unready, every currently-known unit's exit status is inspected; a nonzero
// status from any unit, even one unrelated to the awaited job, aborts the
// batch. A single wait segment exceeding WithPerJobTimeout, or cancellation
// of the pool's context, aborts the same way. All fatal causes surface as
// one *AbnormalPoolTerminationError wrapping the original cause, and Wait
// tears the pool down exactly once on every return path.
//
// A job kills its own unit by returning Exit(code); a panicking job instead
// resolves as an ordinary error at its index.
//
// # Nesting
//
// Pools are fully self-contained, so a job may construct and drive a child
// pool to any depth. Hand the parent's LogChannel to the child:
//
//	child, err := pool.New[int](ctx,
//	    pool.WithUnitCount(2),
//	    pool.WithLogChannel(parent.LogChannel()),
//	)
//
// The child then starts no relay of its own and log records from its units
// (and theirs, recursively) travel over the shared channel to the single
// top-level relay.
//
// # Backpressure and Progress
//
// WithMaxJobsQueued(n) bounds dispatched-but-unfinished jobs; Submit blocks
// at the bound. WithProgressBar / WithProgressToLogger / WithProgressTotal
// configure live progress reporting; the completed-count itself is always
// maintained and readable via Completed.
package pool
