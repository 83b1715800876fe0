package pool

import "context"

// JobFunc is the work function submitted to a pool. The context carries the
// unit-scoped logger (see relay.FromContext) and is cancelled on pool
// teardown. An ordinary failure is reported by returning an error; returning
// Exit(code) instead terminates the whole unit.
//
// Type parameters:
//   - R: The result type produced by the job
type JobFunc[R any] func(ctx context.Context) (R, error)

// Result is the resolved outcome of one submitted job.
//
// Fields:
//   - Value: The value the job returned (only valid if Err is nil)
//   - Err: The job's ordinary error, if any (nil on success)
//   - Index: The job's submission order position
type Result[R any] struct {
	Value R
	Err   error
	Index int
}

// Values extracts the plain values from a resolved result sequence,
// preserving submission order.
func Values[R any](results []Result[R]) []R {
	values := make([]R, len(results))
	for i, res := range results {
		values[i] = res.Value
	}
	return values
}
