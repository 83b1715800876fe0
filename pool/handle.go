package pool

// SubmitOption attaches per-job behavior at submission time.
type SubmitOption[R any] func(*pendingHandle[R])

// OnSuccess registers a callback fired when the job resolves with a value.
// Callbacks are a best-effort side channel invoked by the result tracker;
// they never influence the returned result sequence.
func OnSuccess[R any](fn func(R)) SubmitOption[R] {
	return func(h *pendingHandle[R]) { h.onSuccess = fn }
}

// OnError registers a callback fired when the job resolves with an ordinary
// error. Unit termination does not resolve the handle and therefore never
// reaches this callback.
func OnError[R any](fn func(error)) SubmitOption[R] {
	return func(h *pendingHandle[R]) { h.onError = fn }
}

// pendingHandle is the ordered placeholder for one submitted job's eventual
// outcome. Its index is the job's submission position and doubles as its
// identity. The unit that runs the job resolves the handle exactly once;
// the result tracker is the only reader of the resolved value.
type pendingHandle[R any] struct {
	index     int
	job       JobFunc[R]
	onSuccess func(R)
	onError   func(error)

	done  chan struct{}
	value R
	err   error
}

func newHandle[R any](index int, job JobFunc[R], opts ...SubmitOption[R]) *pendingHandle[R] {
	h := &pendingHandle[R]{
		index: index,
		job:   job,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// resolve publishes the job's outcome. The value/err stores happen before
// the close, so any reader that observed done may read them without locking.
func (h *pendingHandle[R]) resolve(value R, err error) {
	h.value = value
	h.err = err
	close(h.done)
}

func (h *pendingHandle[R]) ready() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
