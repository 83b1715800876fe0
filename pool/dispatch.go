package pool

import "context"

// dispatcher moves submitted handles from the pool's intake to whichever
// unit pulls next. It keeps an internal backlog so Submit never blocks on
// dispatch itself; blocking submission is the job of the backpressure
// semaphore alone. The dispatcher stops when the unit context is cancelled
// and closes its out channel, which is what idle units exit on.
type dispatcher[R any] struct {
	intake chan *pendingHandle[R]
	out    chan *pendingHandle[R]
}

func newDispatcher[R any]() *dispatcher[R] {
	return &dispatcher[R]{
		intake: make(chan *pendingHandle[R]),
		out:    make(chan *pendingHandle[R]),
	}
}

func (d *dispatcher[R]) run(ctx context.Context) {
	defer close(d.out)

	var backlog []*pendingHandle[R]
	for {
		var out chan *pendingHandle[R]
		var next *pendingHandle[R]
		if len(backlog) > 0 {
			out = d.out
			next = backlog[0]
		}

		select {
		case <-ctx.Done():
			// backlog handles stay unresolved; teardown is already underway
			return
		case h := <-d.intake:
			backlog = append(backlog, h)
		case out <- next:
			backlog = backlog[1:]
		}
	}
}

func (d *dispatcher[R]) submit(ctx context.Context, h *pendingHandle[R]) error {
	select {
	case d.intake <- h:
		return nil
	case <-ctx.Done():
		return ErrPoolClosed
	}
}
