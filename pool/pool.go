package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/semaphore"

	"github.com/MatthewThe/job-pool/progress"
	"github.com/MatthewThe/job-pool/relay"
)

// Pool executes a batch of independently submitted jobs across a fixed set
// of concurrently running execution units.
//
// A Pool is fully self-contained: it owns its units, its dispatch queue, its
// log relay, and its progress state, so a job body may construct a child
// Pool of its own to any nesting depth. Pass the parent's LogChannel to the
// child (WithLogChannel) so descendant logs reach the top-level sink through
// a single relay.
//
// Type parameters:
//   - R: The result type produced by submitted jobs
type Pool[R any] struct {
	conf config

	// ctx is the controller scope: an external interrupt delivered here
	// aborts Wait. Units deliberately do not inherit its cancellation.
	ctx context.Context

	// submitCtx additionally cancels on teardown, unblocking submitters
	// stuck on backpressure.
	submitCtx    context.Context
	cancelSubmit context.CancelFunc

	// unitCtx is cancelled only by teardown; it is the forced-termination
	// signal for units and the dispatcher, and the context jobs run under.
	unitCtx     context.Context
	cancelUnits context.CancelFunc

	mu         sync.Mutex
	units      []*unit[R]
	handles    []*pendingHandle[R]
	nextUnitID int

	unitWG   sync.WaitGroup
	dispatch *dispatcher[R]
	sem      *semaphore.Weighted
	reporter *progress.Reporter

	sink       *zap.Logger
	logCh      *relay.Channel
	logRelay   *relay.Relay // nil when the channel is externally owned
	unitLogger *zap.Logger

	waiting      atomic.Bool
	closed       atomic.Bool
	teardownOnce sync.Once
}

// New creates a pool and starts its execution units.
//
// The context scopes external interrupts: cancelling it while Wait is
// polling aborts the batch the same way a dead unit does. Units themselves
// never observe that cancellation; only teardown stops them, which is what
// keeps an interrupt from producing an inconsistent partial teardown.
//
// Example:
//
//	p, err := pool.New[int](ctx,
//	    pool.WithUnitCount(4),
//	    pool.WithPerJobTimeout(2*time.Second),
//	    pool.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	for i := range 20 {
//	    _ = p.Submit(func(ctx context.Context) (int, error) { return i + 1, nil })
//	}
//	results, err := p.Wait()
func New[R any](ctx context.Context, opts ...Option) (*Pool[R], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	p := &Pool[R]{
		conf:     cfg,
		ctx:      ctx,
		dispatch: newDispatcher[R](),
	}
	p.submitCtx, p.cancelSubmit = context.WithCancel(ctx)
	p.unitCtx, p.cancelUnits = context.WithCancel(context.WithoutCancel(ctx))

	p.sink = cfg.logger
	if p.sink == nil {
		p.sink = zap.NewNop()
	}

	// Log plumbing: an externally supplied channel is reused as-is, so this
	// pool produces into its parent's relay instead of starting a second
	// consumer for the same records.
	if cfg.logChannel != nil {
		p.logCh = cfg.logChannel
	} else {
		p.logCh = relay.NewChannel(relay.DefaultBuffer)
		p.logRelay = relay.New(p.logCh, p.sink)
		p.logRelay.Start()
	}
	p.unitLogger = relay.NewLogger(p.logCh, zap.NewAtomicLevelAt(cfg.logLevel))

	var progressOpts []progress.Option
	if cfg.progressBar {
		progressOpts = append(progressOpts, progress.WithBar())
	}
	if cfg.progressToLog {
		progressOpts = append(progressOpts,
			progress.WithWriter(progress.NewLogWriter(p.sink, zapcore.InfoLevel)))
	}
	if cfg.progressInterval > 0 {
		progressOpts = append(progressOpts, progress.WithInterval(cfg.progressInterval))
	}
	p.reporter = progress.New(cfg.progressTotal, progressOpts...)

	if cfg.maxJobsQueued > 0 {
		p.sem = semaphore.NewWeighted(int64(cfg.maxJobsQueued))
	}

	go p.dispatch.run(p.unitCtx)

	p.mu.Lock()
	for range cfg.unitCount {
		p.spawnUnit()
	}
	p.mu.Unlock()

	return p, nil
}

// Submit appends a job to the tracked sequence and dispatches it to the unit
// set. The job's identity is its submission order index. When a backpressure
// bound is configured (WithMaxJobsQueued), Submit blocks until the number of
// dispatched-but-unfinished jobs drops below the bound.
//
// Submit fails with ErrPoolClosed once Wait has torn the pool down.
func (p *Pool[R]) Submit(job JobFunc[R], opts ...SubmitOption[R]) error {
	if job == nil {
		return ErrNilJob
	}
	if p.closed.Load() {
		return ErrPoolClosed
	}

	if p.conf.limiter != nil {
		if err := p.conf.limiter.Wait(p.submitCtx); err != nil {
			return ErrPoolClosed
		}
	}
	if p.sem != nil {
		if err := p.sem.Acquire(p.submitCtx, 1); err != nil {
			return ErrPoolClosed
		}
	}

	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		if p.sem != nil {
			p.sem.Release(1)
		}
		return ErrPoolClosed
	}
	h := newHandle(len(p.handles), job, opts...)
	p.handles = append(p.handles, h)
	p.mu.Unlock()

	return p.dispatch.submit(p.submitCtx, h)
}

// Wait blocks until every submitted job has resolved and returns the ordered
// result sequence: result[i] belongs to job i regardless of which unit ran
// it or in what order jobs finished. Ordinary job errors are recorded
// per-index and do not abort the batch.
//
// Any fatal condition (a unit exiting with nonzero status, a wait segment
// exceeding the per-job timeout, or cancellation of the pool's context)
// aborts the whole batch: Wait returns a *AbnormalPoolTerminationError
// wrapping the cause and no partial results.
//
// On every return path Wait tears the pool down exactly once: units are
// forcibly terminated and joined, the relay is drained, and blocked
// submitters are released. A second Wait fails with ErrPoolClosed.
func (p *Pool[R]) Wait() ([]Result[R], error) {
	if !p.waiting.CompareAndSwap(false, true) {
		return nil, ErrPoolClosed
	}
	defer p.teardown()

	tracker := newResultTracker(p)
	resolved, err := tracker.awaitAll()
	if err != nil {
		p.sink.Error("fatal condition caught, terminating units", zap.Error(err))
		return nil, &AbnormalPoolTerminationError{Cause: err}
	}

	// only the prefix the tracker resolved: a submission racing with the end
	// of the wait loop must not surface as a zero-valued result
	p.mu.Lock()
	handles := p.handles[:resolved]
	p.mu.Unlock()

	results := make([]Result[R], len(handles))
	for i, h := range handles {
		results[i] = Result[R]{Value: h.value, Err: h.err, Index: i}
	}
	p.reporter.Finish()
	return results, nil
}

// LogChannel exposes the pool's relay channel so a job constructing a nested
// pool can hand it down via WithLogChannel.
func (p *Pool[R]) LogChannel() *relay.Channel {
	return p.logCh
}

// Completed reports how many jobs have resolved so far. Safe to call from
// any goroutine while the batch is running.
func (p *Pool[R]) Completed() int64 {
	return p.reporter.Completed()
}

// spawnUnit creates and starts one execution unit. Caller must hold p.mu.
func (p *Pool[R]) spawnUnit() *unit[R] {
	u := &unit[R]{
		id:   p.nextUnitID,
		pool: p,
		done: make(chan struct{}),
	}
	u.exit.Store(unitAlive)
	u.logger = p.unitLogger.With(zap.Int("unit", u.id))
	p.nextUnitID++
	p.units = append(p.units, u)
	p.unitWG.Add(1)
	go u.run()
	return u
}

// replaceUnit retires a unit that reached its jobs-per-unit limit and spawns
// its successor. The tracker re-snapshots the unit set every poll, so the
// replacement is visible to exit-status checks immediately.
func (p *Pool[R]) replaceUnit(old *unit[R]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, u := range p.units {
		if u == old {
			p.units = append(p.units[:i], p.units[i+1:]...)
			break
		}
	}
	if !p.closed.Load() {
		p.spawnUnit()
	}
}

// deadUnit returns a unit that terminated with nonzero status, or nil when
// all currently-known units are healthy. Units retired by respawn have
// already been removed from the set, so a zero status here only ever means
// teardown-driven shutdown.
func (p *Pool[R]) deadUnit() *unit[R] {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range p.units {
		if code, terminated := u.exitStatus(); terminated && code != 0 {
			return u
		}
	}
	return nil
}

// jobDone runs on every handle resolution: it frees a backpressure slot and
// bumps the shared completed-count. The counter is the only value mutated
// from multiple units and uses an atomic increment.
func (p *Pool[R]) jobDone() {
	if p.sem != nil {
		p.sem.Release(1)
	}
	p.reporter.Increment()
}

// teardown forcibly terminates every unit and reclaims resources. It runs
// exactly once regardless of how Wait returned: cancel the unit context (the
// forced-kill signal), join unit goroutines within a bounded grace period,
// then close and drain the relay if this pool owns it.
func (p *Pool[R]) teardown() {
	p.teardownOnce.Do(func() {
		p.closed.Store(true)
		p.cancelSubmit()
		p.cancelUnits()

		if !waitUntil(p.unitsDone(), teardownGrace) {
			p.sink.Warn("timed out waiting for units to stop")
		}

		if p.logRelay != nil {
			p.logCh.Close()
			<-p.logRelay.Done()
		}
	})
}

func (p *Pool[R]) unitsDone() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		p.unitWG.Wait()
		close(done)
	}()
	return done
}
