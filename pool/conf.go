package pool

import (
	"time"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/MatthewThe/job-pool/relay"
)

const (
	// defaultPerJobTimeout mirrors the historical default of roughly three
	// hours per wait segment.
	defaultPerJobTimeout = 10000 * time.Second

	// defaultPollInterval is how long the tracker waits for a handle before
	// re-inspecting unit exit statuses.
	defaultPollInterval = time.Second

	// teardownGrace bounds how long teardown waits for unit goroutines to
	// observe cancellation before giving up on the join.
	teardownGrace = 5 * time.Second
)

// Option is a functional option for configuring a pool.
type Option func(*config) error

type config struct {
	unitCount        int
	logger           *zap.Logger
	logLevel         zapcore.Level
	logChannel       *relay.Channel
	perJobTimeout    time.Duration
	pollInterval     time.Duration
	maxJobsPerUnit   int
	maxJobsQueued    int
	limiter          *rate.Limiter
	progressTotal    int64
	progressBar      bool
	progressToLog    bool
	progressInterval time.Duration
}

func defaultConfig() config {
	return config{
		unitCount:     1,
		logLevel:      zapcore.InfoLevel,
		perJobTimeout: defaultPerJobTimeout,
		pollInterval:  defaultPollInterval,
	}
}

// WithUnitCount sets the number of concurrent execution units (default 1).
func WithUnitCount(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithUnitCount requires n > 0"))
		}
		cfg.unitCount = n
		return nil
	}
}

// WithLogger sets the pool's log sink. Records relayed from units and the
// pool's own diagnostics go here. The logger's lifetime is scoped to this
// pool instance; without it the pool logs nowhere.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) error {
		if logger == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.logger = logger
		return nil
	}
}

// WithLogLevel sets the diagnostic verbosity handed to each unit at start
// (default Info). Filtering happens on the producer side, before records
// enter the relay channel.
func WithLogLevel(level zapcore.Level) Option {
	return func(cfg *config) error {
		cfg.logLevel = level
		return nil
	}
}

// WithLogChannel supplies a pre-existing relay channel instead of creating
// one. Used by jobs that construct nested pools: handing the parent's channel
// down makes descendant logs flow upward through the parent's relay, and the
// child pool starts no relay loop of its own.
func WithLogChannel(ch *relay.Channel) Option {
	return func(cfg *config) error {
		if ch == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogChannel requires a non-nil channel"))
		}
		cfg.logChannel = ch
		return nil
	}
}

// WithPerJobTimeout bounds a single wait segment during Wait (default
// 10000s). The clock is per handle, not per batch: a batch of many short
// jobs may legally take longer than this in aggregate.
func WithPerJobTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithPerJobTimeout requires d > 0"))
		}
		cfg.perJobTimeout = d
		return nil
	}
}

// WithPollInterval sets how long the tracker waits for the current handle
// between unit exit-status inspections (default 1s).
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithPollInterval requires d > 0"))
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithMaxJobsPerUnit retires a unit after it has served n jobs and replaces
// it with a fresh one. Unset means units serve for the pool's whole life.
func WithMaxJobsPerUnit(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMaxJobsPerUnit requires n > 0"))
		}
		cfg.maxJobsPerUnit = n
		return nil
	}
}

// WithMaxJobsQueued bounds the number of dispatched-but-unfinished jobs.
// Submit blocks while the bound is reached; this is the pool's only
// backpressure mechanism. Zero (the default) means unbounded.
func WithMaxJobsQueued(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMaxJobsQueued requires n >= 0"))
		}
		cfg.maxJobsQueued = n
		return nil
	}
}

// WithSubmitRateLimit throttles submissions to perSecond with the given
// burst. Useful when job dispatch fans out to an external service.
func WithSubmitRateLimit(perSecond float64, burst int) Option {
	return func(cfg *config) error {
		if perSecond <= 0 || burst <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithSubmitRateLimit requires perSecond > 0 and burst > 0"))
		}
		cfg.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithProgressTotal declares the expected number of jobs, enabling percentage
// display on the progress bar. Unset means the total is unknown.
func WithProgressTotal(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithProgressTotal requires n > 0"))
		}
		cfg.progressTotal = int64(n)
		return nil
	}
}

// WithProgressBar renders a live progress bar to stdout.
func WithProgressBar() Option {
	return func(cfg *config) error {
		cfg.progressBar = true
		return nil
	}
}

// WithProgressToLogger renders progress through the pool's log sink instead
// of stdout, one Info record per frame.
func WithProgressToLogger() Option {
	return func(cfg *config) error {
		cfg.progressToLog = true
		return nil
	}
}

// WithProgressInterval throttles progress emission to at most one frame per
// d. This constructor-level setting is the only progress cadence surface;
// Wait accepts no per-call interval.
func WithProgressInterval(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithProgressInterval requires d > 0"))
		}
		cfg.progressInterval = d
		return nil
	}
}
