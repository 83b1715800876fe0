// Package progress tracks batch completion for a job pool.
//
// The counting contract is the core: Increment is called once per resolved
// job handle and must be safe from every unit, so the completed count is a
// single atomic. Rendering is best-effort decoration on top of the counter,
// delegated to schollz/progressbar.
package progress

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Reporter counts completed jobs and optionally renders a progress bar.
// The zero bar configuration (counting only) is what library callers get by
// default; the bar is opt-in because a library should not write to stdout
// unless asked to.
type Reporter struct {
	completed atomic.Int64
	total     int64
	bar       *progressbar.ProgressBar
}

// Option configures a Reporter.
type Option func(*config)

type config struct {
	showBar     bool
	writer      io.Writer
	interval    time.Duration
	description string
}

// WithBar enables rendering. Without it the reporter only counts.
func WithBar() Option {
	return func(cfg *config) { cfg.showBar = true }
}

// WithWriter directs bar output to w instead of stdout. Combine with
// LogWriter to emit progress frames through a structured logger.
func WithWriter(w io.Writer) Option {
	return func(cfg *config) {
		if w != nil {
			cfg.showBar = true
			cfg.writer = w
		}
	}
}

// WithInterval throttles bar redraws to at most one per d.
func WithInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.interval = d
		}
	}
}

// WithDescription sets the text shown next to the bar.
func WithDescription(desc string) Option {
	return func(cfg *config) { cfg.description = desc }
}

// New creates a Reporter for a batch of total jobs. total <= 0 means the
// total is unknown; the bar (if enabled) renders as a spinner and percentage
// display is unavailable.
func New(total int64, opts ...Option) *Reporter {
	cfg := &config{
		writer:      os.Stdout,
		description: "jobs",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &Reporter{total: total}
	if !cfg.showBar {
		return r
	}

	barTotal := total
	if barTotal <= 0 {
		barTotal = -1 // spinner mode
	}

	barOpts := []progressbar.Option{
		progressbar.OptionSetDescription(cfg.description),
		progressbar.OptionSetWriter(cfg.writer),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	}
	if cfg.interval > 0 {
		barOpts = append(barOpts, progressbar.OptionThrottle(cfg.interval))
	}

	r.bar = progressbar.NewOptions64(barTotal, barOpts...)
	return r
}

// Increment records one completed job. Safe for concurrent use from any unit.
func (r *Reporter) Increment() {
	n := r.completed.Add(1)
	if r.bar == nil {
		return
	}
	_ = r.bar.Add(1)
	if r.total > 0 && n == r.total {
		_ = r.bar.Finish()
	}
}

// Completed returns the number of jobs resolved so far.
func (r *Reporter) Completed() int64 {
	return r.completed.Load()
}

// Total returns the expected total, or a value <= 0 when unknown.
func (r *Reporter) Total() int64 {
	return r.total
}

// Finish forces a final bar render. Called at pool teardown; a counting-only
// reporter treats it as a no-op.
func (r *Reporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}
