package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MatthewThe/job-pool/pool"
	"github.com/MatthewThe/job-pool/relay"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	bold  = color.New(color.Bold)
)

func newRunCmd() *cobra.Command {
	var (
		configFile string
		logLevel   string
		flagCfg    = defaultBatchConfig()
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a synthetic batch",
		Long: `Submits a batch of jobs that sleep and then return their index + 1. ` +
			`Flags can make one job kill its unit (--fail-index) or return an ordinary ` +
			`error (--error-index) to exercise the fail-fast and per-index error paths. ` +
			`An interrupt (Ctrl-C) reaches only the controller and aborts the batch cleanly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadBatchConfig(configFile)
			if err != nil {
				return err
			}
			mergeFlags(cmd, &cfg, &flagCfg)
			return runBatch(cmd.Context(), cfg, logLevel)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "TOML batch config file (flags override)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "unit log verbosity (debug|info|warn|error)")
	cmd.Flags().IntVar(&flagCfg.Units, "units", flagCfg.Units, "number of concurrent units")
	cmd.Flags().IntVar(&flagCfg.Jobs, "jobs", flagCfg.Jobs, "number of jobs to submit")
	cmd.Flags().DurationVar(&flagCfg.Sleep, "sleep", flagCfg.Sleep, "per-job simulated work duration")
	cmd.Flags().DurationVar(&flagCfg.Timeout, "timeout", flagCfg.Timeout, "per-job wait-segment timeout")
	cmd.Flags().DurationVar(&flagCfg.PollInterval, "poll-interval", flagCfg.PollInterval, "tracker poll interval")
	cmd.Flags().IntVar(&flagCfg.MaxJobsPerUnit, "max-jobs-per-unit", 0, "retire a unit after this many jobs (0 = never)")
	cmd.Flags().IntVar(&flagCfg.MaxJobsQueued, "max-jobs-queued", 0, "backpressure bound on in-flight jobs (0 = unbounded)")
	cmd.Flags().IntVar(&flagCfg.FailIndex, "fail-index", -1, "job index that kills its unit (-1 = none)")
	cmd.Flags().IntVar(&flagCfg.ErrorIndex, "error-index", -1, "job index that returns an ordinary error (-1 = none)")
	cmd.Flags().BoolVar(&flagCfg.Progress, "progress", false, "render a live progress bar")

	return cmd
}

// mergeFlags overlays explicitly-set flags onto the file-loaded config.
func mergeFlags(cmd *cobra.Command, cfg, flagCfg *batchConfig) {
	overlay := map[string]func(){
		"units":             func() { cfg.Units = flagCfg.Units },
		"jobs":              func() { cfg.Jobs = flagCfg.Jobs },
		"sleep":             func() { cfg.Sleep = flagCfg.Sleep },
		"timeout":           func() { cfg.Timeout = flagCfg.Timeout },
		"poll-interval":     func() { cfg.PollInterval = flagCfg.PollInterval },
		"max-jobs-per-unit": func() { cfg.MaxJobsPerUnit = flagCfg.MaxJobsPerUnit },
		"max-jobs-queued":   func() { cfg.MaxJobsQueued = flagCfg.MaxJobsQueued },
		"fail-index":        func() { cfg.FailIndex = flagCfg.FailIndex },
		"error-index":       func() { cfg.ErrorIndex = flagCfg.ErrorIndex },
		"progress":          func() { cfg.Progress = flagCfg.Progress },
	}
	for name, apply := range overlay {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}

func runBatch(parent context.Context, cfg batchConfig, logLevel string) error {
	var level zapcore.Level
	if err := level.Set(logLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// The interrupt is delivered to the controller only; units keep running
	// until the aborted Wait tears them down.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []pool.Option{
		pool.WithUnitCount(cfg.Units),
		pool.WithLogger(logger),
		pool.WithLogLevel(level),
		pool.WithPerJobTimeout(cfg.Timeout),
		pool.WithPollInterval(cfg.PollInterval),
		pool.WithProgressTotal(cfg.Jobs),
	}
	if cfg.MaxJobsPerUnit > 0 {
		opts = append(opts, pool.WithMaxJobsPerUnit(cfg.MaxJobsPerUnit))
	}
	if cfg.MaxJobsQueued > 0 {
		opts = append(opts, pool.WithMaxJobsQueued(cfg.MaxJobsQueued))
	}
	if cfg.Progress {
		opts = append(opts, pool.WithProgressBar(), pool.WithProgressInterval(100*time.Millisecond))
	}

	p, err := pool.New[int](ctx, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	for i := range cfg.Jobs {
		job := makeJob(i, cfg)
		if err := p.Submit(job); err != nil {
			return err
		}
	}

	results, err := p.Wait()
	elapsed := time.Since(start)

	if err != nil {
		var fatal *pool.AbnormalPoolTerminationError
		if errors.As(err, &fatal) {
			red.Fprintf(os.Stderr, "batch aborted after %s: %v\n", elapsed.Round(time.Millisecond), fatal.Cause)
			return err
		}
		return err
	}

	renderResults(results, elapsed)
	return nil
}

func makeJob(index int, cfg batchConfig) pool.JobFunc[int] {
	return func(ctx context.Context) (int, error) {
		logger := relay.FromContext(ctx)
		logger.Debug("job started", zap.Int("job", index))

		if cfg.Sleep > 0 {
			timer := time.NewTimer(cfg.Sleep)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return 0, ctx.Err()
			}
		}

		switch index {
		case cfg.FailIndex:
			return 0, pool.Exit(3)
		case cfg.ErrorIndex:
			return 0, fmt.Errorf("injected failure for job %d", index)
		}
		return index + 1, nil
	}
}

func renderResults(results []pool.Result[int], elapsed time.Duration) {
	bold.Printf("Batch completed in %s\n\n", elapsed.Round(time.Millisecond))

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Job", "Status", "Value", "Error")

	okCount := 0
	for _, res := range results {
		if res.Err != nil {
			_ = table.Append(
				fmt.Sprintf("%d", res.Index),
				red.Sprint("error"),
				"",
				res.Err.Error(),
			)
			continue
		}
		okCount++
		_ = table.Append(
			fmt.Sprintf("%d", res.Index),
			green.Sprint("ok"),
			fmt.Sprintf("%d", res.Value),
			"",
		)
	}

	_ = table.Render()
	fmt.Println()
	green.Printf("%d/%d jobs succeeded\n", okCount, len(results))
}
