package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// batchConfig is the TOML-backed batch description. Every field has a flag
// counterpart; values from the file are applied first and explicit flags win.
type batchConfig struct {
	Units          int           `toml:"units"`
	Jobs           int           `toml:"jobs"`
	Sleep          time.Duration `toml:"sleep"`
	Timeout        time.Duration `toml:"timeout"`
	PollInterval   time.Duration `toml:"poll_interval"`
	MaxJobsPerUnit int           `toml:"max_jobs_per_unit"`
	MaxJobsQueued  int           `toml:"max_jobs_queued"`
	FailIndex      int           `toml:"fail_index"`
	ErrorIndex     int           `toml:"error_index"`
	Progress       bool          `toml:"progress"`
}

func defaultBatchConfig() batchConfig {
	return batchConfig{
		Units:        4,
		Jobs:         20,
		Timeout:      10 * time.Minute,
		PollInterval: time.Second,
		FailIndex:    -1,
		ErrorIndex:   -1,
	}
}

func loadBatchConfig(path string) (batchConfig, error) {
	cfg := defaultBatchConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
