package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// Runtime holds process-level settings that are not part of the economy:
// where results go, how much parallelism to use, and how loud to log.
type Runtime struct {
	LogLevel string        `json:"log_level" yaml:"log_level"`
	Workers  int           `json:"workers" yaml:"workers"`
	DBPath   string        `json:"db_path" yaml:"db_path"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultRuntime returns runtime settings sized to the host.
func DefaultRuntime() Runtime {
	return Runtime{
		LogLevel: "info",
		Workers:  runtime.NumCPU(),
		DBPath:   "data/stickersim.db",
	}
}

// ApplyEnv overrides runtime settings from STICKERSIM_* environment
// variables. Malformed numbers are ignored.
func (r *Runtime) ApplyEnv() {
	if v := os.Getenv("STICKERSIM_LOG_LEVEL"); v != "" {
		r.LogLevel = v
	}
	if v := os.Getenv("STICKERSIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			r.Workers = n
		}
	}
	if v := os.Getenv("STICKERSIM_DB"); v != "" {
		r.DBPath = v
	}
	if v := os.Getenv("STICKERSIM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			r.Timeout = d
		}
	}
}
