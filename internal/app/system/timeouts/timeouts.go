// Package timeouts holds the context deadlines handlers use for
// database work.
//
// Handlers wrap their request context with one of these values rather
// than picking ad hoc durations. Pick the accessor by the shape of the
// operation:
//   - Ping: connectivity checks (health endpoint)
//   - Short: single-document lookups
//   - Medium: list queries and ordinary writes
//   - Long: multi-collection writes and background sweeps
//   - Batch: fan-out aggregation, bulk updates
package timeouts

import (
	"os"
	"sync"
	"time"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

// Ping returns the deadline for connectivity checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the deadline for single-document lookups.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the deadline for list queries and ordinary writes.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the deadline for multi-collection writes and
// background sweeps.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Batch returns the deadline for fan-out aggregation, such as the
// space-wide report summary.
func Batch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return batch
}

// Config overrides the defaults. Zero fields keep their current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure applies cfg. Call during startup, before handlers run.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
	if cfg.Batch > 0 {
		batch = cfg.Batch
	}
}

// ConfigureFromEnv reads overrides from TEMPOHUB_TIMEOUT_PING, _SHORT,
// _MEDIUM, _LONG, and _BATCH (Go duration strings, e.g. "500ms",
// "2m"). Unset or malformed variables keep the current value. It
// returns how many values were applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	applied := 0
	for _, t := range []struct {
		env string
		dst *time.Duration
	}{
		{"TEMPOHUB_TIMEOUT_PING", &ping},
		{"TEMPOHUB_TIMEOUT_SHORT", &short},
		{"TEMPOHUB_TIMEOUT_MEDIUM", &medium},
		{"TEMPOHUB_TIMEOUT_LONG", &long},
		{"TEMPOHUB_TIMEOUT_BATCH", &batch},
	} {
		v := os.Getenv(t.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*t.dst = d
			applied++
		}
	}
	return applied
}

// Reset restores the defaults. Tests use this to undo Configure.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	medium = DefaultMedium
	long = DefaultLong
	batch = DefaultBatch
}
