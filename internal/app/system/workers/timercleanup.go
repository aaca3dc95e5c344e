// internal/app/system/workers/timercleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	timeentrystore "github.com/dalemusser/tempohub/internal/app/store/timeentries"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// TimerCleanup is a background worker that auto-stops timers left
// running too long. A closed entry gets its end time capped at
// started_at + maxDuration so a forgotten timer does not inflate a
// timesheet.
type TimerCleanup struct {
	entries     *timeentrystore.Store
	log         *zap.Logger
	interval    time.Duration
	maxDuration time.Duration
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewTimerCleanup creates a new timer cleanup worker.
//
// Parameters:
//   - entries: the time entry store
//   - logger: zap logger for logging
//   - interval: how often to run cleanup (e.g., 5 minutes)
//   - maxDuration: how long a timer may run before being force-stopped (e.g., 12 hours)
func NewTimerCleanup(entries *timeentrystore.Store, logger *zap.Logger, interval, maxDuration time.Duration) *TimerCleanup {
	return &TimerCleanup{
		entries:     entries,
		log:         logger,
		interval:    interval,
		maxDuration: maxDuration,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *TimerCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("timer cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("max_duration", w.maxDuration))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *TimerCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("timer cleanup worker stopped")
}

func (w *TimerCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *TimerCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	cutoff := time.Now().UTC().Add(-w.maxDuration)
	stale, err := w.entries.StaleRunning(ctx, cutoff)
	if err != nil {
		w.log.Error("failed to find stale timers", zap.Error(err))
		return
	}

	closed := 0
	for _, e := range stale {
		endAt := e.StartedAt.Add(w.maxDuration)
		if err := w.entries.CloseEntry(ctx, e.ID, endAt); err != nil {
			if err == timeentrystore.ErrNotFound {
				// Stopped by its owner between the query and the close.
				continue
			}
			w.log.Error("failed to close stale timer",
				zap.Error(err),
				zap.String("entry_id", e.ID.Hex()))
			continue
		}
		closed++
	}

	if closed > 0 {
		w.log.Info("auto-stopped stale timers", zap.Int("count", closed))
	}
}
