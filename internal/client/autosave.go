package client

import (
	"context"
	"sync"
	"time"

	"oftalmonet/valeda-app/internal/domain"

	"go.uber.org/zap"
)

// DefaultAutosaveInterval is the quiet period before a pending edit is written.
const DefaultAutosaveInterval = time.Second

// SaveFunc writes one coalesced patch.
type SaveFunc func(ctx context.Context, patch domain.TreatmentPatch) error

// AutoSaver debounces edits to a single treatment. Scheduled patches are
// merged, later fields winning, and written once no new edit has arrived
// for the interval. Only one write runs at a time; a failed write is merged
// back under any newer edits and retried after another interval.
type AutoSaver struct {
	interval time.Duration
	save     SaveFunc
	logger   *zap.Logger

	mu      sync.Mutex
	pending *domain.TreatmentPatch
	timer   *time.Timer
	closed  bool

	writeMu sync.Mutex
}

func NewAutoSaver(interval time.Duration, save SaveFunc, logger *zap.Logger) *AutoSaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoSaver{interval: interval, save: save, logger: logger.Named("autosave")}
}

// Schedule queues patch and restarts the quiet-period timer.
func (a *AutoSaver) Schedule(patch domain.TreatmentPatch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.queueLocked(patch)
	a.armLocked()
}

// Pending reports whether an edit is waiting to be written.
func (a *AutoSaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Flush writes any pending patch now.
func (a *AutoSaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	return a.write(ctx)
}

// Close stops the timer. Pending edits are kept; call Flush first to write them.
func (a *AutoSaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *AutoSaver) fire() {
	if err := a.write(context.Background()); err != nil {
		a.logger.Warn("autosave failed, will retry", zap.Error(err))
		a.mu.Lock()
		if !a.closed {
			a.armLocked()
		}
		a.mu.Unlock()
	}
}

func (a *AutoSaver) write(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	patch := a.pending
	a.pending = nil
	a.mu.Unlock()
	if patch == nil {
		return nil
	}

	if err := a.save(ctx, *patch); err != nil {
		a.mu.Lock()
		// Edits scheduled during the write are newer than the failed patch.
		if a.pending != nil {
			merged := patch.Merge(*a.pending)
			a.pending = &merged
		} else {
			a.pending = patch
		}
		a.mu.Unlock()
		return err
	}
	return nil
}

// queueLocked must be called with mu held.
func (a *AutoSaver) queueLocked(patch domain.TreatmentPatch) {
	if a.pending == nil {
		a.pending = &patch
		return
	}
	merged := a.pending.Merge(patch)
	a.pending = &merged
}

// armLocked must be called with mu held.
func (a *AutoSaver) armLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.interval, a.fire)
}
