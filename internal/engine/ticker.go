package engine

import (
	"context"
	"time"

	"github.com/pawsteps/stepcat/internal/platform/logger"
)

// DefaultTickInterval is how often the background loop reconciles the cat.
// Decay also runs on demand at every read; the tick only guarantees progress
// when no client is reading.
const DefaultTickInterval = 5 * time.Minute

// Ticker periodically reconciles the cat against wall-clock time.
// It does NOT know about decay math - only scheduling.
type Ticker struct {
	reconciler *Reconciler
	logger     *logger.Logger
	interval   time.Duration
	stopChan   chan struct{}
}

// NewTicker creates a background reconcile ticker.
func NewTicker(reconciler *Reconciler, log *logger.Logger, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{
		reconciler: reconciler,
		logger:     log,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the reconcile loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Reconcile ticker started.")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Reconcile ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Reconcile ticker stopped manually.")
			return
		case <-ticker.C:
			if _, err := t.reconciler.GetCat(ctx); err != nil {
				t.logger.Error("Background reconcile failed: " + err.Error())
			}
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	close(t.stopChan)
}
