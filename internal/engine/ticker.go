package engine

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
)

// SaveFunc persists an encoded save.
type SaveFunc func(ctx context.Context, data []byte) error

// Ticker drives an Engine in real time. Each beat ticks the engine by the
// wall time measured since the previous beat, so a slow beat is caught up
// rather than lost. It does not know about producers or research.
type Ticker struct {
	engine   *Engine
	logger   *logger.Logger
	interval time.Duration
	autosave time.Duration
	save     SaveFunc
	now      func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewTicker creates a ticker. A nil save disables autosave.
func NewTicker(e *Engine, interval, autosave time.Duration, save SaveFunc, log *logger.Logger) *Ticker {
	if log == nil {
		log = logger.Discard()
	}
	return &Ticker{
		engine:   e,
		logger:   log,
		interval: interval,
		autosave: autosave,
		save:     save,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start runs the loop until ctx is cancelled, Stop is called or the engine
// reports an invariant violation. A final save is attempted on the way out
// unless the state is no longer trustworthy. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) error {
	t.logger.Infof("Engine Ticker started (tick %s, autosave %s).", t.interval, t.autosave)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var saves <-chan time.Time
	if t.save != nil && t.autosave > 0 {
		st := time.NewTicker(t.autosave)
		defer st.Stop()
		saves = st.C
	}

	last := t.now()
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine Ticker stopped by context.")
			t.persist(context.Background())
			return nil
		case <-t.stopChan:
			t.logger.Info("Engine Ticker stopped manually.")
			t.persist(ctx)
			return nil
		case <-saves:
			t.persist(ctx)
		case <-ticker.C:
			now := t.now()
			delta := now.Sub(last)
			last = now
			if _, err := t.engine.Tick(delta); err != nil {
				if gameerr.IsInvariant(err) {
					t.logger.Errorf("Engine halted: %v", err)
					return err
				}
				t.logger.Warnf("tick failed: %v", err)
			}
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

func (t *Ticker) persist(ctx context.Context) {
	if t.save == nil {
		return
	}
	data, err := t.engine.Save()
	if err != nil {
		t.logger.Errorf("autosave encode failed: %v", err)
		return
	}
	if err := t.save(ctx, data); err != nil {
		t.logger.Errorf("autosave failed: %v", err)
	}
}

// RunFor advances the engine by total in fixed steps without waiting for real
// time. It stops at the first error.
func RunFor(e *Engine, total, step time.Duration) (int, error) {
	if step <= 0 {
		step = time.Second
	}
	ticks := 0
	for total > 0 {
		d := step
		if total < d {
			d = total
		}
		if _, err := e.Tick(d); err != nil {
			return ticks, err
		}
		total -= d
		ticks++
	}
	return ticks, nil
}
