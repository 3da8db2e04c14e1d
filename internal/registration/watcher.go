package registration

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Watcher recomputes the time remaining before a deadline on a fixed cadence
// and hands each result to a single owner callback.
//
// Watch computes once immediately and then every Interval. Calling Watch again
// cancels the previous schedule before starting the new one. After Stop returns
// the callback is never invoked again. The callback must not call Watch or Stop.
type Watcher struct {
	Interval time.Duration
	Now      func() time.Time

	onTick func(*TimeRemaining)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher returns a Watcher with a one-minute cadence.
func NewWatcher(onTick func(*TimeRemaining)) *Watcher {
	return &Watcher{Interval: time.Minute, Now: time.Now, onTick: onTick}
}

// Watch starts (or restarts) the schedule for deadline in tz. An empty deadline
// reports nil on every tick. On a parse error any running schedule is stopped.
func (w *Watcher) Watch(deadline, tz string) error {
	var target *time.Time
	if strings.TrimSpace(deadline) != "" {
		t, err := ParseDeadline(deadline, tz)
		if err != nil {
			w.Stop()
			return err
		}
		target = &t
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()

	interval := w.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel, w.done = cancel, done

	go w.run(ctx, done, target, interval, now)
	return nil
}

// Stop cancels the schedule and waits for an in-flight callback to finish.
// It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

func (w *Watcher) stopLocked() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel, w.done = nil, nil
}

func (w *Watcher) run(ctx context.Context, done chan struct{}, target *time.Time, interval time.Duration, now func() time.Time) {
	defer close(done)

	tick := func() {
		if ctx.Err() != nil {
			return
		}
		var tr *TimeRemaining
		if target != nil {
			tr = Remaining(*target, now())
		}
		w.onTick(tr)
	}

	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
