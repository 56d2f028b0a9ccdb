// File: internal/concurrency/janitor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Janitor: opt-in periodic sweep loop. Metadata expiry stays lazy unless a
// janitor is started with a positive interval.

package concurrency

import (
	"log/slog"
	"sync"
	"time"

	"github.com/momentics/hioload-meta/clock"
)

// Sweeper is anything with an externally triggerable full expiry sweep.
type Sweeper interface {
	Sweep() int
}

// Janitor calls Sweep on its target every interval.
type Janitor struct {
	target     Sweeper
	clock      clock.Clock
	log        *slog.Logger
	afterSweep func(evicted int)

	mu       sync.Mutex
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewJanitor creates a stopped janitor. afterSweep, if set, runs on the
// loop goroutine after each sweep.
func NewJanitor(target Sweeper, c clock.Clock, log *slog.Logger, afterSweep func(int)) *Janitor {
	if c == nil {
		c = clock.Real()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		target:     target,
		clock:      c,
		log:        log.With(slog.String("component", "janitor")),
		afterSweep: afterSweep,
	}
}

// Start runs the loop at interval, restarting it if already running with a
// different interval. A non-positive interval stops the loop.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopCh != nil && j.interval == interval {
		return
	}
	j.stopLocked()
	if interval <= 0 {
		return
	}
	j.interval = interval
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	ticker := j.clock.NewTicker(interval)
	go j.run(ticker, j.stopCh, j.doneCh)
	j.log.Info("janitor started", slog.Duration("interval", interval))
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopLocked()
}

// Running reports whether the loop is active.
func (j *Janitor) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stopCh != nil
}

// Interval returns the active interval, zero when stopped.
func (j *Janitor) Interval() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopCh == nil {
		return 0
	}
	return j.interval
}

func (j *Janitor) stopLocked() {
	if j.stopCh == nil {
		return
	}
	close(j.stopCh)
	<-j.doneCh
	j.stopCh, j.doneCh, j.interval = nil, nil, 0
	j.log.Info("janitor stopped")
}

func (j *Janitor) run(ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			evicted := j.target.Sweep()
			if j.afterSweep != nil {
				j.afterSweep(evicted)
			}
		}
	}
}
