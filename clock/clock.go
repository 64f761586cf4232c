// Package clock supplies the once-per-second tick that drives the resend
// cooldown. Tickers are cancelable; a stopped ticker never calls its
// function again once Stop has returned, except for a tick that was
// already being delivered.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Ticker calls fn periodically between Start and Stop.
type Ticker interface {
	Start(fn func()) error
	Stop()
	Running() bool
}

// CronTicker schedules ticks on a robfig/cron scheduler.
type CronTicker struct {
	mu     sync.Mutex
	every  time.Duration
	logger cron.Logger
	c      *cron.Cron
}

// NewCron returns a ticker firing every interval. Intervals under a
// second are rounded up to one second by the scheduler.
func NewCron(every time.Duration, logger cron.Logger) *CronTicker {
	if every <= 0 {
		every = time.Second
	}
	if logger == nil {
		logger = cron.DiscardLogger
	}
	return &CronTicker{every: every, logger: logger}
}

// Start begins ticking. Calling Start on a running ticker is a no-op.
func (t *CronTicker) Start(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c != nil {
		return nil
	}
	c := cron.New(
		cron.WithLogger(t.logger),
		cron.WithChain(cron.Recover(t.logger), cron.SkipIfStillRunning(t.logger)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", t.every), fn); err != nil {
		return fmt.Errorf("clock: schedule tick: %w", err)
	}
	c.Start()
	t.c = c
	return nil
}

// Stop cancels the schedule. It does not wait for an in-flight tick, so
// it is safe to call from the goroutine that receives ticks.
func (t *CronTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c == nil {
		return
	}
	t.c.Stop()
	t.c = nil
}

func (t *CronTicker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.c != nil
}

// Manual is a Ticker advanced by hand, for tests and step-by-step drivers.
type Manual struct {
	mu sync.Mutex
	fn func()
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) Start(fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fn == nil {
		m.fn = fn
	}
	return nil
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = nil
}

func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

// Tick delivers one tick and reports whether the ticker was running.
func (m *Manual) Tick() bool {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}
