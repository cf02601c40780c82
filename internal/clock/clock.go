// Package clock exposes the dispatcher's notion of "now" and local-day
// boundaries, and a self-rearming midnight timer used by the janitor.
package clock

import (
	"log"
	"sync"
	"time"
)

// Clock is the local-timezone clock shared by the numbering service and
// the janitor. The timezone is fixed at construction.
type Clock struct {
	loc *time.Location
}

// New builds a Clock for the given IANA timezone name.
func New(tzName string) (*Clock, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc}, nil
}

// Now returns the current instant.
func (c *Clock) Now() time.Time { return time.Now().In(c.loc) }

// TodayStart returns local midnight of the current day.
func (c *Clock) TodayStart() time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// TodayEnd returns the instant just before the next local midnight.
func (c *Clock) TodayEnd() time.Time {
	return c.TodayStart().Add(24 * time.Hour).Add(-time.Nanosecond)
}

// StartOfDay returns local midnight of t's calendar day in this clock's zone.
func (c *Clock) StartOfDay(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location { return c.loc }

// MidnightFunc is invoked each time local midnight fires.
type MidnightFunc func(at time.Time)

// MidnightTimer arms a one-shot timer for the next local midnight and
// re-arms itself after every fire, until Stop is called.
type MidnightTimer struct {
	clock  *Clock
	fn     MidnightFunc
	logger *log.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewMidnightTimer constructs (but does not start) a re-arming timer.
func NewMidnightTimer(c *Clock, logger *log.Logger, fn MidnightFunc) *MidnightTimer {
	if logger == nil {
		logger = log.Default()
	}
	return &MidnightTimer{clock: c, fn: fn, logger: logger}
}

// Start arms the first fire.
func (m *MidnightTimer) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.arm()
}

func (m *MidnightTimer) arm() {
	next := m.clock.TodayStart().Add(24 * time.Hour)
	d := time.Until(next)
	if d <= 0 {
		d = time.Millisecond
	}
	m.timer = time.AfterFunc(d, m.fire)
}

func (m *MidnightTimer) fire() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	at := m.clock.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Printf("clock: midnight handler panic: %v", r)
			}
		}()
		m.fn(at)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.arm()
	}
}

// Stop cancels the pending timer; safe to call more than once.
func (m *MidnightTimer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
	}
}
