// Package idle enforces the portal's inactivity policy: a warning one minute
// before the deadline and a forced logout when it elapses.
package idle

import (
	"sync"
	"time"
)

// WarningLead is how long before the logout deadline the warning fires.
const WarningLead = time.Minute

// DefaultTimeout is used when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// EventKind is a browser interaction reported by the page.
type EventKind string

const (
	EventPointerDown EventKind = "pointerdown"
	EventMouseMove   EventKind = "mousemove"
	EventKeyPress    EventKind = "keypress"
	EventScroll      EventKind = "scroll"
	EventTouchStart  EventKind = "touchstart"
	EventClick       EventKind = "click"
	EventKeyDown     EventKind = "keydown"
)

var trackedEvents = map[EventKind]struct{}{
	EventPointerDown: {},
	EventMouseMove:   {},
	EventKeyPress:    {},
	EventScroll:      {},
	EventTouchStart:  {},
	EventClick:       {},
	EventKeyDown:     {},
}

// Tracked reports whether kind resets the inactivity deadlines.
func Tracked(kind EventKind) bool {
	_, ok := trackedEvents[kind]
	return ok
}

// Handlers are invoked outside the monitor's lock.
type Handlers struct {
	OnWarning func()
	OnExpire  func()
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithClock swaps the scheduling clock.
func WithClock(c Clock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

// Monitor tracks the last interaction and owns at most one pending
// warning/expiry timer pair.
type Monitor struct {
	mu       sync.Mutex
	clock    Clock
	timeout  time.Duration
	handlers Handlers

	warn    Timer
	expire  Timer
	gen     uint64
	running bool
	last    time.Time
}

// New builds a stopped monitor.
func New(timeout time.Duration, handlers Handlers, opts ...Option) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Monitor{clock: wallClock{}, timeout: timeout, handlers: handlers}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start schedules the first deadlines from now. Calling Start on a running
// monitor does nothing.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.scheduleLocked()
}

// Record resets both deadlines when kind is a tracked interaction.
func (m *Monitor) Record(kind EventKind) bool {
	if !Tracked(kind) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return false
	}
	m.scheduleLocked()
	return true
}

// Reset restarts the idle window for activity that does not come from the
// page, such as a login. It does nothing on a stopped monitor.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.scheduleLocked()
	}
}

// SetTimeout changes the idle window and restarts the schedule when running.
func (m *Monitor) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
	if m.running {
		m.scheduleLocked()
	}
}

// Timeout returns the current idle window.
func (m *Monitor) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// LastActivity returns when the deadlines were last reset.
func (m *Monitor) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Stop cancels pending timers. Callbacks already in flight are discarded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.cancelLocked()
	m.gen++
}

func (m *Monitor) scheduleLocked() {
	m.cancelLocked()
	m.gen++
	gen := m.gen
	m.last = m.clock.Now()

	if lead := m.timeout - WarningLead; lead > 0 {
		m.warn = m.clock.AfterFunc(lead, func() { m.fire(gen, false) })
	}
	m.expire = m.clock.AfterFunc(m.timeout, func() { m.fire(gen, true) })
}

func (m *Monitor) cancelLocked() {
	if m.warn != nil {
		m.warn.Stop()
		m.warn = nil
	}
	if m.expire != nil {
		m.expire.Stop()
		m.expire = nil
	}
}

func (m *Monitor) fire(gen uint64, expired bool) {
	m.mu.Lock()
	if !m.running || gen != m.gen {
		m.mu.Unlock()
		return
	}
	var cb func()
	if expired {
		m.cancelLocked()
		cb = m.handlers.OnExpire
	} else {
		m.warn = nil
		cb = m.handlers.OnWarning
	}
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}
