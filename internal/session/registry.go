package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/events"
	"github.com/spec-kit/dairy-portal/internal/idle"
	"github.com/spec-kit/dairy-portal/internal/storage"
)

const (
	initTimeout    = 5 * time.Second
	maxNotices     = 16
	warningMessage = "Tu sesión se cerrará en 1 minuto por inactividad."
	expiredMessage = "Tu sesión ha finalizado por inactividad. Inicia sesión nuevamente."
)

// NoticeKind classifies messages surfaced to the browser.
type NoticeKind string

const (
	NoticeWarning NoticeKind = "warning"
	NoticeExpired NoticeKind = "expired"
)

// Notice is a pending user-visible message.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// DefaultFreshRetention bounds how long an entry minted for a cookieless
// request is kept when its cookie never comes back.
const DefaultFreshRetention = time.Minute

// RegistryConfig tunes mounted sessions.
type RegistryConfig struct {
	IdleTimeout    time.Duration
	FreshRetention time.Duration
	Clock          idle.Clock
}

// Entry is one mounted browser session: its store, its inactivity monitor
// and the notices waiting to be shown.
type Entry struct {
	store   *Store
	monitor *idle.Monitor

	unsubscribe func()

	mu       sync.Mutex
	notices  []Notice
	lastSeen time.Time
	returned bool
}

// Store returns the session store.
func (e *Entry) Store() *Store { return e.store }

// Monitor returns the inactivity monitor.
func (e *Entry) Monitor() *idle.Monitor { return e.monitor }

// Record forwards a browser interaction to the monitor.
func (e *Entry) Record(kind idle.EventKind) bool {
	return e.monitor.Record(kind)
}

// Notices drains pending notices.
func (e *Entry) Notices() []Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.notices
	e.notices = nil
	return out
}

func (e *Entry) push(n Notice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.notices) >= maxNotices {
		e.notices = e.notices[1:]
	}
	e.notices = append(e.notices, n)
}

func (e *Entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastSeen = now
	e.returned = true
	e.mu.Unlock()
}

// staleSince reports whether the entry was last seen before cutoff, using
// freshCutoff for entries whose cookie never came back.
func (e *Entry) staleSince(cutoff, freshCutoff time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.returned {
		return e.lastSeen.Before(freshCutoff)
	}
	return e.lastSeen.Before(cutoff)
}

// Registry mounts one Entry per browser session id.
type Registry struct {
	provider   storage.Provider
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        RegistryConfig

	mu      sync.Mutex
	entries map[string]*Entry
}

// NewRegistry builds an empty registry.
func NewRegistry(provider storage.Provider, dispatcher events.Dispatcher, logger *zap.Logger, cfg RegistryConfig) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = idle.DefaultTimeout
	}
	if cfg.FreshRetention <= 0 {
		cfg.FreshRetention = DefaultFreshRetention
	}
	return &Registry{
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		entries:    make(map[string]*Entry),
	}
}

func (r *Registry) now() time.Time {
	if r.cfg.Clock != nil {
		return r.cfg.Clock.Now()
	}
	return time.Now()
}

// Mount returns the entry for sid, creating it on first use. A new entry
// starts restoring its store in the background and starts its monitor
// immediately.
func (r *Registry) Mount(sid string) *Entry {
	entry, created := r.mount(sid, false)
	if created {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
			defer cancel()
			entry.store.Initialize(ctx)
		}()
	}
	return entry
}

// MountNew mounts an entry for a session id that was just minted. Its
// namespace cannot hold anything yet, so the store is initialized empty
// without touching storage. Until the id is presented again through Mount the
// entry is swept after FreshRetention.
func (r *Registry) MountNew(sid string) *Entry {
	entry, created := r.mount(sid, true)
	if created {
		entry.store.initializeEmpty()
	}
	return entry
}

func (r *Registry) mount(sid string, fresh bool) (*Entry, bool) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[sid]; ok {
		entry.touch(now)
		return entry, false
	}

	store := NewStore(sid, r.provider.Namespace(sid), r.dispatcher, r.logger)
	entry := &Entry{store: store, lastSeen: now, returned: !fresh}
	entry.monitor = idle.New(r.cfg.IdleTimeout, idle.Handlers{
		OnWarning: func() { r.onWarning(entry) },
		OnExpire:  func() { r.onExpire(entry) },
	}, idle.WithClock(r.cfg.Clock))
	// signing in or confirming a password counts as activity
	entry.unsubscribe = store.Subscribe(func(state State) {
		if state.Authenticated() {
			entry.monitor.Reset()
		}
	})
	r.entries[sid] = entry
	entry.monitor.Start()

	r.logger.Debug("session mounted", zap.String("session_id", sid), zap.Bool("fresh", fresh))
	return entry, true
}

// Lookup returns a mounted entry without creating one.
func (r *Registry) Lookup(sid string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[sid]
	return entry, ok
}

// Unmount stops the entry's monitor and forgets it. Persisted state is kept.
func (r *Registry) Unmount(sid string) {
	r.mu.Lock()
	entry, ok := r.entries[sid]
	delete(r.entries, sid)
	r.mu.Unlock()

	if ok {
		entry.teardown()
	}
}

// Sweep unmounts logged-out entries not seen within retention, and entries
// whose cookie never came back after FreshRetention. Staleness is checked and
// the entry removed under the registry lock, so a concurrent Mount either
// keeps the entry alive or gets a new one.
func (r *Registry) Sweep(retention time.Duration) int {
	now := r.now()
	cutoff := now.Add(-retention)
	freshCutoff := now.Add(-r.cfg.FreshRetention)

	r.mu.Lock()
	var stale []*Entry
	for sid, entry := range r.entries {
		if entry.store.State().Authenticated() {
			continue
		}
		if entry.staleSince(cutoff, freshCutoff) {
			delete(r.entries, sid)
			stale = append(stale, entry)
		}
	}
	remaining := len(r.entries)
	r.mu.Unlock()

	for _, entry := range stale {
		entry.teardown()
	}
	if len(stale) > 0 {
		r.logger.Info("swept idle sessions", zap.Int("count", len(stale)), zap.Int("remaining", remaining))
	}
	return len(stale)
}

// Len returns the number of mounted entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close tears down every entry.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*Entry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.teardown()
	}
}

func (e *Entry) teardown() {
	e.monitor.Stop()
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

func (r *Registry) onWarning(entry *Entry) {
	state := entry.store.State()
	if !state.Authenticated() {
		return
	}
	entry.push(Notice{Kind: NoticeWarning, Message: warningMessage, At: r.now()})

	if r.dispatcher == nil {
		return
	}
	err := r.dispatcher.Publish(context.Background(), events.Event{
		Type:      events.EventIdleWarning,
		SessionID: entry.store.ID(),
		Actor:     events.Actor{IdentityID: state.Identity.ID, Role: state.Identity.Role},
	})
	if err != nil {
		r.logger.Warn("publish session event",
			zap.String("type", string(events.EventIdleWarning)),
			zap.String("session_id", entry.store.ID()),
			zap.Error(err))
	}
}

func (r *Registry) onExpire(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	if entry.store.Logout(ctx, domain.LogoutIdle) {
		entry.push(Notice{Kind: NoticeExpired, Message: expiredMessage, At: r.now()})
	}
}
