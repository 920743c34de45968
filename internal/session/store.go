// Package session holds the portal's per-browser session state: who is
// logged in, the credential used against the management API, and whether the
// state has been restored from durable storage yet.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/events"
	"github.com/spec-kit/dairy-portal/internal/storage"
)

// Persisted keys inside a browser namespace.
const (
	KeyUser          = "user"
	KeyToken         = "token"
	KeyIsPasswordSet = "isPasswordSet"

	cachePrefix = "cache:"
)

var (
	// ErrInvalidSession rejects a login without identity or credential.
	ErrInvalidSession = errors.New("session: identity and credential are required")
	// ErrNoSession is returned when patching while logged out.
	ErrNoSession = errors.New("session: not logged in")
)

// State is an immutable snapshot of the store.
type State struct {
	Identity    *domain.Identity
	Credential  string
	Initialized bool
}

// Authenticated reports whether an identity is present.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

// Store is the single source of truth for one browser's session.
type Store struct {
	id         string
	ns         storage.Namespace
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu          sync.Mutex
	identity    *domain.Identity
	credential  string
	initialized bool
	mutated     bool

	initOnce sync.Once
	ready    chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// NewStore builds an uninitialized store over ns. dispatcher may be nil.
func NewStore(id string, ns storage.Namespace, dispatcher events.Dispatcher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		id:         id,
		ns:         ns,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("session_id", id)),
		ready:      make(chan struct{}),
		subs:       make(map[int]func(State)),
	}
}

// ID returns the browser session id.
func (s *Store) ID() string {
	return s.id
}

// Ready is closed once Initialize has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Initialize restores a persisted session. It runs at most once; any storage
// failure leaves the session empty, and the store is marked initialized even
// if the storage backend panics.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		identity, credential := s.restore(ctx)
		s.complete(identity, credential)
	})
}

// initializeEmpty marks a store whose namespace cannot hold anything yet, such
// as one behind a freshly minted session id, as initialized without reading.
func (s *Store) initializeEmpty() {
	s.initOnce.Do(func() {
		s.complete(nil, "")
	})
}

func (s *Store) complete(identity *domain.Identity, credential string) {
	s.mu.Lock()
	// a login or logout issued while restoring wins over the persisted copy
	if !s.mutated {
		s.identity = identity
		s.credential = credential
	}
	s.initialized = true
	state := s.stateLocked()
	s.mu.Unlock()

	close(s.ready)
	s.notify(state)
}

func (s *Store) restore(ctx context.Context) (identity *domain.Identity, credential string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session restore panicked", zap.Any("panic", r))
			identity, credential = nil, ""
		}
	}()

	rawUser, err := s.ns.Get(ctx, KeyUser)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read persisted user", zap.Error(err))
		}
		return nil, ""
	}
	token, err := s.ns.Get(ctx, KeyToken)
	if err != nil || token == "" {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read persisted token", zap.Error(err))
		}
		return nil, ""
	}

	var restored domain.Identity
	if err := json.Unmarshal([]byte(rawUser), &restored); err != nil {
		s.logger.Warn("persisted user is corrupt", zap.Error(err))
		return nil, ""
	}
	if !restored.Role.Valid() {
		s.logger.Warn("persisted user has unknown role", zap.String("role", string(restored.Role)))
		return nil, ""
	}
	return &restored, token
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	return State{
		Identity:    s.identity.Clone(),
		Credential:  s.credential,
		Initialized: s.initialized,
	}
}

// Credential returns the bearer token, empty when logged out.
func (s *Store) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Login replaces the session and persists it before subscribers observe it.
func (s *Store) Login(ctx context.Context, identity *domain.Identity, credential string) error {
	if identity == nil || credential == "" {
		return ErrInvalidSession
	}
	role, err := domain.ParseRole(string(identity.Role))
	if err != nil {
		return fmt.Errorf("%w: %q", err, identity.Role)
	}
	stored := identity.Clone()
	stored.Role = role

	s.mu.Lock()
	s.mutated = true
	s.identity = stored
	s.credential = credential
	s.persistLocked(ctx)
	state := s.stateLocked()
	s.mu.Unlock()

	s.notify(state)
	s.publish(ctx, events.EventSessionStarted, state.Identity, nil)
	return nil
}

// Logout clears the session and the whole namespace, including view caches.
// It reports whether a session was actually cleared.
func (s *Store) Logout(ctx context.Context, reason domain.LogoutReason) bool {
	s.mu.Lock()
	s.mutated = true
	previous := s.identity
	s.identity = nil
	s.credential = ""
	if err := s.ns.Clear(ctx); err != nil {
		s.logger.Warn("clear session namespace", zap.Error(err))
	}
	state := s.stateLocked()
	s.mu.Unlock()

	if previous == nil {
		return false
	}

	s.logger.Info("session ended", zap.String("reason", string(reason)), zap.String("identity_id", previous.ID))
	s.notify(state)
	s.publish(ctx, events.EventSessionEnded, previous, events.SessionEndedPayload{Reason: reason})
	return true
}

// PatchIdentity merges confirmed profile fields; the credential is untouched.
func (s *Store) PatchIdentity(ctx context.Context, patch domain.IdentityPatch) error {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return ErrNoSession
	}
	s.identity.Apply(patch)
	s.persistLocked(ctx)
	state := s.stateLocked()
	s.mu.Unlock()

	s.notify(state)
	s.publish(ctx, events.EventIdentityPatched, state.Identity, events.IdentityPatchedPayload{IsPasswordSet: state.Identity.IsPasswordSet})
	return nil
}

// Subscribe registers fn for every state change and returns its cancel func.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Cached reads a view cache entry kept in the session namespace.
func (s *Store) Cached(ctx context.Context, key string) (string, bool) {
	value, err := s.ns.Get(ctx, cachePrefix+key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read view cache", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return value, true
}

// Cache stores a view cache entry. Entries are dropped by Logout along with
// the session keys; nothing is written while logged out.
func (s *Store) Cache(ctx context.Context, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return
	}
	if err := s.ns.Set(ctx, cachePrefix+key, value); err != nil {
		s.logger.Warn("write view cache", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops a view cache entry.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if err := s.ns.Delete(ctx, cachePrefix+key); err != nil {
		s.logger.Warn("drop view cache", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(s.identity)
	if err != nil {
		s.logger.Warn("encode identity", zap.Error(err))
		return
	}
	writes := []struct{ key, value string }{
		{KeyUser, string(raw)},
		{KeyToken, s.credential},
		{KeyIsPasswordSet, strconv.FormatBool(s.identity.IsPasswordSet)},
	}
	for _, w := range writes {
		if err := s.ns.Set(ctx, w.key, w.value); err != nil {
			s.logger.Warn("persist session key", zap.String("key", w.key), zap.Error(err))
		}
	}
}

func (s *Store) notify(state State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (s *Store) publish(ctx context.Context, typ events.EventType, identity *domain.Identity, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{Type: typ, SessionID: s.id, Payload: payload}
	if identity != nil {
		event.Actor = events.Actor{IdentityID: identity.ID, Role: identity.Role}
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish session event", zap.String("type", string(typ)), zap.Error(err))
	}
}
