package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/events"
	"github.com/spec-kit/dairy-portal/internal/idle"
	"github.com/spec-kit/dairy-portal/internal/idle/idletest"
)

func newTestRegistry(t *testing.T) (*Registry, *idletest.Clock) {
	t.Helper()
	provider, _ := newRedisProvider(t)
	clock := idletest.NewClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	reg := NewRegistry(provider, nil, nil, RegistryConfig{IdleTimeout: 10 * time.Minute, Clock: clock})
	t.Cleanup(reg.Close)
	return reg, clock
}

func mountReady(t *testing.T, reg *Registry, sid string) *Entry {
	t.Helper()
	entry := reg.Mount(sid)
	select {
	case <-entry.Store().Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("store never initialized")
	}
	return entry
}

func TestMountReturnsSameEntry(t *testing.T) {
	reg, _ := newTestRegistry(t)

	a := mountReady(t, reg, "sid-1")
	b := reg.Mount("sid-1")

	assert.Same(t, a, b)
	assert.Equal(t, 1, reg.Len())
}

func TestIdleSessionLogsOutWithNotices(t *testing.T) {
	reg, clock := newTestRegistry(t)
	ctx := context.Background()
	entry := mountReady(t, reg, "sid-1")
	require.NoError(t, entry.Store().Login(ctx, servicio(true), "tok"))

	clock.Advance(9 * time.Minute)
	notices := entry.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeWarning, notices[0].Kind)

	assert.True(t, entry.Record(idle.EventClick))
	clock.Advance(10 * time.Minute)

	notices = entry.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, NoticeWarning, notices[0].Kind)
	assert.Equal(t, NoticeExpired, notices[1].Kind)
	assert.False(t, entry.Store().State().Authenticated())
}

func TestAnonymousIdleProducesNoNotices(t *testing.T) {
	reg, clock := newTestRegistry(t)
	entry := mountReady(t, reg, "sid-1")

	clock.Advance(30 * time.Minute)

	assert.Empty(t, entry.Notices())
}

func TestSweepKeepsAuthenticatedEntries(t *testing.T) {
	reg, clock := newTestRegistry(t)
	ctx := context.Background()
	mountReady(t, reg, "anon")
	authed := mountReady(t, reg, "authed")
	require.NoError(t, authed.Store().Login(ctx, servicio(true), "tok"))

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 0, reg.Sweep(30*time.Minute))
	authed.Record(idle.EventKeyDown)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, reg.Sweep(4*time.Minute))

	_, ok := reg.Lookup("anon")
	assert.False(t, ok)
	_, ok = reg.Lookup("authed")
	assert.True(t, ok)
}

func TestUnmountStopsMonitor(t *testing.T) {
	reg, clock := newTestRegistry(t)
	ctx := context.Background()
	entry := mountReady(t, reg, "sid-1")
	require.NoError(t, entry.Store().Login(ctx, servicio(true), "tok"))

	reg.Unmount("sid-1")
	clock.Advance(time.Hour)

	assert.True(t, entry.Store().State().Authenticated())
	assert.Zero(t, clock.Pending())
}

func TestRemountRestoresFromStorage(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	entry := mountReady(t, reg, "sid-1")
	require.NoError(t, entry.Store().Login(ctx, servicio(true), "tok"))

	reg.Unmount("sid-1")
	again := mountReady(t, reg, "sid-1")

	assert.NotSame(t, entry, again)
	assert.Equal(t, "tok", again.Store().State().Credential)
	assert.Equal(t, domain.RoleService, again.Store().State().Identity.Role)
}

func TestFreshEntriesAreSweptQuickly(t *testing.T) {
	reg, clock := newTestRegistry(t)

	for i := 0; i < 500; i++ {
		entry := reg.MountNew(fmt.Sprintf("crawler-%d", i))
		require.True(t, entry.Store().State().Initialized, "fresh entries need no restore")
	}
	returning := reg.MountNew("browser")
	reg.Mount("browser")
	require.Equal(t, 501, reg.Len())

	clock.Advance(DefaultFreshRetention + time.Second)
	assert.Equal(t, 500, reg.Sweep(30*time.Minute))
	assert.Equal(t, 1, reg.Len())

	kept, ok := reg.Lookup("browser")
	require.True(t, ok)
	assert.Same(t, returning, kept)
}

func TestFreshEntryThatLogsInIsKept(t *testing.T) {
	reg, clock := newTestRegistry(t)
	entry := reg.MountNew("sid-1")
	require.NoError(t, entry.Store().Login(context.Background(), servicio(true), "tok"))

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 0, reg.Sweep(30*time.Minute))
	assert.Equal(t, 1, reg.Len())
}

func TestMountBeforeSweepKeepsEntry(t *testing.T) {
	reg, clock := newTestRegistry(t)
	entry := mountReady(t, reg, "sid-1")

	clock.Advance(31 * time.Minute)
	assert.Same(t, entry, reg.Mount("sid-1"))
	assert.Equal(t, 0, reg.Sweep(30*time.Minute))

	_, ok := reg.Lookup("sid-1")
	assert.True(t, ok)
}

func TestLoginRestartsIdleWindow(t *testing.T) {
	reg, clock := newTestRegistry(t)
	entry := mountReady(t, reg, "sid-1")

	clock.Advance(8 * time.Minute)
	require.NoError(t, entry.Store().Login(context.Background(), servicio(true), "tok"))
	assert.Equal(t, clock.Now(), entry.Monitor().LastActivity())

	clock.Advance(8 * time.Minute)
	assert.Empty(t, entry.Notices())
	assert.True(t, entry.Store().State().Authenticated())
}

func TestIdleWarningPublishFailureIsLogged(t *testing.T) {
	provider, _ := newRedisProvider(t)
	core, logs := observer.New(zap.WarnLevel)
	clock := idletest.NewClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventIdleWarning, func(context.Context, events.Event) error {
		return errors.New("audit store down")
	})
	reg := NewRegistry(provider, dispatcher, zap.New(core), RegistryConfig{IdleTimeout: 10 * time.Minute, Clock: clock})
	t.Cleanup(reg.Close)

	entry := mountReady(t, reg, "sid-1")
	require.NoError(t, entry.Store().Login(context.Background(), servicio(true), "tok"))
	clock.Advance(9 * time.Minute)

	require.Len(t, entry.Notices(), 1)
	failures := logs.FilterMessage("publish session event").All()
	require.Len(t, failures, 1)
	assert.Equal(t, string(events.EventIdleWarning), failures[0].ContextMap()["type"])
}
