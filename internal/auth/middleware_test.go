package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dairy-portal/internal/session"
	"github.com/spec-kit/dairy-portal/internal/storage"
)

func newSessionApp(t *testing.T) (*fiber.App, *session.Registry, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	registry := session.NewRegistry(storage.NewRedisStore(rdb, "portal", 0), nil, nil, session.RegistryConfig{
		IdleTimeout:    time.Hour,
		FreshRetention: time.Millisecond,
	})
	t.Cleanup(registry.Close)

	mw := NewSessionMiddleware(NewCookieSigner("test", time.Hour), registry, CookieConfig{Name: "portal_sid"}, nil)
	app := fiber.New()
	app.Use(mw.Handle)
	app.Use(func(c *fiber.Ctx) error {
		entry, ok := EntryFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		if !entry.Store().State().Initialized {
			return c.SendStatus(http.StatusServiceUnavailable)
		}
		return c.SendStatus(http.StatusNoContent)
	})
	return app, registry, mr
}

func TestCookielessRequestsDoNotAccumulate(t *testing.T) {
	app, registry, mr := newSessionApp(t)

	for i := 0; i < 50; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, "a minted session is usable immediately")
		require.Len(t, resp.Cookies(), 1)
	}
	assert.Equal(t, 50, registry.Len())
	assert.Equal(t, 0, mr.CommandCount(), "nothing is read for a minted id")

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 50, registry.Sweep(time.Hour))
	assert.Zero(t, registry.Len())
}

func TestReturningCookieKeepsEntry(t *testing.T) {
	app, registry, _ := newSessionApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	cookie := resp.Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Empty(t, resp.Cookies(), "a valid cookie is not reissued")

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 0, registry.Sweep(time.Hour))
	assert.Equal(t, 1, registry.Len())
}
