package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dairy-portal/internal/domain"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string

	d.Subscribe(EventSessionEnded, func(_ context.Context, e Event) error {
		seen = append(seen, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventSessionEnded, func(_ context.Context, e Event) error {
		seen = append(seen, "second")
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		return nil
	})
	d.Subscribe(EventSessionStarted, func(context.Context, Event) error {
		seen = append(seen, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventSessionEnded})
	require.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestToSessionEvent(t *testing.T) {
	e := Event{
		ID:        "e1",
		Type:      EventSessionEnded,
		SessionID: "sid",
		Actor:     Actor{IdentityID: "u1", Role: domain.RoleSales},
		Payload:   SessionEndedPayload{Reason: domain.LogoutIdle},
	}

	row := e.ToSessionEvent()
	assert.Equal(t, domain.SessionEventEnded, row.Kind)
	assert.Equal(t, "idle", row.Reason)
	assert.Equal(t, domain.RoleSales, row.Role)
}
