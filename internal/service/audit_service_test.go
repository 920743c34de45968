package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/events"
	"github.com/spec-kit/dairy-portal/internal/observability"
)

type memoryEvents struct {
	rows []domain.SessionEvent
	fail bool
}

func (m *memoryEvents) Create(_ context.Context, e *domain.SessionEvent) error {
	if m.fail {
		return errors.New("db down")
	}
	m.rows = append(m.rows, *e)
	return nil
}

func (m *memoryEvents) ListRecent(_ context.Context, limit int) ([]domain.SessionEvent, error) {
	return m.rows, nil
}

func (m *memoryEvents) ListByIdentity(_ context.Context, id string, _ int) ([]domain.SessionEvent, error) {
	var out []domain.SessionEvent
	for _, r := range m.rows {
		if r.IdentityID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestAuditServiceRecordsSessionEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	repo := &memoryEvents{}
	svc := NewAuditService(dispatcher, repo, observability.NewMetrics(), zap.NewNop())
	svc.RegisterHandlers()
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventSessionStarted, SessionID: "sid", Actor: events.Actor{IdentityID: "u1", Role: domain.RoleAdmin},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventSessionEnded, SessionID: "sid", Actor: events.Actor{IdentityID: "u1"},
		Payload: events.SessionEndedPayload{Reason: domain.LogoutIdle},
	}))

	rows, err := svc.ForIdentity(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.SessionEventEnded, rows[1].Kind)
	assert.Equal(t, "idle", rows[1].Reason)
	assert.NotEmpty(t, rows[1].ID)
}

func TestAuditServiceWithoutDatabase(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewAuditService(dispatcher, nil, nil, zap.NewNop())
	svc.RegisterHandlers()

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventIdleWarning}))
	_, err := svc.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrAuditDisabled)
}

func TestAuditServiceSurfacesRepoErrors(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewAuditService(dispatcher, &memoryEvents{fail: true}, nil, zap.NewNop())
	svc.RegisterHandlers()

	assert.Error(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventAccessDenied}))
}
