package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/events"
	"github.com/spec-kit/dairy-portal/internal/observability"
	"github.com/spec-kit/dairy-portal/internal/repository"
)

// ErrAuditDisabled is returned when no database is configured.
var ErrAuditDisabled = errors.New("session audit trail disabled")

// AuditService records session lifecycle events.
type AuditService struct {
	dispatcher events.Dispatcher
	repo       repository.SessionEventRepository
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAuditService creates the service. repo may be nil when Postgres is not configured.
func NewAuditService(dispatcher events.Dispatcher, repo repository.SessionEventRepository, metrics *observability.Metrics, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		repo:       repo,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionStarted, a.record)
	a.dispatcher.Subscribe(events.EventSessionEnded, a.record)
	a.dispatcher.Subscribe(events.EventIdentityPatched, a.record)
	a.dispatcher.Subscribe(events.EventIdleWarning, a.record)
	a.dispatcher.Subscribe(events.EventAccessDenied, a.record)
}

func (a *AuditService) record(ctx context.Context, event events.Event) error {
	row := event.ToSessionEvent()
	a.metrics.RecordSessionEvent(string(row.Kind), row.Reason)
	a.logger.Info(string(row.Kind),
		zap.String("session_id", row.SessionID),
		zap.String("identity_id", row.IdentityID),
		zap.String("reason", row.Reason))

	if a.repo == nil {
		return nil
	}
	if err := a.repo.Create(ctx, &row); err != nil {
		a.logger.Warn("persist session event", zap.String("kind", string(row.Kind)), zap.Error(err))
		return err
	}
	return nil
}

// Recent returns the latest recorded session events.
func (a *AuditService) Recent(ctx context.Context, limit int) ([]domain.SessionEvent, error) {
	if a.repo == nil {
		return nil, ErrAuditDisabled
	}
	return a.repo.ListRecent(ctx, limit)
}

// ForIdentity returns the latest events of one account.
func (a *AuditService) ForIdentity(ctx context.Context, identityID string, limit int) ([]domain.SessionEvent, error) {
	if a.repo == nil {
		return nil, ErrAuditDisabled
	}
	return a.repo.ListByIdentity(ctx, identityID, limit)
}
