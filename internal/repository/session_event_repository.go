package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dairy-portal/internal/domain"
)

const defaultListLimit = 100

// SessionEventRepository persists the portal's session audit trail.
type SessionEventRepository interface {
	Create(ctx context.Context, event *domain.SessionEvent) error
	ListRecent(ctx context.Context, limit int) ([]domain.SessionEvent, error)
	ListByIdentity(ctx context.Context, identityID string, limit int) ([]domain.SessionEvent, error)
}

// querier is the part of *pgxpool.Pool the repository uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ querier = (*pgxpool.Pool)(nil)

type sessionEventRepository struct {
	db querier
}

// NewSessionEventRepository returns a Postgres-backed implementation.
func NewSessionEventRepository(pool *pgxpool.Pool) SessionEventRepository {
	return &sessionEventRepository{db: pool}
}

func (r *sessionEventRepository) Create(ctx context.Context, event *domain.SessionEvent) error {
	const query = `
        INSERT INTO session_events (id, session_id, kind, reason, identity_id, role, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.SessionID,
		event.Kind,
		event.Reason,
		event.IdentityID,
		event.Role,
		event.OccurredAt,
	)
	return err
}

func (r *sessionEventRepository) ListRecent(ctx context.Context, limit int) ([]domain.SessionEvent, error) {
	const query = `
        SELECT id, session_id, kind, reason, identity_id, role, occurred_at
        FROM session_events
        ORDER BY occurred_at DESC
        LIMIT $1`

	rows, err := r.db.Query(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (r *sessionEventRepository) ListByIdentity(ctx context.Context, identityID string, limit int) ([]domain.SessionEvent, error) {
	const query = `
        SELECT id, session_id, kind, reason, identity_id, role, occurred_at
        FROM session_events
        WHERE identity_id=$1
        ORDER BY occurred_at DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, identityID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]domain.SessionEvent, error) {
	defer rows.Close()

	var out []domain.SessionEvent
	for rows.Next() {
		var event domain.SessionEvent
		if err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&event.Kind,
			&event.Reason,
			&event.IdentityID,
			&event.Role,
			&event.OccurredAt,
		); err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultListLimit
	}
	return limit
}
