package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dairy-portal/internal/domain"
)

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls   []call
	rows    [][]any
	execErr error
	rowErr  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return &fakeRows{data: f.rows, pos: -1, err: f.rowErr}, nil
}

type fakeRows struct {
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		target.Set(reflect.ValueOf(row[i]).Convert(target.Type()))
	}
	return nil
}

func eventRow(id, identity string, at time.Time) []any {
	return []any{id, "sid-" + id, "session_started", "", identity, "admin", at}
}

func TestCreateBindsEveryColumn(t *testing.T) {
	db := &fakeDB{}
	repo := &sessionEventRepository{db: db}
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	err := repo.Create(context.Background(), &domain.SessionEvent{
		ID:         "e-1",
		SessionID:  "sid-1",
		Kind:       domain.SessionEventEnded,
		Reason:     string(domain.LogoutIdle),
		IdentityID: "u-1",
		Role:       domain.RoleAdmin,
		OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "INSERT INTO session_events")
	assert.Equal(t, []any{"e-1", "sid-1", domain.SessionEventEnded, "idle", "u-1", domain.RoleAdmin, at}, db.calls[0].args)
}

func TestCreateSurfacesExecError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection reset")}
	repo := &sessionEventRepository{db: db}
	assert.EqualError(t, repo.Create(context.Background(), &domain.SessionEvent{ID: "e-1"}), "connection reset")
}

func TestListRecentScansRows(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{eventRow("e-2", "u-1", at.Add(time.Minute)), eventRow("e-1", "u-2", at)}}
	repo := &sessionEventRepository{db: db}

	events, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e-2", events[0].ID)
	assert.Equal(t, "sid-e-2", events[0].SessionID)
	assert.Equal(t, domain.SessionEventStarted, events[0].Kind)
	assert.Equal(t, domain.RoleAdmin, events[0].Role)
	assert.Equal(t, at.Add(time.Minute), events[0].OccurredAt)

	assert.Contains(t, db.calls[0].sql, "ORDER BY occurred_at DESC")
	assert.Equal(t, []any{defaultListLimit}, db.calls[0].args)
}

func TestListByIdentityFiltersAndLimits(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{eventRow("e-1", "u-7", at)}}
	repo := &sessionEventRepository{db: db}

	events, err := repo.ListByIdentity(context.Background(), "u-7", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "u-7", events[0].IdentityID)

	assert.Contains(t, db.calls[0].sql, "WHERE identity_id=$1")
	assert.Equal(t, []any{"u-7", 10}, db.calls[0].args)
}

func TestListSurfacesRowError(t *testing.T) {
	db := &fakeDB{rowErr: errors.New("canceling statement")}
	repo := &sessionEventRepository{db: db}

	events, err := repo.ListRecent(context.Background(), 5)
	assert.EqualError(t, err, "canceling statement")
	assert.Empty(t, events)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, normalizeLimit(0))
	assert.Equal(t, defaultListLimit, normalizeLimit(-3))
	assert.Equal(t, defaultListLimit, normalizeLimit(5000))
	assert.Equal(t, 25, normalizeLimit(25))
}
