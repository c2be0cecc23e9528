package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"attendance.service/internal/core/model"
	"attendance.service/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PostgresStore is the concrete IntervalStore for PostgreSQL. Per-employee
// serialization uses a transaction-scoped advisory lock keyed on
// (tenant_id, employee_id); partial unique indexes on the tables back the
// single-active invariants as a second line of defense.
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore creates a store on top of an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// RunMigrations applies the embedded goose migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.DB, ".")
}

// Atomic opens a transaction, takes the per-employee advisory lock, and runs fn.
// Serialization failures surface as ErrConcurrentModification for the caller
// to retry; nothing committed by a failed fn is ever visible.
func (s *PostgresStore) Atomic(ctx context.Context, tenantID, employeeID string, fn func(ctx context.Context, tx Tx) error) error {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("app.tenant_id", tenantID),
		attribute.String("app.employee_id", employeeID),
	)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, employeeLockKey(tenantID, employeeID)); err != nil {
		return classify(err)
	}

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// employeeLockKey hashes the employee scope into the 64-bit advisory lock space.
func employeeLockKey(tenantID, employeeID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(tenantID))
	h.Write([]byte{'|'})
	h.Write([]byte(employeeID))
	return int64(h.Sum64())
}

// classify maps driver errors onto the store error taxonomy. Validation errors
// raised by the caller's fn never pass through here.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization failure, deadlock, lock not available
			return fmt.Errorf("%w: %s", ErrConcurrentModification, pgErr.Code)
		case "23505": // unique_violation on a partial unique index means we lost a race
			return fmt.Errorf("%w: %s", ErrConcurrentModification, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

const entryColumns = `id, tenant_id, employee_id, clock_in_time, clock_out_time,
       total_hours, regular_hours, overtime_hours, status, requires_verification,
       evidence_in, evidence_out, verified_by, verified_at,
       minimum_first_break_minutes, overtime_threshold_hours`

const breakColumns = `id, time_entry_id, tenant_id, employee_id, break_number,
       break_start, break_end, duration_minutes, break_type, is_paid,
       evidence_start, evidence_end`

func (s *PostgresStore) ActiveEntry(ctx context.Context, tenantID, employeeID string) (*model.TimeEntry, error) {
	return activeEntry(ctx, s.DB, tenantID, employeeID)
}

func (s *PostgresStore) GetEntry(ctx context.Context, tenantID, entryID string) (*model.TimeEntry, error) {
	return getEntry(ctx, s.DB, tenantID, entryID)
}

// ListPendingReview returns every entry awaiting supervisor verification for a
// tenant, oldest clock-out first.
func (s *PostgresStore) ListPendingReview(ctx context.Context, tenantID string) ([]*model.TimeEntry, error) {
	query := `SELECT ` + entryColumns + `
              FROM time_entries
              WHERE tenant_id = $1 AND status = $2
              ORDER BY clock_out_time ASC`

	rows, err := s.DB.QueryContext(ctx, query, tenantID, model.StatusPendingReview)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []*model.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, classify(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx so the read queries can be
// shared between the store and its transactions.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func activeEntry(ctx context.Context, q querier, tenantID, employeeID string) (*model.TimeEntry, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employee_id", employeeID))

	query := `SELECT ` + entryColumns + `
              FROM time_entries
              WHERE tenant_id = $1 AND employee_id = $2 AND status = $3
              LIMIT 1`

	e, err := scanEntry(q.QueryRowContext(ctx, query, tenantID, employeeID, model.StatusActive))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return e, nil
}

func getEntry(ctx context.Context, q querier, tenantID, entryID string) (*model.TimeEntry, error) {
	query := `SELECT ` + entryColumns + `
              FROM time_entries
              WHERE tenant_id = $1 AND id = $2`

	e, err := scanEntry(q.QueryRowContext(ctx, query, tenantID, entryID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return e, nil
}

// pgTx implements Tx on top of an open *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) ActiveEntry(ctx context.Context, tenantID, employeeID string) (*model.TimeEntry, error) {
	return activeEntry(ctx, t.tx, tenantID, employeeID)
}

func (t *pgTx) GetEntry(ctx context.Context, tenantID, entryID string) (*model.TimeEntry, error) {
	return getEntry(ctx, t.tx, tenantID, entryID)
}

func (t *pgTx) InsertEntry(ctx context.Context, e *model.TimeEntry) error {
	query := `INSERT INTO time_entries (` + entryColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := t.tx.ExecContext(ctx, query,
		e.ID, e.TenantID, e.EmployeeID, e.ClockInTime, e.ClockOutTime,
		e.TotalHours, e.RegularHours, e.OvertimeHours, e.Status, e.RequiresVerification,
		e.EvidenceIn, e.EvidenceOut, e.VerifiedBy, e.VerifiedAt,
		e.MinimumFirstBreakMinutes, e.OvertimeThresholdHours,
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (t *pgTx) UpdateEntry(ctx context.Context, e *model.TimeEntry) error {
	query := `UPDATE time_entries
              SET clock_out_time = $1,
                  total_hours = $2,
                  regular_hours = $3,
                  overtime_hours = $4,
                  status = $5,
                  evidence_out = $6,
                  verified_by = $7,
                  verified_at = $8
              WHERE tenant_id = $9 AND id = $10`

	_, err := t.tx.ExecContext(ctx, query,
		e.ClockOutTime, e.TotalHours, e.RegularHours, e.OvertimeHours,
		e.Status, e.EvidenceOut, e.VerifiedBy, e.VerifiedAt,
		e.TenantID, e.ID,
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (t *pgTx) OpenBreak(ctx context.Context, entryID string) (*model.BreakInterval, error) {
	query := `SELECT ` + breakColumns + `
              FROM break_intervals
              WHERE time_entry_id = $1 AND break_end IS NULL
              LIMIT 1`

	b, err := scanBreak(t.tx.QueryRowContext(ctx, query, entryID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return b, nil
}

func (t *pgTx) ClosedBreaks(ctx context.Context, entryID string) ([]*model.BreakInterval, error) {
	query := `SELECT ` + breakColumns + `
              FROM break_intervals
              WHERE time_entry_id = $1 AND break_end IS NOT NULL
              ORDER BY break_number ASC`

	rows, err := t.tx.QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var breaks []*model.BreakInterval
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, classify(err)
		}
		breaks = append(breaks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return breaks, nil
}

func (t *pgTx) MaxBreakNumber(ctx context.Context, entryID string) (int, error) {
	var max int
	query := `SELECT COALESCE(MAX(break_number), 0) FROM break_intervals WHERE time_entry_id = $1`

	if err := t.tx.QueryRowContext(ctx, query, entryID).Scan(&max); err != nil {
		return 0, classify(err)
	}
	return max, nil
}

func (t *pgTx) InsertBreak(ctx context.Context, b *model.BreakInterval) error {
	query := `INSERT INTO break_intervals (` + breakColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := t.tx.ExecContext(ctx, query,
		b.ID, b.TimeEntryID, b.TenantID, b.EmployeeID, b.BreakNumber,
		b.BreakStart, b.BreakEnd, b.DurationMinutes, b.BreakType, b.IsPaid,
		b.EvidenceStart, b.EvidenceEnd,
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (t *pgTx) UpdateBreak(ctx context.Context, b *model.BreakInterval) error {
	query := `UPDATE break_intervals
              SET break_end = $1,
                  duration_minutes = $2,
                  evidence_end = $3
              WHERE id = $4`

	_, err := t.tx.ExecContext(ctx, query, b.BreakEnd, b.DurationMinutes, b.EvidenceEnd, b.ID)
	if err != nil {
		return classify(err)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.TimeEntry, error) {
	e := &model.TimeEntry{}
	var clockOut, verifiedAt sql.NullTime
	var evidenceIn, evidenceOut, verifiedBy sql.NullString

	err := row.Scan(
		&e.ID, &e.TenantID, &e.EmployeeID, &e.ClockInTime, &clockOut,
		&e.TotalHours, &e.RegularHours, &e.OvertimeHours, &e.Status, &e.RequiresVerification,
		&evidenceIn, &evidenceOut, &verifiedBy, &verifiedAt,
		&e.MinimumFirstBreakMinutes, &e.OvertimeThresholdHours,
	)
	if err != nil {
		return nil, err
	}

	if clockOut.Valid {
		t := clockOut.Time
		e.ClockOutTime = &t
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		e.VerifiedAt = &t
	}
	e.EvidenceIn = nullableString(evidenceIn)
	e.EvidenceOut = nullableString(evidenceOut)
	e.VerifiedBy = nullableString(verifiedBy)
	return e, nil
}

func scanBreak(row scanner) (*model.BreakInterval, error) {
	b := &model.BreakInterval{}
	var breakEnd sql.NullTime
	var duration sql.NullInt64
	var evidenceStart, evidenceEnd sql.NullString

	err := row.Scan(
		&b.ID, &b.TimeEntryID, &b.TenantID, &b.EmployeeID, &b.BreakNumber,
		&b.BreakStart, &breakEnd, &duration, &b.BreakType, &b.IsPaid,
		&evidenceStart, &evidenceEnd,
	)
	if err != nil {
		return nil, err
	}

	if breakEnd.Valid {
		t := breakEnd.Time
		b.BreakEnd = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		b.DurationMinutes = &d
	}
	b.EvidenceStart = nullableString(evidenceStart)
	b.EvidenceEnd = nullableString(evidenceEnd)
	return b, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

var _ IntervalStore = (*PostgresStore)(nil)
