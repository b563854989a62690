/*
Package sqlite provides the SQLite-backed implementation of the leave
storage interfaces.

PURPOSE:
  Implements leave.UserStore and leave.RequestStore on mattn/go-sqlite3.
  The same patterns apply to PostgreSQL - only minor dialect differences.

OPTIMISTIC CONCURRENCY:
  Users carry a version column. Updates run as

    UPDATE users SET ..., version = version + 1
    WHERE id = ? AND version = ?

  and a zero-row result on an existing user is reported as
  leave.ErrVersionConflict. This is what turns a concurrent-deduction race
  into a retryable conflict instead of a silent lost update.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): multiple readers don't block,
  single writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: interface definitions
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/amiltenov/DigiLeave/leave"
)

// Store implements the leave storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		available_leave_days INTEGER NOT NULL DEFAULT 0,
		contract_leave_days INTEGER NOT NULL DEFAULT 0,
		working_since TEXT NOT NULL DEFAULT '',
		assignee_ids_json TEXT NOT NULL DEFAULT '[]',
		version INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		workdays_count INTEGER NOT NULL,
		leave_type TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		decision_seen INTEGER NOT NULL DEFAULT 0,
		decided_by_user_id TEXT NOT NULL DEFAULT '',
		decided_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USER STORE
// =============================================================================

const userColumns = `id, email, full_name, role, available_leave_days,
	contract_leave_days, working_since, assignee_ids_json, version`

func (s *Store) GetUser(ctx context.Context, id string) (*leave.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*leave.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]*leave.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

func (s *Store) ListUsersByIDs(ctx context.Context, ids []string) ([]*leave.User, error) {
	if len(ids) == 0 {
		return []*leave.User{}, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders+`) ORDER BY id`, args...)
}

func (s *Store) SaveUser(ctx context.Context, u *leave.User) (*leave.User, error) {
	assignees, err := json.Marshal(u.AssigneeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assignees: %w", err)
	}

	// Version-checked update first.
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, full_name = ?, role = ?,
			available_leave_days = ?, contract_leave_days = ?,
			working_since = ?, assignee_ids_json = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		u.Email, u.FullName, string(u.Role),
		u.AvailableLeaveDays, u.ContractLeaveDays,
		formatDate(u.WorkingSince), string(assignees),
		u.ID, u.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 1 {
		saved := u.Clone()
		saved.Version++
		return saved, nil
	}

	// Zero rows: either the record exists with a newer version (conflict)
	// or it does not exist yet (insert).
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE id = ?`, u.ID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, leave.ErrVersionConflict
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, role, available_leave_days,
			contract_leave_days, working_since, assignee_ids_json, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		u.ID, u.Email, u.FullName, string(u.Role),
		u.AvailableLeaveDays, u.ContractLeaveDays,
		formatDate(u.WorkingSince), string(assignees))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return nil, leave.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	saved := u.Clone()
	saved.Version = 1
	return saved, nil
}

// SaveUsers saves a batch best-effort: every record is attempted, the
// first error is returned after the whole batch.
func (s *Store) SaveUsers(ctx context.Context, us []*leave.User) error {
	var first error
	for _, u := range us {
		if _, err := s.SaveUser(ctx, u); err != nil && first == nil {
			first = fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	return first
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return leave.ErrUserNotFound
	}
	return nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]*leave.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	out := []*leave.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*leave.User, error) {
	var (
		u            leave.User
		role         string
		workingSince string
		assigneeJSON string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &role,
		&u.AvailableLeaveDays, &u.ContractLeaveDays,
		&workingSince, &assigneeJSON, &u.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Role = leave.Role(role)
	u.WorkingSince = parseDate(workingSince)
	if err := json.Unmarshal([]byte(assigneeJSON), &u.AssigneeIDs); err != nil {
		return nil, fmt.Errorf("failed to decode assignees: %w", err)
	}
	return &u, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

const requestColumns = `id, user_id, start_date, end_date, workdays_count,
	leave_type, comment, status, decision_seen, decided_by_user_id,
	decided_at, created_at`

func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	return r, err
}

func (s *Store) ListRequestsByUser(ctx context.Context, userID string) ([]*leave.Request, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE user_id = ? ORDER BY created_at`, userID)
}

func (s *Store) ListRequestsByUsers(ctx context.Context, userIDs []string) ([]*leave.Request, error) {
	if len(userIDs) == 0 {
		return []*leave.Request{}, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE user_id IN (`+placeholders+`) ORDER BY created_at`,
		args...)
}

func (s *Store) ListRequests(ctx context.Context) ([]*leave.Request, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests ORDER BY created_at`)
}

func (s *Store) SaveRequest(ctx context.Context, r *leave.Request) (*leave.Request, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, user_id, start_date, end_date,
			workdays_count, leave_type, comment, status, decision_seen,
			decided_by_user_id, decided_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			workdays_count = excluded.workdays_count,
			leave_type = excluded.leave_type,
			comment = excluded.comment,
			status = excluded.status,
			decision_seen = excluded.decision_seen,
			decided_by_user_id = excluded.decided_by_user_id,
			decided_at = excluded.decided_at`,
		r.ID, r.UserID, formatDate(r.StartDate), formatDate(r.EndDate),
		r.WorkdaysCount, string(r.Type), r.Comment, string(r.Status),
		boolToInt(r.DecisionSeen), r.DecidedByUserID,
		formatTime(r.DecidedAt), formatTime(r.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}
	return r.Clone(), nil
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]*leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	out := []*leave.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (*leave.Request, error) {
	var (
		r            leave.Request
		startDate    string
		endDate      string
		leaveType    string
		status       string
		decisionSeen int
		decidedAt    string
		createdAt    string
	)
	err := row.Scan(&r.ID, &r.UserID, &startDate, &endDate,
		&r.WorkdaysCount, &leaveType, &r.Comment, &status,
		&decisionSeen, &r.DecidedByUserID, &decidedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	r.StartDate = parseDate(startDate)
	r.EndDate = parseDate(endDate)
	r.Type = leave.LeaveType(leaveType)
	r.Status = leave.Status(status)
	r.DecisionSeen = decisionSeen != 0
	r.DecidedAt = parseTime(decidedAt)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
