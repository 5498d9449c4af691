// Package storage is the durable record store for users and emissions,
// backed by SQLite. It is the only component that touches SQL; callers
// see domain types from internal/core.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339

// dbtx is satisfied by both *sql.DB and *sql.Tx so the row helpers can
// serve plain calls and batch-import transactions alike.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// The pragma rides in the DSN so every pooled connection gets it:
	// writers queue instead of failing fast on lock contention.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

// CreateUser inserts a user row. Registration itself lives outside the
// core; this exists for the registration collaborator and for seeding.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	registeredAt := u.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC()
	}
	role := u.Role
	if role == "" {
		role = core.RoleUser
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (full_name, email, role, carbon_limit_milligrams, registered_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.FullName, u.Email, string(role), limitArg(u.CarbonLimit), registeredAt.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create user id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	return getUser(ctx, r.db, id)
}

func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	return findUserByEmail(ctx, r.db, email)
}

// UpdateCarbonLimit sets or clears a user's configured limit.
func (r *SQLiteRepository) UpdateCarbonLimit(ctx context.Context, userID int64, limit *core.Amount) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET carbon_limit_milligrams = ? WHERE id = ?`,
		limitArg(limit), userID)
	if err != nil {
		return fmt.Errorf("update carbon limit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update carbon limit: %w", err)
	}
	if n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// ListUserIDs returns every user ID, for whole-population sweeps.
func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// --- emissions ---

// UpsertEmission enforces the one-row-per-(user, date, activity)
// invariant. The update runs first inside the transaction, so SQLite's
// writer lock serializes concurrent upserts for the same key: whichever
// caller enters second sees the committed row and updates it instead of
// inserting a duplicate.
func (r *SQLiteRepository) UpsertEmission(ctx context.Context, e core.Emission) (created bool, id int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE emissions SET amount_milligrams = ?
		 WHERE user_id = ? AND date = ? AND activity_type = ?`,
		e.Amount.Milligrams, e.UserID, e.Date.ISO(), e.ActivityType)
	if err != nil {
		return false, 0, fmt.Errorf("upsert update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("upsert rows affected: %w", err)
	}

	if n > 0 {
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM emissions
			 WHERE user_id = ? AND date = ? AND activity_type = ?
			 ORDER BY id LIMIT 1`,
			e.UserID, e.Date.ISO(), e.ActivityType).Scan(&id)
		if err != nil {
			return false, 0, fmt.Errorf("upsert select id: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, 0, fmt.Errorf("commit upsert: %w", err)
		}
		return false, id, nil
	}

	id, err = insertEmission(ctx, tx, e)
	if err != nil {
		return false, 0, err
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit upsert: %w", err)
	}
	return true, id, nil
}

// InsertEmission writes a row unconditionally, with no natural-key
// check. Used by the administrative path.
func (r *SQLiteRepository) InsertEmission(ctx context.Context, e core.Emission) (int64, error) {
	return insertEmission(ctx, r.db, e)
}

// ListEmissionsSince range-scans a user's emissions with date >= from.
// No upper bound: future-dated corrections are included.
func (r *SQLiteRepository) ListEmissionsSince(ctx context.Context, userID int64, from core.Date) ([]core.Emission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, date, activity_type, amount_milligrams, source, created_at
		 FROM emissions
		 WHERE user_id = ? AND date >= ?
		 ORDER BY date, id`,
		userID, from.ISO())
	if err != nil {
		return nil, fmt.Errorf("list emissions: %w", err)
	}
	defer rows.Close()

	var out []core.Emission
	for rows.Next() {
		e, err := scanEmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list emissions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountEmissions(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count emissions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountEmissionsBySource(ctx context.Context, source core.Source) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM emissions WHERE source = ?`, string(source)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count emissions by source: %w", err)
	}
	return n, nil
}

// --- batch import scope ---

// ImportScope is the slice of the store visible inside a bulk-import
// transaction.
type ImportScope interface {
	FindUserByEmail(ctx context.Context, email string) (core.User, error)
	InsertEmission(ctx context.Context, e core.Emission) (int64, error)
}

type importScope struct {
	tx *sql.Tx
}

func (s importScope) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	return findUserByEmail(ctx, s.tx, email)
}

func (s importScope) InsertEmission(ctx context.Context, e core.Emission) (int64, error) {
	return insertEmission(ctx, s.tx, e)
}

// WithinImportTx runs fn inside one transaction. Any error from fn
// rolls the whole batch back, so an abort mid-batch commits nothing.
func (r *SQLiteRepository) WithinImportTx(ctx context.Context, fn func(ImportScope) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if err := fn(importScope{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// --- row helpers ---

func getUser(ctx context.Context, q dbtx, id int64) (core.User, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, full_name, email, role, carbon_limit_milligrams, registered_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func findUserByEmail(ctx context.Context, q dbtx, email string) (core.User, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, full_name, email, role, carbon_limit_milligrams, registered_at
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func insertEmission(ctx context.Context, q dbtx, e core.Emission) (int64, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO emissions (user_id, date, activity_type, amount_milligrams, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Date.ISO(), e.ActivityType, e.Amount.Milligrams, string(e.Source), createdAt.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert emission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert emission id: %w", err)
	}
	slog.DebugContext(ctx, "Emission row inserted",
		"id", id,
		"user_id", e.UserID,
		"date", e.Date.ISO(),
		"activity_type", e.ActivityType,
		"amount_milligrams", e.Amount.Milligrams,
		"source", string(e.Source))
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u            core.User
		role         string
		limit        sql.NullInt64
		registeredAt string
	)
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &role, &limit, &registeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = core.Role(role)
	if limit.Valid {
		u.CarbonLimit = &core.Amount{Milligrams: limit.Int64}
	}
	if t, err := time.Parse(timeLayout, registeredAt); err == nil {
		u.RegisteredAt = t
	}
	return u, nil
}

func scanEmission(row rowScanner) (core.Emission, error) {
	var (
		e         core.Emission
		date      string
		source    string
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.UserID, &date, &e.ActivityType, &e.Amount.Milligrams, &source, &createdAt); err != nil {
		return core.Emission{}, fmt.Errorf("scan emission: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Emission{}, fmt.Errorf("scan emission date %q: %w", date, err)
	}
	e.Date = d
	e.Source = core.Source(source)
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		e.CreatedAt = t
	}
	return e, nil
}

func limitArg(limit *core.Amount) any {
	if limit == nil {
		return nil
	}
	return limit.Milligrams
}
