// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver ("pgx")
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/constant"
	"github.com/traylinx/modelsettings/internal/util"
)

const settingColumns = "project_id, model_id, model_name, enabled, is_default, updated_at"

// SQLStore implements Store over database/sql for SQLite and Postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects to the database, applies the schema and returns a store.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("store: dsn cannot be empty")
	}
	switch driver {
	case constant.DriverSQLite, constant.DriverPostgres:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	if driver == constant.DriverSQLite {
		// One connection serializes writers, which also serializes default swaps.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		if _, err = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: failed to set busy timeout: %w", err)
		}
		if !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory") {
			if _, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("store: failed to enable WAL: %w", err)
			}
		}
	} else if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	s := New(db, driver)
	if err = s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.WithFields(log.Fields{"driver": driver, "dsn": util.MaskDSN(dsn)}).Info("model settings store ready")
	return s, nil
}

// New wraps an existing handle without touching the schema.
func New(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the tables and indexes when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	tsType := "TIMESTAMP"
	if s.driver == constant.DriverPostgres {
		tsType = "TIMESTAMPTZ"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at %s NOT NULL
		)`, constant.ProjectsTable, tsType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			project_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			model_name TEXT,
			enabled BOOLEAN NOT NULL DEFAULT FALSE,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at %s NOT NULL,
			PRIMARY KEY (project_id, model_id)
		)`, constant.ModelSettingsTable, tsType),
		// The database itself refuses a second default for a project.
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_one_default ON %[1]s (project_id) WHERE is_default`, constant.ModelSettingsTable),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.wrap("migrate", err)
		}
	}
	return nil
}

// List returns every row of the project.
func (s *SQLStore) List(ctx context.Context, projectID string) ([]*ModelSetting, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_id = ?", settingColumns, constant.ModelSettingsTable)
	rows, err := s.db.QueryContext(ctx, s.rebind(query), projectID)
	if err != nil {
		return nil, s.wrap("list", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*ModelSetting
	for rows.Next() {
		m, errScan := scanSetting(rows)
		if errScan != nil {
			return nil, s.wrap("list", errScan)
		}
		out = append(out, m)
	}
	if err = rows.Err(); err != nil {
		return nil, s.wrap("list", err)
	}
	return out, nil
}

// Get returns one row or nil.
func (s *SQLStore) Get(ctx context.Context, projectID, modelID string) (*ModelSetting, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_id = ? AND model_id = ?", settingColumns, constant.ModelSettingsTable)
	m, err := scanSetting(s.db.QueryRowContext(ctx, s.rebind(query), projectID, modelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap("get", err)
	}
	return m, nil
}

// GetDefault returns the enabled default row or nil.
func (s *SQLStore) GetDefault(ctx context.Context, projectID string) (*ModelSetting, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_id = ? AND is_default = ? AND enabled = ?", settingColumns, constant.ModelSettingsTable)
	m, err := scanSetting(s.db.QueryRowContext(ctx, s.rebind(query), projectID, true, true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap("get default", err)
	}
	return m, nil
}

func (s *SQLStore) ListEnabledIDs(ctx context.Context, projectID string) ([]string, error) {
	return s.listIDs(ctx, projectID, true)
}

func (s *SQLStore) ListDisabledIDs(ctx context.Context, projectID string) ([]string, error) {
	return s.listIDs(ctx, projectID, false)
}

func (s *SQLStore) listIDs(ctx context.Context, projectID string, enabled bool) ([]string, error) {
	query := fmt.Sprintf("SELECT model_id FROM %s WHERE project_id = ? AND enabled = ?", constant.ModelSettingsTable)
	rows, err := s.db.QueryContext(ctx, s.rebind(query), projectID, enabled)
	if err != nil {
		return nil, s.wrap("list ids", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, s.wrap("list ids", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, s.wrap("list ids", err)
	}
	return ids, nil
}

// SetEnabled upserts enablement in a single statement. The conflict branch
// skips the update when it would disable the default, so a concurrent
// SetDefault cannot slip in between a check and the write.
func (s *SQLStore) SetEnabled(ctx context.Context, projectID, modelID string, enabled bool, name string) error {
	query := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, model_id) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at,
			model_name = COALESCE(NULLIF(%[1]s.model_name, ''), excluded.model_name)
		WHERE %[1]s.is_default = ? OR excluded.enabled = ?`,
		constant.ModelSettingsTable, settingColumns)
	res, err := s.db.ExecContext(ctx, s.rebind(query), projectID, modelID, nullName(name), enabled, false, s.now(), false, true)
	if err != nil {
		return s.wrap("set enabled", err)
	}
	if !affected(res) {
		return ErrIsDefault
	}
	return nil
}

// SetDefault swaps the project default in one transaction. On Postgres a
// transaction-scoped advisory lock keyed by the project serializes concurrent
// swaps; SQLite is already serialized by its single connection.
func (s *SQLStore) SetDefault(ctx context.Context, projectID, modelID, name string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("set default", err)
	}
	defer func() {
		if err != nil {
			if errRollback := tx.Rollback(); errRollback != nil && !errors.Is(errRollback, sql.ErrTxDone) {
				log.WithError(errRollback).Warn("store: rollback failed")
			}
		}
	}()

	if s.driver == constant.DriverPostgres {
		if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", constant.ModelSettingsTable+":"+projectID); err != nil {
			return s.wrap("set default", err)
		}
	}

	now := s.now()
	clearStmt := fmt.Sprintf("UPDATE %s SET is_default = ?, updated_at = ? WHERE project_id = ? AND is_default = ? AND model_id <> ?", constant.ModelSettingsTable)
	if _, err = tx.ExecContext(ctx, s.rebind(clearStmt), false, now, projectID, true, modelID); err != nil {
		return s.wrap("set default", err)
	}

	upsert := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, model_id) DO UPDATE SET
			enabled = excluded.enabled,
			is_default = excluded.is_default,
			updated_at = excluded.updated_at,
			model_name = COALESCE(NULLIF(%[1]s.model_name, ''), excluded.model_name)`,
		constant.ModelSettingsTable, settingColumns)
	if _, err = tx.ExecContext(ctx, s.rebind(upsert), projectID, modelID, nullName(name), true, true, now); err != nil {
		return s.wrap("set default", err)
	}

	if err = tx.Commit(); err != nil {
		return s.wrap("set default", err)
	}
	return nil
}

// Delete removes the row if present. The default row is excluded by the
// statement itself; when nothing was deleted the row is re-read only to tell
// "absent" from "default".
func (s *SQLStore) Delete(ctx context.Context, projectID, modelID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE project_id = ? AND model_id = ? AND is_default = ?", constant.ModelSettingsTable)
	res, err := s.db.ExecContext(ctx, s.rebind(query), projectID, modelID, false)
	if err != nil {
		return s.wrap("delete", err)
	}
	if affected(res) {
		return nil
	}
	row, err := s.Get(ctx, projectID, modelID)
	if err != nil {
		return err
	}
	if row != nil && row.IsDefault {
		return ErrIsDefault
	}
	return nil
}

// InsertIfAbsent inserts a disabled, non-default row unless one exists.
func (s *SQLStore) InsertIfAbsent(ctx context.Context, projectID, modelID, name string) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, model_id) DO NOTHING`, constant.ModelSettingsTable, settingColumns)
	res, err := s.db.ExecContext(ctx, s.rebind(query), projectID, modelID, nullName(name), false, false, s.now())
	if err != nil {
		return false, s.wrap("insert if absent", err)
	}
	return affected(res), nil
}

// BackfillName sets the name only where none is stored.
func (s *SQLStore) BackfillName(ctx context.Context, projectID, modelID, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	query := fmt.Sprintf(`UPDATE %s SET model_name = ?, updated_at = ?
		WHERE project_id = ? AND model_id = ? AND (model_name IS NULL OR model_name = '')`, constant.ModelSettingsTable)
	res, err := s.db.ExecContext(ctx, s.rebind(query), name, s.now(), projectID, modelID)
	if err != nil {
		return false, s.wrap("backfill name", err)
	}
	return affected(res), nil
}

// ProjectExists reports whether the project is in the directory.
func (s *SQLStore) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", constant.ProjectsTable)
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(query), projectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.wrap("project exists", err)
	}
	return true, nil
}

// UpsertProject registers a project or renames an existing one.
func (s *SQLStore) UpsertProject(ctx context.Context, projectID, name string) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`, constant.ProjectsTable)
	if _, err := s.db.ExecContext(ctx, s.rebind(query), projectID, name, s.now()); err != nil {
		return s.wrap("upsert project", err)
	}
	return nil
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.wrap("ping", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) wrap(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// rebind rewrites ? placeholders to $n for Postgres. Queries in this file
// never contain a literal question mark.
func (s *SQLStore) rebind(query string) string {
	if s.driver != constant.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(row rowScanner) (*ModelSetting, error) {
	var (
		m    ModelSetting
		name sql.NullString
	)
	if err := row.Scan(&m.ProjectID, &m.ModelID, &name, &m.Enabled, &m.IsDefault, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ModelName = name.String
	return &m, nil
}

func nullName(name string) sql.NullString {
	name = strings.TrimSpace(name)
	return sql.NullString{String: name, Valid: name != ""}
}

func affected(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}
