// Package sqlite - хранилище на одном файле SQLite для локального запуска.
// Время хранится текстом фиксированной ширины, чтобы сравнение строк
// совпадало со сравнением моментов.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"outreach-service/internal/core/port"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteStorageAdapter struct {
	db *sql.DB
}

var (
	_ port.ListingStoragePort          = (*SQLiteStorageAdapter)(nil)
	_ port.InteractionLogPort          = (*SQLiteStorageAdapter)(nil)
	_ port.TaskRepositoryPort          = (*SQLiteStorageAdapter)(nil)
	_ port.ClientProfileRepositoryPort = (*SQLiteStorageAdapter)(nil)
)

func NewSQLiteStorageAdapter(db *sql.DB) (*SQLiteStorageAdapter, error) {
	if db == nil {
		return nil, fmt.Errorf("sql.DB cannot be nil")
	}
	return &SQLiteStorageAdapter{db: db}, nil
}

// Migrate применяет migrations/*.sql, которых ещё нет в schema_migrations
func (a *SQLiteStorageAdapter) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var count int
		if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, name).Scan(&count); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}
		body, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		err = a.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				name, encodeTime(time.Now()))
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (a *SQLiteStorageAdapter) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}
