package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Config - подключение к файлу SQLite (драйвер modernc, без cgo)
type Config struct {
	// DSN, например file:outreach.db?_pragma=busy_timeout(5000) или :memory:
	DSN string
}

// NewClient открывает БД, включает внешние ключи и проверяет соединение.
// SQLite допускает одного писателя, поэтому пул ограничен одним соединением;
// для :memory: это ещё и единственный способ видеть одну и ту же БД.
func NewClient(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("SQLITE_DSN configuration is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping sqlite database: %w", err)
	}
	return db, nil
}
