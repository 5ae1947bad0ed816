package internal

import (
	"context"
	"fmt"

	"outreach-service/internal/adapters/memory"
	postgres_adapter "outreach-service/internal/adapters/postgres"
	sqlite_adapter "outreach-service/internal/adapters/sqlite"
	"outreach-service/internal/configs"
	"outreach-service/internal/core/port"
	"outreach-service/pkg/postgres"
	"outreach-service/pkg/sqlite"
)

// storageSet - все порты хранилища одного драйвера
type storageSet struct {
	listings     port.ListingStoragePort
	tasks        port.TaskRepositoryPort
	interactions port.InteractionLogPort
	profiles     port.ClientProfileRepositoryPort
	close        func() error
}

// openStorage подключает выбранный драйвер и применяет миграции
func openStorage(ctx context.Context, cfg configs.StorageConfig, logger port.LoggerPort) (*storageSet, error) {
	switch cfg.Driver {
	case configs.StorageDriverPostgres:
		pool, err := postgres.NewClient(ctx, postgres.Config{DatabaseURL: cfg.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		logger.Info("Successfully connected to PostgreSQL pool!", nil)

		if err := postgres_adapter.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply postgres migrations: %w", err)
		}
		adapter, err := postgres_adapter.NewPostgresStorageAdapter(pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create postgres storage adapter: %w", err)
		}
		return &storageSet{
			listings:     adapter,
			tasks:        adapter,
			interactions: adapter,
			profiles:     adapter,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	case configs.StorageDriverSQLite:
		db, err := sqlite.NewClient(ctx, sqlite.Config{DSN: cfg.SQLiteDSN})
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		logger.Info("SQLite database opened", port.Fields{"dsn": cfg.SQLiteDSN})

		adapter, err := sqlite_adapter.NewSQLiteStorageAdapter(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create sqlite storage adapter: %w", err)
		}
		if err := adapter.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply sqlite migrations: %w", err)
		}
		return &storageSet{
			listings:     adapter,
			tasks:        adapter,
			interactions: adapter,
			profiles:     adapter,
			close:        db.Close,
		}, nil

	case configs.StorageDriverMemory:
		logger.Warn("Using in-memory storage, data is lost on restart", nil)
		return &storageSet{
			listings:     memory.NewListingStore(),
			tasks:        memory.NewTaskRepository(),
			interactions: memory.NewInteractionLog(),
			profiles:     memory.NewClientProfileRepository(),
			close:        func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
