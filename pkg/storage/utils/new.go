package storageutils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docrag/pkg/storage"
	"github.com/papercomputeco/docrag/pkg/storage/inmemory"
	"github.com/papercomputeco/docrag/pkg/storage/postgres"
	"github.com/papercomputeco/docrag/pkg/storage/sqlite"
)

type NewStorageDriverOpts struct {
	// ProviderType is one of sqlite, postgres or inmemory.
	ProviderType string
	SQLitePath   string
	PostgresDSN  string
	Logger       *slog.Logger
}

func NewStorageDriver(ctx context.Context, o *NewStorageDriverOpts) (storage.Driver, error) {
	switch o.ProviderType {
	case "sqlite", "":
		if o.SQLitePath == "" {
			return nil, errors.New("sqlite storage requires a database path")
		}
		driver, err := sqlite.NewDriver(ctx, o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		o.Logger.Info("using SQLite storage", "path", o.SQLitePath)
		return driver, nil
	case "postgres":
		if o.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires a DSN")
		}
		driver, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		o.Logger.Info("using PostgreSQL storage")
		return driver, nil
	case "inmemory":
		o.Logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
