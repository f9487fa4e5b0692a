package core

import (
	"context"
	"fmt"
	"io"

	"grantcrm/internal/blob"
	"grantcrm/internal/infra/persistence/memory"
	"grantcrm/internal/infra/persistence/postgres"
	"grantcrm/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete byte store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageFS       StorageDriver = "fs"       // one JSON file under a directory
	StorageS3       StorageDriver = "s3"       // S3-compatible bucket
)

// StorageConfig selects and configures the byte store backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	FSRoot      string
	S3          blob.S3Config
}

// Drivers lists the supported storage drivers.
func Drivers() []StorageDriver {
	return []StorageDriver{StorageSQLite, StorageFS, StorageMemory, StoragePostgres, StorageS3}
}

// OpenByteStore constructs the configured backend. Defaults to sqlite when
// the driver is unset. Backends holding connections implement io.Closer; use
// CloseByteStore to release them.
func OpenByteStore(ctx context.Context, cfg StorageConfig) (ByteStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case StorageFS:
		store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverFilesystem, FSRoot: cfg.FSRoot})
		if err != nil {
			return nil, err
		}
		return blob.NewByteStore(store), nil
	case StorageS3:
		store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverS3, S3: cfg.S3})
		if err != nil {
			return nil, err
		}
		return blob.NewByteStore(store), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// CloseByteStore releases store resources when it holds any.
func CloseByteStore(store ByteStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
