package blob

import (
	"context"
	"fmt"

	"grantcrm/internal/infra/blob/fs"
	memorystore "grantcrm/internal/infra/blob/memory"
	infraS3 "grantcrm/internal/infra/blob/s3"
)

// S3Config re-exports the infra S3 configuration type.
type S3Config = infraS3.Config

// Config selects and configures a blob driver.
type Config struct {
	Driver Driver
	// FSRoot is the directory root when Driver is fs.
	FSRoot string
	S3     S3Config
}

// Open constructs the configured blob.Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewFilesystem constructs a filesystem-backed blob.Store rooted at the provided path.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory blob.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed blob.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewMockS3ForTests exposes the in-process S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }

// LocalPath returns the file backing key when store is filesystem-backed.
func LocalPath(store Store, key string) (string, bool) {
	f, ok := store.(*fs.Store)
	if !ok {
		return "", false
	}
	p, err := f.PathFor(key)
	if err != nil {
		return "", false
	}
	return p, true
}
