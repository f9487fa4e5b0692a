package domain

import (
	"context"
	"errors"
)

// Transaction exposes the collection operations a store must support within
// an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateGrant(Grant) (Grant, error)
	UpdateGrant(id string, mutator func(*Grant) error) (Grant, error)
	DeleteGrant(id string) error
	CreateTemplate(Template) (Template, error)
	UpdateTemplate(id string, mutator func(*Template) error) (Template, error)
	DeleteTemplate(id string) error
	FindGrant(id string) (Grant, bool)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	FindTemplate(id string) (Template, bool)
}

// ErrKeyNotFound is returned by a ByteStore when the key holds no value.
var ErrKeyNotFound = errors.New("key not found")

// ByteStore is the external key-value byte store the collection is persisted to.
type ByteStore interface {
	// Load returns the bytes stored at key or ErrKeyNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the value at key.
	Save(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
