package blob

import (
	"bytes"
	"context"
	"errors"
	"io"

	"grantcrm/pkg/domain"
)

const collectionContentType = "application/json"

// ByteStore adapts a blob Store to the domain.ByteStore contract.
type ByteStore struct {
	store Store
}

var _ domain.ByteStore = (*ByteStore)(nil)

// NewByteStore wraps store.
func NewByteStore(store Store) *ByteStore {
	return &ByteStore{store: store}
}

// Blob returns the wrapped blob store.
func (b *ByteStore) Blob() Store { return b.store }

// Load reads the full object at key.
func (b *ByteStore) Load(ctx context.Context, key string) ([]byte, error) {
	_, rc, err := b.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// Save replaces the object at key.
func (b *ByteStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := b.store.Put(ctx, key, bytes.NewReader(value), PutOptions{
		ContentType: collectionContentType,
		Metadata:    map[string]string{"writer": "grantcrm"},
	})
	return err
}

// Remove deletes key; a missing key is not an error.
func (b *ByteStore) Remove(ctx context.Context, key string) error {
	_, err := b.store.Delete(ctx, key)
	return err
}
