package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"grantcrm/docs/schema"
	"grantcrm/pkg/domain"
)

// DefaultCollectionKey is the byte-store key holding the collection.
const DefaultCollectionKey = "grantcrm/collection.json"

// EncodeCollection serializes c in the current schema layout.
func EncodeCollection(c Collection) ([]byte, error) {
	out := c.Clone()
	out.SchemaVersion = domain.CurrentSchemaVersion
	return json.MarshalIndent(out, "", "  ")
}

type collectionHeader struct {
	SchemaVersion *int            `json:"schema_version"`
	Items         json.RawMessage `json:"items"`
}

// DecodeCollection parses a persisted payload of any supported schema version,
// validating it against the embedded JSON Schema and upgrading legacy layouts.
// The second return reports whether an upgrade happened.
func DecodeCollection(payload []byte) (Collection, bool, error) {
	var header collectionHeader
	if err := json.Unmarshal(payload, &header); err != nil {
		return Collection{}, false, fmt.Errorf("decode collection: %w", err)
	}
	version := domain.SchemaV1
	if header.SchemaVersion != nil {
		version = *header.SchemaVersion
	} else if header.Items == nil {
		return Collection{}, false, errors.New("decode collection: missing schema_version")
	}
	if err := schema.ValidateCollection(version, payload); err != nil {
		return Collection{}, false, err
	}
	switch version {
	case domain.SchemaV1:
		var legacy domain.LegacyCollection
		if err := json.Unmarshal(payload, &legacy); err != nil {
			return Collection{}, false, fmt.Errorf("decode v1 collection: %w", err)
		}
		return domain.UpgradeCollection(legacy).Clone(), true, nil
	case domain.SchemaV2:
		var c Collection
		if err := json.Unmarshal(payload, &c); err != nil {
			return Collection{}, false, fmt.Errorf("decode v2 collection: %w", err)
		}
		return c.Clone(), false, nil
	default:
		return Collection{}, false, fmt.Errorf("unsupported schema version %d", version)
	}
}

// LoadSource describes where a loaded collection came from.
type LoadSource string

const (
	// LoadStored means the persisted payload was decoded as-is.
	LoadStored LoadSource = "stored"
	// LoadUpgraded means a legacy payload was decoded and upgraded.
	LoadUpgraded LoadSource = "upgraded"
	// LoadSeedMissing means nothing was stored and the seed was used.
	LoadSeedMissing LoadSource = "seed_missing"
	// LoadSeedCorrupt means the payload could not be decoded and the seed was used.
	LoadSeedCorrupt LoadSource = "seed_corrupt"
	// LoadSeedUnreadable means the byte store failed and the seed was used.
	LoadSeedUnreadable LoadSource = "seed_unreadable"
)

// LoadReport describes the outcome of SnapshotStore.Load.
type LoadReport struct {
	Source LoadSource
	Err    error
}

// Fallback reports whether the seed collection replaced stored data.
func (r LoadReport) Fallback() bool {
	return r.Source != LoadStored && r.Source != LoadUpgraded
}

// SnapshotStore reads and writes the whole collection under one key.
type SnapshotStore struct {
	Store ByteStore
	Key   string
	// Seed builds the fallback collection; DefaultSeed when nil.
	Seed func() Collection
}

// NewSnapshotStore binds store to key (DefaultCollectionKey when empty).
func NewSnapshotStore(store ByteStore, key string) *SnapshotStore {
	if key == "" {
		key = DefaultCollectionKey
	}
	return &SnapshotStore{Store: store, Key: key}
}

func (s *SnapshotStore) seed() Collection {
	if s.Seed != nil {
		return s.Seed()
	}
	return DefaultSeed()
}

// Load returns the stored collection or the seed. It never fails: read and
// decode errors are reported in LoadReport and the seed is returned. The
// stored payload is left untouched on fallback.
func (s *SnapshotStore) Load(ctx context.Context) (Collection, LoadReport) {
	payload, err := s.Store.Load(ctx, s.Key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return s.seed(), LoadReport{Source: LoadSeedMissing}
	}
	if err != nil {
		return s.seed(), LoadReport{Source: LoadSeedUnreadable, Err: &PersistenceError{Op: "load", Key: s.Key, Err: err}}
	}
	c, upgraded, err := DecodeCollection(payload)
	if err != nil {
		return s.seed(), LoadReport{Source: LoadSeedCorrupt, Err: err}
	}
	if upgraded {
		return c, LoadReport{Source: LoadUpgraded}
	}
	return c, LoadReport{Source: LoadStored}
}

// Persist writes c in full.
func (s *SnapshotStore) Persist(ctx context.Context, c Collection) error {
	payload, err := EncodeCollection(c)
	if err != nil {
		return &PersistenceError{Op: "encode", Key: s.Key, Err: err}
	}
	if err := s.Store.Save(ctx, s.Key, payload); err != nil {
		return &PersistenceError{Op: "save", Key: s.Key, Err: err}
	}
	return nil
}

// Remove deletes the stored collection.
func (s *SnapshotStore) Remove(ctx context.Context) error {
	if err := s.Store.Remove(ctx, s.Key); err != nil {
		return &PersistenceError{Op: "remove", Key: s.Key, Err: err}
	}
	return nil
}
