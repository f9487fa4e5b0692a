package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grantcrm/internal/blob/core"
)

func TestStorePutOverwritesAtomically(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	first, err := s.Put(ctx, "grantcrm/collection.json", strings.NewReader("one"), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := s.Put(ctx, "grantcrm/collection.json", strings.NewReader("second"), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"schema": "2"}})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if first.ETag == second.ETag || second.Size != int64(len("second")) {
		t.Fatalf("expected new etag and size, got %+v then %+v", first, second)
	}
	info, rc, err := s.Get(ctx, "grantcrm/collection.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	b, _ := io.ReadAll(rc)
	if string(b) != "second" {
		t.Fatalf("unexpected payload %q", b)
	}
	if info.ContentType != "application/json" || info.Metadata["schema"] != "2" {
		t.Fatalf("metadata not persisted: %+v", info)
	}
}

func TestStoreMissingKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := New(t.TempDir())
	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}
	if _, err := s.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Head, got %v", err)
	}
	existed, err := s.Delete(ctx, "nope")
	if err != nil || existed {
		t.Fatalf("expected (false, nil), got (%v, %v)", existed, err)
	}
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := New(t.TempDir())
	for _, key := range []string{"", "  ", "../escape", "/abs"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, _ := New(root)
	for _, k := range []string{"b/two", "a/one", "b/three"} {
		if _, err := s.Put(ctx, k, strings.NewReader(k), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Key != "a/one" {
		t.Fatalf("unexpected listing %+v", all)
	}
	bs, _ := s.List(ctx, "b/")
	if len(bs) != 2 || bs[0].Key != "b/three" {
		t.Fatalf("unexpected prefix listing %+v", bs)
	}
	existed, err := s.Delete(ctx, "a/one")
	if err != nil || !existed {
		t.Fatalf("delete: %v %v", existed, err)
	}
	if _, err := os.Stat(filepath.Join(root, "a", "one.meta")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected sidecar removed, got %v", err)
	}
}

func TestStoreHeadWithoutSidecar(t *testing.T) {
	root := t.TempDir()
	s, _ := New(root)
	if err := os.WriteFile(filepath.Join(root, "manual.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := s.Head(context.Background(), "manual.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.Size != 2 {
		t.Fatalf("expected size from stat, got %d", info.Size)
	}
}
