package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"grantcrm/internal/core"
)

var _ core.Sessions = (*FileStore)(nil)

func TestSignInSignOut(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "state", "session.json"))

	email, err := store.Current(ctx)
	if err != nil || email != "" {
		t.Fatalf("expected no session, got %q %v", email, err)
	}

	sess, err := store.SignIn(ctx, "  aadi@lilipadlibrary.org ")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.Email != "aadi@lilipadlibrary.org" || sess.SignedIn.IsZero() {
		t.Fatalf("unexpected session %+v", sess)
	}
	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file should be private, got %v", info.Mode().Perm())
	}
	loaded, ok, err := store.Load(ctx)
	if err != nil || !ok || loaded.Email != sess.Email {
		t.Fatalf("load: %+v %v %v", loaded, ok, err)
	}

	if err := store.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if err := store.SignOut(ctx); err != nil {
		t.Fatalf("second sign out: %v", err)
	}
	if email, _ := store.Current(ctx); email != "" {
		t.Fatalf("expected signed out, got %q", email)
	}
}

func TestSignInRequiresEmail(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if _, err := store.SignIn(context.Background(), " "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGateSignsOutForeignDomain(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if _, err := store.SignIn(ctx, "someone@gmail.com"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	gate := core.AccessGate{Domain: "lilipadlibrary.org"}
	if _, err := gate.Enforce(ctx, store); err == nil {
		t.Fatalf("expected deny")
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatalf("session file should be removed on deny")
	}
}

func TestLoadCorruptSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}
