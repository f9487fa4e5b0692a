// Package session persists the asserted sign-in identity for the CLI.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// Session is the stored identity.
type Session struct {
	Email    string    `json:"email"`
	SignedIn time.Time `json:"signed_in_at"`
}

// FileStore keeps one session in a JSON file.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: func() time.Time { return time.Now().UTC() }}
}

// Path returns the session file location.
func (s *FileStore) Path() string { return s.path }

// Load returns the stored session. ok is false when nobody is signed in.
func (s *FileStore) Load(_ context.Context) (Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, fmt.Errorf("decode session %s: %w", s.path, err)
	}
	if sess.Email == "" {
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Current returns the signed-in email, or "" when signed out.
func (s *FileStore) Current(ctx context.Context) (string, error) {
	sess, _, err := s.Load(ctx)
	return sess.Email, err
}

// SignIn records email as the asserted identity.
func (s *FileStore) SignIn(_ context.Context, email string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Session{}, errors.New("email is required")
	}
	sess := Session{Email: email, SignedIn: s.now()}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return Session{}, err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return Session{}, fmt.Errorf("create session dir: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return Session{}, fmt.Errorf("write session: %w", err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return Session{}, fmt.Errorf("chmod session: %w", err)
	}
	return sess, nil
}

// SignOut forgets the stored identity. Signing out twice is not an error.
func (s *FileStore) SignOut(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
