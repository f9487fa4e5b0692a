package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"grantcrm/internal/core"
)

func TestWatchLoopCoalescesWritesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, w, zap.NewNop(), func() error {
			calls.Add(1)
			return nil
		})
	}()

	path := filepath.Join(dir, "collection.json")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0o600))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, w.Close())
	require.LessOrEqual(t, calls.Load(), int32(2))
}

func TestWatchLoopEndsWhenWatcherCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(context.Background(), w, zap.NewNop(), func() error { return nil })
	}()
	require.NoError(t, w.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestRenderBoardListsUnknownStages(t *testing.T) {
	m := core.DefaultStageMachine()
	board := m.Group([]core.Grant{
		{ID: "aaaaaaaa-1", Name: "Known", Stage: "qualified", Deadline: "2026-12-01"},
		{ID: "bbbbbbbb-2", Name: "Orphan", Stage: "archived"},
	})
	view := renderBoard(m, board)
	require.Contains(t, view, "Qualified (1)")
	require.Contains(t, view, "Known")
	require.Contains(t, view, "due 2026-12-01")
	require.Contains(t, view, "Unknown stage:")
	require.Contains(t, view, "bbbbbbbb  Orphan [archived]")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
