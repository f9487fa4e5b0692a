package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grantcrm/internal/core"
)

const boardColumnWidth = 22

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(boardColumnWidth)
	columnTitleStyle = lipgloss.NewStyle().Bold(true)
	wonTitleStyle    = columnTitleStyle.Foreground(lipgloss.Color("#8BC34A"))
	lostTitleStyle   = columnTitleStyle.Foreground(lipgloss.Color("#9E9E9E"))
	mutedStyle       = lipgloss.NewStyle().Faint(true)
)

func newBoardCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the pipeline as columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			svc, err := a.service(ctx, out)
			if err != nil {
				return err
			}
			render := func() error {
				_, err := fmt.Fprintln(out, renderBoard(a.machine, svc.Board(ctx)))
				return err
			}
			if err := render(); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			dir, err := watchDir(a)
			if err != nil {
				return err
			}
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer func() { _ = watcher.Close() }()
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			a.logger.Debug("watching for board changes", zap.String("dir", dir))
			return watchLoop(ctx, watcher, a.logger, func() error {
				svc.Reload(ctx)
				return render()
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render when the stored collection changes (fs and sqlite storage)")
	return cmd
}

// watchDir picks the directory whose changes signal a collection write.
func watchDir(a *app) (string, error) {
	switch core.StorageDriver(a.cfg.Storage.Driver) {
	case core.StorageFS:
		key := filepath.FromSlash(a.cfg.Storage.Key)
		return filepath.Dir(filepath.Join(a.cfg.Storage.FSRoot, key)), nil
	case core.StorageSQLite, "":
		return filepath.Dir(a.cfg.Storage.SQLitePath), nil
	default:
		return "", fmt.Errorf("--watch needs fs or sqlite storage, have %s", a.cfg.Storage.Driver)
	}
}

// watchLoop calls onChange for every write-like event until ctx is done or
// the watcher is closed. Bursts within a short window collapse into one call.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, logger *zap.Logger, onChange func() error) error {
	const settle = 150 * time.Millisecond
	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("board watcher error", zap.Error(err))
		case <-timer.C:
			if err := onChange(); err != nil {
				return err
			}
		}
	}
}

func renderBoard(machine *core.StageMachine, board core.Board) string {
	cols := make([]string, 0, len(board.Columns))
	for _, c := range board.Columns {
		title := columnTitleStyle
		switch {
		case c.Stage == machine.Won():
			title = wonTitleStyle
		case machine.IsTerminal(c.Stage):
			title = lostTitleStyle
		}
		var b strings.Builder
		b.WriteString(title.Render(fmt.Sprintf("%s (%d)", c.Label, len(c.Grants))))
		for _, g := range c.Grants {
			b.WriteString("\n")
			b.WriteString(truncate(g.Name, boardColumnWidth-2))
			if g.Deadline != "" {
				b.WriteString("\n" + mutedStyle.Render("due "+g.Deadline))
			}
		}
		cols = append(cols, columnStyle.Render(b.String()))
	}
	view := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	if len(board.Unknown) > 0 {
		var b strings.Builder
		b.WriteString("\nUnknown stage:")
		for _, g := range board.Unknown {
			fmt.Fprintf(&b, "\n  %s  %s [%s]", shortID(g.ID), g.Name, g.Stage)
		}
		view += b.String()
	}
	return view
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
