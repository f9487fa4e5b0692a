package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"grantcrm/internal/config"
	"grantcrm/internal/core"
	"grantcrm/internal/session"
)

// app carries per-invocation state shared by the commands.
type app struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	sessions *session.FileStore
	metrics  *core.PrometheusMetricsRecorder
	machine  *core.StageMachine
	opener   core.Opener

	store core.ByteStore
	svc   *core.Service
}

func newApp() *app {
	return &app{machine: core.DefaultStageMachine(), opener: execOpener{}}
}

func (a *app) gate() core.AccessGate {
	return core.AccessGate{Domain: a.cfg.Access.Domain}
}

// service authorizes the session and opens the collection.
func (a *app) service(ctx context.Context, out io.Writer) (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	if _, err := a.gate().Enforce(ctx, a.sessions); err != nil {
		var unauth core.ErrUnauthorized
		if errors.As(err, &unauth) && unauth.Email == "" {
			return nil, fmt.Errorf("not signed in: run `grantcrm login you@%s`", a.cfg.Access.Domain)
		}
		return nil, err
	}
	store, err := core.OpenByteStore(ctx, a.cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", a.cfg.Storage.Driver, err)
	}
	a.store = store
	snapshots := core.NewSnapshotStore(store, a.cfg.Storage.Key)
	svc, report := core.OpenService(ctx, snapshots,
		core.WithLogger(a.logger),
		core.WithStageMachine(a.machine),
		core.WithMetrics(a.metrics),
		core.WithEffects(celebrate(out)),
		core.WithOpener(a.opener),
		core.WithOutreachClient(core.OutreachClient(a.cfg.Outreach.Client)),
		core.WithStrictPromotion(a.cfg.Pipeline.StrictPromotion),
	)
	if report.Err != nil {
		fmt.Fprintf(out, "warning: stored data could not be read (%v); showing seed data\n", report.Err)
	}
	a.svc = svc
	return svc, nil
}

// close writes metrics and releases the byte store.
func (a *app) close() error {
	var errs []error
	if a.metrics != nil && a.cfg != nil && a.cfg.Metrics.Textfile != "" && a.svc != nil {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if a.store != nil {
		if err := core.CloseByteStore(a.store); err != nil {
			errs = append(errs, err)
		}
		a.store = nil
	}
	a.svc = nil
	return errors.Join(errs...)
}

func celebrate(w io.Writer) core.EffectsFunc {
	return func(_ context.Context, g core.Grant) {
		fmt.Fprintf(w, "Marked as WON! %s\n", g.Name)
	}
}

func printWarnings(w io.Writer, res core.Result) {
	for _, v := range res.Warnings() {
		if v.Rule == core.RulePersistence {
			fmt.Fprintf(w, "warning: change kept in memory but not saved: %s\n", v.Message)
			continue
		}
		fmt.Fprintf(w, "warning: %s: %s\n", v.Rule, v.Message)
	}
}

// execOpener hands a URI to the desktop handler.
type execOpener struct{}

func (execOpener) Open(ctx context.Context, uri string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", uri)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", uri)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", uri)
	}
	return cmd.Start()
}

// printOpener writes the URI instead of opening it.
type printOpener struct{ w io.Writer }

func (p printOpener) Open(_ context.Context, uri string) error {
	_, err := fmt.Fprintln(p.w, uri)
	return err
}
