// Command grantcrm tracks grant applications through the outreach pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"grantcrm/internal/config"
	"grantcrm/internal/core"
	"grantcrm/internal/logging"
	"grantcrm/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, newApp(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes one command line against a and releases its resources.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "grantcrm",
		Short: "Track grant opportunities from intake to award",
		Long: `grantcrm keeps a pipeline of grant opportunities, validates them as they
move from intake towards a decision, and drafts outreach email from templates.

Data is stored as a single collection in the configured byte store (sqlite by
default). Sign in with an address on the allowed domain before using data commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newEditCmd(a),
		newMoveCmd(a),
		newBulkMoveCmd(a),
		newDeleteCmd(a),
		newBoardCmd(a),
		newTemplatesCmd(a),
		newComposeCmd(a),
		newExportCmd(a),
		newResetCmd(a),
		newStagesCmd(a),
	)
	return root
}

func (a *app) init() error {
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Verbose: a.verbose})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.sessions = session.NewFileStore(cfg.Session.Path)
	a.metrics = core.NewPrometheusMetricsRecorder()
	return nil
}

// reportError prints err, expanding field-level validation failures.
func reportError(w io.Writer, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		fmt.Fprintln(w, "error: validation failed")
		fields := make([]string, 0, len(verr.Fields))
		for f := range verr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(w, "  %s: %s\n", f, verr.Fields[f])
		}
		return
	}
	fmt.Fprintln(w, "error:", err)
}
