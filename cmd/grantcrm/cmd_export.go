package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"grantcrm/internal/blob"
	"grantcrm/internal/core"
	"grantcrm/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		dir     string
		formats []string
		opts    core.ListOptions
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the pipeline to JSON and CSV files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			parsed := make([]export.Format, 0, len(formats))
			for _, raw := range formats {
				f, err := export.ParseFormat(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, f)
			}
			svc, err := a.service(ctx, out)
			if err != nil {
				return err
			}
			store, err := blob.NewFilesystem(dir)
			if err != nil {
				return err
			}
			exporter := export.New(store, a.machine, export.WithLogger(a.logger), export.WithPrefix(""))
			artifacts, err := exporter.Export(ctx, svc.List(ctx, opts), parsed...)
			if err != nil {
				return err
			}
			for _, art := range artifacts {
				where := art.Info.Key
				if p, ok := blob.LocalPath(store, art.Info.Key); ok {
					where = p
				}
				fmt.Fprintf(out, "Wrote %d grants to %s\n", art.Rows, where)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"json", "csv"}, "formats to write (json, csv)")
	cmd.Flags().Var(&stageListValue{machine: a.machine, stages: &opts.Stages}, "stage", "only grants in these stages (repeatable)")
	cmd.Flags().BoolVar(&opts.SortByDeadline, "by-deadline", false, "sort by deadline, earliest first")
	return cmd
}
