package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"grantcrm/internal/core"
)

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored data and restore the sample grants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			if _, err := svc.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Reset to sample data (%d grants, %d templates)\n",
				len(svc.List(cmd.Context(), core.ListOptions{})), len(svc.ListTemplates(cmd.Context())))
			return nil
		},
	}
}

func newStagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List pipeline stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, s := range a.machine.Stages() {
				note := ""
				switch {
				case s.ID == a.machine.Initial():
					note = " (initial, deletion locked)"
				case s.ID == a.machine.Won():
					note = " (terminal, celebrated)"
				case a.machine.IsTerminal(s.ID):
					note = " (terminal)"
				}
				fmt.Fprintf(out, "%-12s %s%s\n", s.ID, s.Label, note)
			}
			return nil
		},
	}
}
