package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"grantcrm/internal/core"
)

func newAddCmd(a *app) *cobra.Command {
	var f grantFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a grant to intake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			g, res, err := svc.Create(cmd.Context(), f.grant())
			if err != nil {
				return err
			}
			printWarnings(out, res)
			fmt.Fprintf(out, "Created grant %s\n", g.ID)
			return nil
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		opts   core.ListOptions
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			grants := svc.List(cmd.Context(), opts)
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(grants)
			}
			renderGrantTable(out, a.machine, grants)
			return nil
		},
	}
	cmd.Flags().Var(&stageListValue{machine: a.machine, stages: &opts.Stages}, "stage", "only grants in these stages (repeatable)")
	cmd.Flags().BoolVar(&opts.SortByDeadline, "by-deadline", false, "sort by deadline, earliest first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func renderGrantTable(w io.Writer, machine *core.StageMachine, grants []core.Grant) {
	if len(grants) == 0 {
		fmt.Fprintln(w, "No grants")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "GRANT", "FUNDER", "DEADLINE", "STAGE", "CONTACT", "ACTIVITY")
	for _, g := range grants {
		activity := ""
		if !g.LastActivity.IsZero() {
			activity = humanize.Time(g.LastActivity)
		}
		t.Row(shortID(g.ID), g.Name, g.Funder, g.Deadline, machine.Label(g.Stage), g.ContactEmail, activity)
	}
	fmt.Fprintln(w, t.Render())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveID expands an id prefix shown by list into a full grant id.
func resolveID(svc *core.Service, cmd *cobra.Command, prefix string) (string, error) {
	var matches []string
	for _, g := range svc.List(cmd.Context(), core.ListOptions{}) {
		if g.ID == prefix {
			return g.ID, nil
		}
		if strings.HasPrefix(g.ID, prefix) {
			matches = append(matches, g.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return prefix, nil
	default:
		return "", fmt.Errorf("id prefix %q is ambiguous (%d grants)", prefix, len(matches))
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			id, err := resolveID(svc, cmd, args[0])
			if err != nil {
				return err
			}
			g, err := svc.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			rows := [][2]string{
				{"ID", g.ID},
				{"Grant", g.Name},
				{"Funder", g.Funder},
				{"Website", g.Website},
				{"Deadline", g.Deadline},
				{"Region", g.Region},
				{"Sector", g.Sector},
				{"Amount", g.Amount},
				{"Contact", strings.TrimSpace(g.ContactName + " <" + g.ContactEmail + ">")},
				{"Stage", a.machine.Label(g.Stage)},
				{"Activity", humanize.Time(g.LastActivity)},
				{"Notes", g.Notes},
			}
			for _, r := range rows {
				fmt.Fprintf(out, "%-9s %s\n", r[0]+":", r[1])
			}
			if g.Draft != nil {
				fmt.Fprintf(out, "\nDraft subject: %s\n%s\n", g.Draft.Subject, g.Draft.Body)
			}
			return nil
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var (
		f     grantFlags
		stage core.Stage
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change grant fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			id, err := resolveID(svc, cmd, args[0])
			if err != nil {
				return err
			}
			patch := f.patch(cmd.Flags())
			if cmd.Flags().Changed("stage") {
				patch.Stage = &stage
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to change: pass at least one field flag")
			}
			g, res, err := svc.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			printWarnings(out, res)
			fmt.Fprintf(out, "Updated %s (%s)\n", g.Name, a.machine.Label(g.Stage))
			return nil
		},
	}
	f.bind(cmd.Flags())
	cmd.Flags().Var(newStageValue(a.machine, &stage), "stage", "move to stage ("+stageChoices(a.machine)+")")
	return cmd
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID STAGE",
		Short: "Move a grant to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var target core.Stage
			if err := newStageValue(a.machine, &target).Set(args[1]); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			id, err := resolveID(svc, cmd, args[0])
			if err != nil {
				return err
			}
			g, plan, res, err := svc.Transition(cmd.Context(), id, target)
			if err != nil {
				return err
			}
			printWarnings(out, res)
			if !plan.Changed {
				fmt.Fprintf(out, "%s is already in %s\n", g.Name, a.machine.Label(target))
				return nil
			}
			fmt.Fprintf(out, "Moved %s: %s -> %s\n", g.Name, a.machine.Label(plan.From), a.machine.Label(plan.To))
			return nil
		},
	}
}

func newBulkMoveCmd(a *app) *cobra.Command {
	var target core.Stage
	cmd := &cobra.Command{
		Use:   "bulk-move --to STAGE ID...",
		Short: "Move several grants at once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			sel := core.NewSelection()
			for _, arg := range args {
				id, err := resolveID(svc, cmd, arg)
				if err != nil {
					return err
				}
				if !sel.Contains(id) {
					sel.Toggle(id)
				}
			}
			result := svc.BulkAdvance(cmd.Context(), sel, target)
			printWarnings(out, result.Result)
			for _, o := range result.Outcomes {
				switch {
				case o.Err != nil:
					fmt.Fprintf(out, "  %s: %v\n", shortID(o.ID), o.Err)
				case !o.Changed:
					fmt.Fprintf(out, "  %s: already in %s\n", shortID(o.ID), a.machine.Label(target))
				default:
					fmt.Fprintf(out, "  %s: moved\n", shortID(o.ID))
				}
			}
			fmt.Fprintf(out, "Moved %d of %d to %s\n", result.Succeeded(), len(result.Outcomes), a.machine.Label(target))
			if failed := len(result.Failed()); failed > 0 {
				return fmt.Errorf("%d grants could not be moved", failed)
			}
			return nil
		},
	}
	cmd.Flags().Var(newStageValue(a.machine, &target), "to", "target stage")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a grant (not allowed while in intake)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			id, err := resolveID(svc, cmd, args[0])
			if err != nil {
				return err
			}
			res, err := svc.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			printWarnings(out, res)
			fmt.Fprintf(out, "Deleted %s\n", id)
			return nil
		},
	}
}
