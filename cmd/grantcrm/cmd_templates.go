package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"grantcrm/internal/core"
)

func newTemplatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "Manage outreach templates",
	}
	cmd.AddCommand(
		newTemplatesListCmd(a),
		newTemplatesShowCmd(a),
		newTemplatesAddCmd(a),
		newTemplatesEditCmd(a),
		newTemplatesDeleteCmd(a),
		newTemplatesImportCmd(a),
	)
	return cmd
}

func newTemplatesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			t := table.New().Border(lipgloss.NormalBorder()).Headers("ID", "NAME", "SUBJECT")
			for _, tpl := range svc.ListTemplates(cmd.Context()) {
				t.Row(tpl.ID, tpl.Name, tpl.Subject)
			}
			fmt.Fprintln(out, t.Render())
			fmt.Fprintf(out, "Placeholders: %s\n", strings.Join(core.MergeTokens(), " "))
			return nil
		},
	}
}

func newTemplatesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			tpl, err := svc.GetTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (%s)\nSubject: %s\n\n%s\n", tpl.Name, tpl.ID, tpl.Subject, tpl.Body)
			return nil
		},
	}
}

type templateFlags struct {
	name, subject, body, bodyFile string
}

func (f *templateFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "template name")
	cmd.Flags().StringVar(&f.subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&f.body, "body", "", "body text")
	cmd.Flags().StringVar(&f.bodyFile, "body-file", "", "read the body from a file")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
}

func (f *templateFlags) resolveBody() error {
	if f.bodyFile == "" {
		return nil
	}
	data, err := os.ReadFile(f.bodyFile)
	if err != nil {
		return err
	}
	f.body = string(data)
	return nil
}

func newTemplatesAddCmd(a *app) *cobra.Command {
	var f templateFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := f.resolveBody(); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			tpl, res, err := svc.CreateTemplate(cmd.Context(), core.Template{Name: f.name, Subject: f.subject, Body: f.body})
			if err != nil {
				return err
			}
			printWarnings(out, res)
			fmt.Fprintf(out, "Created template %s\n", tpl.ID)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newTemplatesEditCmd(a *app) *cobra.Command {
	var f templateFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := f.resolveBody(); err != nil {
				return err
			}
			var patch core.TemplatePatch
			if cmd.Flags().Changed("name") {
				patch.Name = &f.name
			}
			if cmd.Flags().Changed("subject") {
				patch.Subject = &f.subject
			}
			if cmd.Flags().Changed("body") || cmd.Flags().Changed("body-file") {
				patch.Body = &f.body
			}
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			tpl, res, err := svc.UpdateTemplate(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			printWarnings(out, res)
			fmt.Fprintf(out, "Updated template %s\n", tpl.ID)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newTemplatesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			res, err := svc.DeleteTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printWarnings(out, res)
			fmt.Fprintf(out, "Deleted template %s\n", args[0])
			return nil
		},
	}
}

func newTemplatesImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert templates from a JSON or JSONC file",
		Long: `Import templates from a JSON file that may contain comments and trailing
commas. The file holds either an array of templates or {"templates": [...]}.
Templates whose id already exists are replaced; the rest are added.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context(), out)
			if err != nil {
				return err
			}
			imported, res, err := svc.ImportTemplates(cmd.Context(), data)
			if err != nil {
				return err
			}
			printWarnings(out, res)
			fmt.Fprintf(out, "Imported %d templates\n", len(imported))
			return nil
		},
	}
}
