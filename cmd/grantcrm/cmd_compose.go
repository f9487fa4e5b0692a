package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newComposeCmd(a *app) *cobra.Command {
	var (
		templateID string
		subject    string
		body       string
		saveDraft  bool
		send       bool
		noOpen     bool
	)
	cmd := &cobra.Command{
		Use:   "compose ID",
		Short: "Draft outreach for a grant from a template",
		Long: `Render a template against the grant. Without --template the saved draft is
used when present, otherwise the first template. --subject and --body replace
the rendered text. --save-draft stores the result on the grant; --send opens a
compose window addressed to the grant's contact and records the activity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if noOpen {
				a.opener = printOpener{w: out}
			}
			svc, err := a.service(ctx, out)
			if err != nil {
				return err
			}
			id, err := resolveID(svc, cmd, args[0])
			if err != nil {
				return err
			}
			merged, err := svc.Compose(ctx, id, templateID)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("subject") {
				merged.Subject = subject
			}
			if cmd.Flags().Changed("body") {
				merged.Body = body
			}
			fmt.Fprintf(out, "Subject: %s\n\n%s\n", merged.Subject, merged.Body)
			if saveDraft {
				_, res, err := svc.SaveDraft(ctx, id, merged.Subject, merged.Body)
				if err != nil {
					return err
				}
				printWarnings(out, res)
				fmt.Fprintln(out, "Draft saved")
			}
			if send {
				_, g, res, err := svc.SendOutreach(ctx, id, merged.Subject, merged.Body)
				if err != nil {
					return err
				}
				printWarnings(out, res)
				fmt.Fprintf(out, "Compose window opened for %s\n", g.ContactEmail)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "template id")
	cmd.Flags().StringVar(&subject, "subject", "", "override the subject")
	cmd.Flags().StringVar(&body, "body", "", "override the body")
	cmd.Flags().BoolVar(&saveDraft, "save-draft", false, "store the text on the grant")
	cmd.Flags().BoolVar(&send, "send", false, "open a compose window and record the activity")
	cmd.Flags().BoolVar(&noOpen, "no-open", false, "print the compose link instead of opening it")
	return cmd
}
