package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Nemolo/jmap-client/internal/jmap"
)

func newMailboxesCmd(opts *rootOptions) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "mailboxes",
		Short: "List mailboxes with their roles and counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.connect(cmd)
			if err != nil {
				return err
			}

			resp, err := client.MailboxGet(cmd.Context(), jmap.GetArgs{AccountID: accountID})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROLE\tTOTAL\tUNREAD")
			for _, mb := range resp.List {
				role := ""
				if mb.Role != nil {
					role = *mb.Role
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", mb.ID, mb.Name, role, mb.TotalEmails, mb.UnreadEmails)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account id (default: the first account of the session)")
	return cmd
}
