package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSessionCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Fetch and print the JMAP session document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), session, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: json or yaml")
	return cmd
}

func newAccountsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the accounts of the session",
		Long: `List the accounts advertised by the session in server order.
The first account is the default for every command that takes an account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := opts.connect(cmd)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPERSONAL\tREAD-ONLY\tDEFAULT")
			if session.Accounts != nil {
				first := true
				for pair := session.Accounts.Oldest(); pair != nil; pair = pair.Next() {
					def := ""
					if first {
						def = "*"
						first = false
					}
					fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n",
						pair.Key, pair.Value.Name, pair.Value.IsPersonal, pair.Value.IsReadOnly, def)
				}
			}
			return tw.Flush()
		},
	}
}

func newCapabilitiesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List the capability URIs sent with every request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			for _, uri := range client.Capabilities() {
				fmt.Fprintln(cmd.OutOrStdout(), uri)
			}
			return nil
		},
	}
}
