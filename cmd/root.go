package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version will be set by main
var version = "dev"

// rootCmd represents the base command for the jmap-client application
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "jmap-client",
		Short: "Command-line client and MCP server for JMAP mail servers",
		Long: `jmap-client talks to a JMAP (RFC 8620 / RFC 8621) mail server.

It can run as:
  - A command-line tool to inspect the session and send method calls
  - An MCP (Model Context Protocol) server for AI assistants

The server and credentials are read from the environment (JMAP_SESSION_URL,
JMAP_TOKEN, JMAP_TOKEN_FILE or JMAP_OAUTH_*), optionally from a .env file, and
can be overridden with flags.`,
		SilenceUsage: true,
		Version:      version,
	}

	opts.addFlags(cmd)

	cmd.AddCommand(newSessionCmd(opts))
	cmd.AddCommand(newAccountsCmd(opts))
	cmd.AddCommand(newCapabilitiesCmd(opts))
	cmd.AddCommand(newCallCmd(opts))
	cmd.AddCommand(newMailboxesCmd(opts))
	cmd.AddCommand(newUploadCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newGenerateDocsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "jmap-client version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jmap-client version %s\n", version)
		},
	}
}
