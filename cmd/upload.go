package cmd

import (
	"mime"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a blob to the first account of the session",
		Long: `Upload a file and print the blob id assigned by the server.
The content type is guessed from the file extension unless --type is given.
Use "-" to upload standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			client, _, err := opts.connect(cmd)
			if err != nil {
				return err
			}

			if contentType == "" && args[0] != stdinName {
				contentType = mime.TypeByExtension(filepath.Ext(args[0]))
			}

			resp, err := client.Upload(cmd.Context(), data, contentType)
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), resp, outputJSON)
		},
	}

	cmd.Flags().StringVar(&contentType, "type", "", "Content type of the blob (default: guessed from the extension, else application/octet-stream)")
	return cmd
}
