package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/tools/batch"
)

// stdinName makes --batch and the arguments read standard input.
const stdinName = "-"

type callOptions struct {
	batchFile string
	accountID string
	noAccount bool
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	var callOpts callOptions

	cmd := &cobra.Command{
		Use:   "call [Type/method] [json-arguments]",
		Short: "Send JMAP method calls and print the result",
		Long: `Send a single method call, or with --batch several calls in one request.

The accountId defaults to the first account of the session. A single call
prints its result as sent by the server; a batch prints one result per call
id. Batch files hold a JSON array of [method, arguments, callId] arrays; a
missing callId is generated. Use "-" to read arguments or the batch from
standard input.

Examples:
  jmap-client call Mailbox/get
  jmap-client call Email/query '{"filter": {"inMailbox": "mb1"}, "limit": 10}'
  jmap-client call --batch calls.json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if callOpts.batchFile != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			if callOpts.batchFile != "" {
				return runBatch(cmd, client, callOpts)
			}

			raw := ""
			if len(args) > 1 {
				raw = args[1]
			}
			return runCall(cmd, client, args[0], raw, callOpts)
		},
	}

	cmd.Flags().StringVar(&callOpts.batchFile, "batch", "", "JSON file with [method, arguments, callId] arrays to send in one request")
	cmd.Flags().StringVar(&callOpts.accountID, "account", "", "Account id (default: the first account of the session)")
	cmd.Flags().BoolVar(&callOpts.noAccount, "no-account", false, "Send the arguments exactly as given, without filling in accountId")
	cmd.MarkFlagsMutuallyExclusive("account", "no-account")

	return cmd
}

func runCall(cmd *cobra.Command, client *jmap.Client, method, raw string, callOpts callOptions) error {
	if !strings.Contains(method, "/") {
		return fmt.Errorf("method must look like Type/method, got %q", method)
	}

	args, err := parseArguments(cmd.InOrStdin(), raw)
	if err != nil {
		return err
	}
	if callOpts.accountID != "" {
		args = args.WithAccount(callOpts.accountID)
	}

	var result json.RawMessage
	if callOpts.noAccount {
		inv, err := jmap.NewInvocation(method, args, jmap.SingleCallID)
		if err != nil {
			return err
		}
		resp, err := client.RawRequest(cmd.Context(), []jmap.Invocation{inv})
		if err != nil {
			return err
		}
		result, err = jmap.FirstResult[json.RawMessage](resp, method)
		if err != nil {
			return err
		}
	} else {
		result, err = jmap.Call[json.RawMessage](cmd.Context(), client, method, args)
		if err != nil {
			return err
		}
	}

	return writeRaw(cmd.OutOrStdout(), result)
}

func runBatch(cmd *cobra.Command, client *jmap.Client, callOpts callOptions) error {
	data, err := readInput(cmd.InOrStdin(), callOpts.batchFile)
	if err != nil {
		return err
	}

	var param any
	if err := decodeJSON(data, &param); err != nil {
		return fmt.Errorf("failed to parse %s: %w", callOpts.batchFile, err)
	}
	calls, err := batch.ParseCalls(param)
	if err != nil {
		return err
	}

	if !callOpts.noAccount {
		account := callOpts.accountID
		if account == "" {
			if account, err = client.FirstAccountID(); err != nil {
				return err
			}
		}
		if calls, err = batch.WithDefaultAccount(calls, account); err != nil {
			return err
		}
	}

	resp, err := client.RawRequest(cmd.Context(), calls)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), batch.FormatResults(batch.FromResponse(calls, resp), resp.SessionState))
	return err
}

// parseArguments decodes a JSON object. Numbers are kept as json.Number so
// large integers survive the round trip.
func parseArguments(stdin io.Reader, raw string) (jmap.Arguments, error) {
	if raw == "" {
		return jmap.Arguments{}, nil
	}

	data := []byte(raw)
	if raw == stdinName {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("failed to read arguments: %w", err)
		}
	}

	var args jmap.Arguments
	if err := decodeJSON(data, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if args == nil {
		args = jmap.Arguments{}
	}
	return args, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == stdinName {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func writeRaw(w io.Writer, raw json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		out.Reset()
		out.Write(raw)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}
