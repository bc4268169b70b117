package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Nemolo/jmap-client/internal/config"
	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/logging"
	"github.com/Nemolo/jmap-client/internal/transport"
)

// Output formats of the commands that print documents.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	envFile    string
	sessionURL string
	apiURL     string
	token      string
	tokenFile  string
	logLevel   string
	logFormat  string
}

func (o *rootOptions) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.envFile, "env-file", "", "Environment file to load (default: .env)")
	flags.StringVar(&o.sessionURL, "session-url", "", "JMAP session URL, e.g. https://mail.example.com/.well-known/jmap (env: JMAP_SESSION_URL)")
	flags.StringVar(&o.apiURL, "api-url", "", "Override the API URL advertised by the session (env: JMAP_API_URL)")
	flags.StringVar(&o.token, "token", "", "Bearer token (env: JMAP_TOKEN)")
	flags.StringVar(&o.tokenFile, "token-file", "", "File holding the bearer token, re-read for every request (env: JMAP_TOKEN_FILE)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: JMAP_LOG_LEVEL)")
	flags.StringVar(&o.logFormat, "log-format", "", "Log format: text or json (env: JMAP_LOG_FORMAT)")
}

// apply overrides cfg with the flags that were given. A credential flag
// replaces any credential configured in the environment.
func (o *rootOptions) apply(cfg *config.Config) error {
	if o.token != "" && o.tokenFile != "" {
		return errors.New("--token and --token-file are mutually exclusive")
	}

	if o.sessionURL != "" {
		cfg.SessionURL = o.sessionURL
	}
	if o.apiURL != "" {
		cfg.APIURL = o.apiURL
	}
	if o.token != "" {
		cfg.Token, cfg.TokenFile, cfg.OAuth = o.token, "", config.OAuthConfig{}
	}
	if o.tokenFile != "" {
		cfg.Token, cfg.TokenFile, cfg.OAuth = "", o.tokenFile, config.OAuthConfig{}
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	return nil
}

// loadConfig reads the environment, applies the flags and validates the
// result.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if err := o.apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Logs always go to stderr so stdout stays
// usable for command output and the stdio MCP transport.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := logging.New(w, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// newClient creates a JMAP client for cfg. The session is not fetched.
func newClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...jmap.Option) (*jmap.Client, error) {
	supplier, err := cfg.Supplier(ctx)
	if err != nil {
		return nil, err
	}

	httpTransport := transport.NewHTTP(
		transport.WithTimeout(cfg.HTTPTimeout),
		transport.WithUserAgent(cfg.UserAgent),
	)

	clientOpts := []jmap.Option{jmap.WithLogger(logging.NewSlogAdapter(logger))}
	if cfg.APIURL != "" {
		clientOpts = append(clientOpts, jmap.WithAPIURL(cfg.APIURL))
	}
	clientOpts = append(clientOpts, opts...)

	client, err := jmap.New(cfg.SessionURL, supplier, httpTransport, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create JMAP client: %w", err)
	}
	return client, nil
}

// connect creates a client and fetches the session, for the one-shot
// commands.
func (o *rootOptions) connect(cmd *cobra.Command) (*jmap.Client, *jmap.Session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	client, err := newClient(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	session, err := client.FetchSession(cmd.Context(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch session from %s: %w", cfg.SessionURL, err)
	}
	return client, session, nil
}

// writeDocument prints v as indented JSON or as YAML.
func writeDocument(w io.Writer, v any, format string) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	switch format {
	case "", outputJSON:
		_, err = fmt.Fprintln(w, string(raw))
		return err
	case outputYAML:
		out, err := jsonToYAML(raw)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("invalid output format %q, must be one of: %s, %s", format, outputJSON, outputYAML)
	}
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping the
// key order of the input.
func jsonToYAML(raw []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert output to YAML: %w", err)
	}
	clearStyle(&doc)
	return yaml.Marshal(&doc)
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
