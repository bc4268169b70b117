// Package config loads the client configuration from the environment.
//
// An optional .env file is loaded first with godotenv; variables already set
// in the environment take precedence over the file. The environment is then
// decoded into Config with envdecode.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Nemolo/jmap-client/internal/credential"
)

// DefaultEnvFile is loaded by Load when no file is named.
const DefaultEnvFile = ".env"

// Credential source names, as reported by Config.CredentialSource.
const (
	SourceToken     = "token"
	SourceTokenFile = "token-file"
	SourceOAuth     = "oauth-client-credentials"
)

// Config is the client configuration.
type Config struct {
	// SessionURL is the JMAP session endpoint, usually
	// https://host/.well-known/jmap. ENV: JMAP_SESSION_URL
	SessionURL string `env:"JMAP_SESSION_URL"`

	// APIURL overrides the apiUrl advertised by the session. ENV: JMAP_API_URL
	APIURL string `env:"JMAP_API_URL"`

	// Token is a bearer token used as is. ENV: JMAP_TOKEN
	Token string `env:"JMAP_TOKEN"`

	// TokenFile names a file holding the bearer token. It is re-read for
	// every request so an external process can rotate it. ENV: JMAP_TOKEN_FILE
	TokenFile string `env:"JMAP_TOKEN_FILE"`

	OAuth OAuthConfig

	// HTTPTimeout bounds each HTTP round trip. ENV: JMAP_HTTP_TIMEOUT
	HTTPTimeout time.Duration `env:"JMAP_HTTP_TIMEOUT,default=30s"`

	// UserAgent is sent with every request. ENV: JMAP_USER_AGENT
	UserAgent string `env:"JMAP_USER_AGENT,default=jmap-client"`

	// LogLevel and LogFormat configure the CLI logger.
	LogLevel  string `env:"JMAP_LOG_LEVEL,default=info"`
	LogFormat string `env:"JMAP_LOG_FORMAT,default=text"`
}

// OAuthConfig configures the OAuth2 client credentials flow.
type OAuthConfig struct {
	ClientID     string   `env:"JMAP_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"JMAP_OAUTH_CLIENT_SECRET"`
	TokenURL     string   `env:"JMAP_OAUTH_TOKEN_URL"`
	Scopes       []string `env:"JMAP_OAUTH_SCOPES"` // semicolon separated
}

// Enabled reports whether any OAuth setting is present.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" || o.ClientSecret != "" || o.TokenURL != ""
}

// Load reads envFile (DefaultEnvFile when empty) if it exists and decodes
// the environment into a Config. A missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	return &cfg, nil
}

// CredentialSource returns which credential source is configured, or an
// empty string when none is.
func (c *Config) CredentialSource() string {
	switch {
	case c.Token != "":
		return SourceToken
	case c.TokenFile != "":
		return SourceTokenFile
	case c.OAuth.Enabled():
		return SourceOAuth
	default:
		return ""
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SessionURL == "" {
		return errors.New("session URL is required (JMAP_SESSION_URL or --session-url)")
	}
	if err := validateURL("session URL", c.SessionURL); err != nil {
		return err
	}
	if c.APIURL != "" {
		if err := validateURL("API URL", c.APIURL); err != nil {
			return err
		}
	}

	sources := 0
	for _, set := range []bool{c.Token != "", c.TokenFile != "", c.OAuth.Enabled()} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return errors.New("no credential configured: set JMAP_TOKEN, JMAP_TOKEN_FILE or JMAP_OAUTH_CLIENT_ID")
	case sources > 1:
		return errors.New("more than one credential configured: use only one of JMAP_TOKEN, JMAP_TOKEN_FILE and JMAP_OAUTH_*")
	}

	if c.OAuth.Enabled() {
		if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" || c.OAuth.TokenURL == "" {
			return errors.New("OAuth client credentials need JMAP_OAUTH_CLIENT_ID, JMAP_OAUTH_CLIENT_SECRET and JMAP_OAUTH_TOKEN_URL")
		}
		if err := validateURL("OAuth token URL", c.OAuth.TokenURL); err != nil {
			return err
		}
	}

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP timeout must not be negative, got %s", c.HTTPTimeout)
	}
	return nil
}

// Supplier returns the credential supplier for the configured source. ctx
// is used by the OAuth token source for its token requests.
func (c *Config) Supplier(ctx context.Context) (credential.Supplier, error) {
	switch c.CredentialSource() {
	case SourceToken:
		return credential.Literal(c.Token), nil
	case SourceTokenFile:
		return credential.FromFile(c.TokenFile), nil
	case SourceOAuth:
		cc := &clientcredentials.Config{
			ClientID:     c.OAuth.ClientID,
			ClientSecret: c.OAuth.ClientSecret,
			TokenURL:     c.OAuth.TokenURL,
			Scopes:       c.OAuth.Scopes,
		}
		return credential.FromTokenSource(cc.TokenSource(ctx)), nil
	default:
		return credential.Supplier{}, errors.New("no credential configured")
	}
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s %q: missing host", name, raw)
	}
	return nil
}
