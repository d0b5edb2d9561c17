// Package config loads the YAML configuration of an API client and turns
// it into transport and client options.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/apiclient/api"
	"github.com/adamwoolhether/apiclient/client"
	"github.com/adamwoolhether/apiclient/client/throttle"
)

// Config describes one API client.
type Config struct {
	BaseURL        string            `yaml:"base_url" validate:"required,url"`
	Timeout        time.Duration     `yaml:"timeout" validate:"gte=0"`
	RequestTimeout time.Duration     `yaml:"request_timeout" validate:"gte=0"`
	UserAgent      string            `yaml:"user_agent"`
	Throttle       *throttle.Config  `yaml:"throttle"`
	Headers        map[string]string `yaml:"headers"`
	AuthToken      string            `yaml:"auth_token"`
	AuthHeaders    map[string]string `yaml:"auth_headers"`
	Workers        int               `yaml:"workers" validate:"gte=0"`
	LogLevel       string            `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		BaseURL:   "http://localhost:8080",
		UserAgent: "apiclient/1.0",
		LogLevel:  "info",
	}
}

// DefaultPath returns the default config file path: ~/.apiclient/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".apiclient", "config.yaml")
	}
	return filepath.Join(home, ".apiclient", "config.yaml")
}

// Load reads the configuration from the given YAML file path, on top of
// [Default]. If the file does not exist, the defaults are returned.
// A file readable by others is reported on warn, since it may hold a token.
func Load(path string, warn io.Writer) (*Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 && warn != nil {
		fmt.Fprintf(warn, "warning: config file %s has permissions %04o, expected 0600\n", path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration against its validate tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	return nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ClientOptions returns the transport options described by c.
func (c *Config) ClientOptions(logger *slog.Logger) []client.Option {
	opts := []client.Option{client.WithLogger(logger)}

	if c.Timeout > 0 {
		opts = append(opts, client.WithTimeout(c.Timeout))
	}
	if c.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(c.UserAgent))
	}
	if c.Throttle != nil {
		opts = append(opts, client.WithThrottle(c.Throttle.RPS, c.Throttle.Burst))
	}

	return opts
}

// APIOptions builds the transport and returns the client options
// described by c.
func (c *Config) APIOptions(logger *slog.Logger) ([]api.Option, error) {
	transport, err := client.Build(c.ClientOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("building transport: %w", err)
	}

	opts := []api.Option{
		api.WithLogger(logger),
		api.WithTransport(transport),
		api.WithHeaders(c.Headers),
	}

	authHeaders := c.AuthHeaders
	if c.AuthToken != "" {
		authHeaders = map[string]string{"Authorization": "Bearer " + c.AuthToken}
	}
	opts = append(opts, api.WithAuthHeaders(authHeaders))

	if c.RequestTimeout > 0 {
		opts = append(opts, api.WithRequestTimeout(c.RequestTimeout))
	}

	return opts, nil
}
