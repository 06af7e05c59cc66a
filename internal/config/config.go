// Package config provides environment-variable-first configuration loading
// with an optional YAML file base layer for gmailsend.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joshsymonds/gmailsend/internal/gmail"
)

// MaxRequestsPerSec bounds the send rate; Gmail's per-user quota is far below it.
const MaxRequestsPerSec = 1000

// Config holds everything needed to build a sender.
type Config struct {
	TokenFile       string   `yaml:"token_file"`
	CredentialsFile string   `yaml:"credentials_file"`
	Identity        string   `yaml:"identity"`
	Scopes          []string `yaml:"scopes"`
	RequestsPerSec  int      `yaml:"requests_per_second"`
	LogLevel        string   `yaml:"log_level"`
}

// Load builds the configuration from defaults and environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a YAML base layer, then lets environment variables
// override it. A missing file is an error.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.TokenFile = "token.json"
	c.CredentialsFile = "credentials.json"
	c.Scopes = []string{gmail.SendScope}
	c.LogLevel = "info"
}

// lookup returns the first non-empty variable among names.
func lookup(names ...string) (string, bool) {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v, true
		}
	}
	return "", false
}

// applyEnvVars overrides values with non-empty environment variables. The
// GMAIL_* names are older aliases and lose to the primary names.
func (c *Config) applyEnvVars() error {
	if v, ok := lookup("TOKEN_FILE_PATH", "GMAIL_TOKEN_FILE"); ok {
		c.TokenFile = v
	}
	if v, ok := lookup("APP_CREDENTIALS_FILE_PATH", "GMAIL_CREDENTIALS_FILE"); ok {
		c.CredentialsFile = v
	}
	if v, ok := lookup("SENDING_IDENTITY", "GMAIL_USERNAME"); ok {
		c.Identity = v
	}
	if v, ok := lookup("GMAIL_SCOPES"); ok {
		c.Scopes = SplitList(v)
	}
	if v, ok := lookup("SEND_RPS"); ok {
		rps, err := strconv.Atoi(v)
		if err != nil || rps < 0 || rps > MaxRequestsPerSec {
			return fmt.Errorf("SEND_RPS must be an integer between 0 and %d, got %q", MaxRequestsPerSec, v)
		}
		c.RequestsPerSec = rps
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

func (c *Config) validate() error {
	if c.RequestsPerSec < 0 || c.RequestsPerSec > MaxRequestsPerSec {
		return fmt.Errorf("requests_per_second must be between 0 and %d, got %d", MaxRequestsPerSec, c.RequestsPerSec)
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
