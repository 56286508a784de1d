// Package config loads the brokerlink CLI configuration from a file and
// command-line flags.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Config drives one brokerlink CLI invocation.
type Config struct {
	TargetURL   string            `mapstructure:"target"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Fields      map[string]string `mapstructure:"fields"`
	Encoding    string            `mapstructure:"encoding"`
	CABundle    string            `mapstructure:"ca_bundle"`
	CAPath      string            `mapstructure:"ca_path"`
	Rate        int               `mapstructure:"rate"`
	Repeat      int               `mapstructure:"repeat"`
	ShowOptions bool              `mapstructure:"show_options"`

	// Authentication: a static access token, or a credential file whose
	// refresh token is exchanged at the token endpoint.
	AccessToken string `mapstructure:"access_token"`
	CredFile    string `mapstructure:"cred_file"`
	TokenURL    string `mapstructure:"token_url"`

	Tracing    TracingConfig `mapstructure:"tracing"`
	ConfigFile string        `mapstructure:"-"`
}

// TracingConfig configures the optional OTLP trace export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether an export endpoint is configured, directly or
// through the standard OTLP environment variable.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// Validate checks the configuration for contradictions before any
// connection is built.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TargetURL) == "" {
		return fmt.Errorf("target URL is required")
	}
	switch c.Method {
	case http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("method must be GET or POST, got %q", c.Method)
	}
	if c.Method == http.MethodGet && len(c.Fields) > 0 {
		return fmt.Errorf("fields require method POST")
	}
	if c.Repeat < 1 {
		return fmt.Errorf("repeat must be at least 1, got %d", c.Repeat)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate cannot be negative, got %d", c.Rate)
	}
	if c.CABundle != "" && c.CAPath != "" {
		return fmt.Errorf("ca_bundle and ca_path cannot both be set")
	}
	if c.CredFile != "" && c.AccessToken != "" {
		return fmt.Errorf("cred_file and access_token cannot both be set")
	}
	if c.CredFile != "" && c.TokenURL == "" {
		return fmt.Errorf("cred_file requires token_url")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate)
	}
	return nil
}
