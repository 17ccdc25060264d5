package config

import (
	"fmt"
	"net"
	"strings"
)

// validSSLModes are the sslmode values accepted by PostgreSQL.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for invalid values.
// Returns the first error found, wrapped around a sentinel for errors.Is().
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidListenAddr, c.Addr, err)
	}

	if strings.TrimSpace(c.ModelBaseURL) == "" {
		return fmt.Errorf("%w: endpoint must not be empty", ErrInvalidEndpoint)
	}
	if !strings.HasPrefix(c.ModelBaseURL, "http://") && !strings.HasPrefix(c.ModelBaseURL, "https://") {
		return fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidEndpoint, c.ModelBaseURL)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (expected 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (expected 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}

	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// ValidateServe performs the additional checks required to run the HTTP
// server: the model credential must be present so generation requests can
// be authenticated.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ModelAPIKey) == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}
