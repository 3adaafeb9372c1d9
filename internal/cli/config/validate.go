package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

var (
	validLanguages  = []string{"da", "en"}
	validOutputs    = []string{"auto", "text", "markdown", "json"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q\nHint: use an absolute URL such as %s", c.BaseURL, DefaultBaseURL)
	}
	if err := oneOf("language", c.Language, validLanguages); err != nil {
		return err
	}
	if err := oneOf("output", c.OutputFormat, validOutputs); err != nil {
		return err
	}
	if err := oneOf("log_level", c.LogLevel, validLogLevels); err != nil {
		return err
	}
	if err := oneOf("log_format", c.LogFormat, validLogFormats); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.SafetyRowThreshold <= 0 {
		return fmt.Errorf("safety_row_threshold must be positive, got %d", c.SafetyRowThreshold)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// SlogLevel returns the configured log level. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func oneOf(key, value string, allowed []string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (expected one of %s)", key, value, strings.Join(allowed, ", "))
}
