// Package config provides configuration management for the statbank CLI.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	BaseURL            string        `koanf:"base_url"`
	Language           string        `koanf:"language"`
	Timeout            time.Duration `koanf:"timeout"`
	Verbose            bool          `koanf:"verbose"`
	OutputFormat       string        `koanf:"output"`
	LogLevel           string        `koanf:"log_level"`
	LogFormat          string        `koanf:"log_format"`
	SafetyRowThreshold int64         `koanf:"safety_row_threshold"`
	AutoAcceptLarge    bool          `koanf:"auto_accept_large"`
	Concurrency        int           `koanf:"concurrency"`
}

// Default configuration values.
const (
	DefaultBaseURL            = "https://api.statbank.dk/v1"
	DefaultLanguage           = "da"
	DefaultTimeout            = 60 * time.Second
	DefaultOutput             = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultSafetyRowThreshold = int64(2_000_000)
	DefaultConcurrency        = 4
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		BaseURL:            DefaultBaseURL,
		Language:           DefaultLanguage,
		Timeout:            DefaultTimeout,
		OutputFormat:       DefaultOutput,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
		SafetyRowThreshold: DefaultSafetyRowThreshold,
		Concurrency:        DefaultConcurrency,
	}
}
