// Package config provides hookctl configuration.
//
// Configuration is read from a TOML or YAML file, chosen by extension, and
// then overridden from HOOKCTL_-prefixed environment variables:
//
//	HOOKCTL_LOG_LEVEL            log level (debug, info, warn, error)
//	HOOKCTL_LOG_FORMAT           log format (text, json)
//	HOOKCTL_TELEMETRY_ENABLED    enable OpenTelemetry stdout export
//	HOOKCTL_TELEMETRY_SERVICE    service.name resource attribute
//	HOOKCTL_DISABLED_PLUGINS     comma-separated plugin names to skip
package config

import (
	"fmt"
	"time"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/logging"
)

// Config is the complete hookctl configuration.
type Config struct {
	Log       LogConfig       `toml:"log" yaml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
	Plugins   []PluginConfig  `toml:"plugins" yaml:"plugins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	ServiceName    string `toml:"service_name" yaml:"service_name"`
	MetricInterval string `toml:"metric_interval" yaml:"metric_interval"`
}

// Interval returns the parsed metric export interval, or zero when unset.
func (t TelemetryConfig) Interval() (time.Duration, error) {
	if t.MetricInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(t.MetricInterval)
	if err != nil {
		return 0, fmt.Errorf("telemetry.metric_interval: %w", err)
	}
	return d, nil
}

// PluginConfig describes one Lua plugin to load.
type PluginConfig struct {
	// Name identifies the plugin. It must be unique.
	Name string `toml:"name" yaml:"name"`

	// Script is the path of the Lua script to execute.
	Script string `toml:"script" yaml:"script"`

	// Domain tags every handler the plugin registers. Defaults to Name.
	Domain string `toml:"domain" yaml:"domain"`

	// Enabled defaults to true when omitted.
	Enabled *bool `toml:"enabled" yaml:"enabled"`
}

// IsEnabled reports whether the plugin should be loaded.
func (p PluginConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// DomainOrName returns the domain handlers are tagged with.
func (p PluginConfig) DomainOrName() string {
	if p.Domain != "" {
		return p.Domain
	}
	return p.Name
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Telemetry: TelemetryConfig{
			ServiceName: "hookctl",
		},
	}
}

// EnabledPlugins returns the plugins to load, in configuration order.
func (c *Config) EnabledPlugins() []PluginConfig {
	var out []PluginConfig
	for _, p := range c.Plugins {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Field: "log.level", Err: err}
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return &ValidationError{Field: "log.format", Err: err}
	}
	if _, err := c.Telemetry.Interval(); err != nil {
		return &ValidationError{Field: "telemetry.metric_interval", Err: err}
	}

	seen := make(map[string]bool, len(c.Plugins))
	for i, p := range c.Plugins {
		field := fmt.Sprintf("plugins[%d]", i)
		if p.Name == "" {
			return &ValidationError{Field: field + ".name", Err: ErrMissingValue}
		}
		if p.Script == "" {
			return &ValidationError{Field: field + ".script", Err: ErrMissingValue}
		}
		if seen[p.Name] {
			return &ValidationError{Field: field + ".name", Err: fmt.Errorf("%w: %q", ErrDuplicatePlugin, p.Name)}
		}
		seen[p.Name] = true
	}
	return nil
}
