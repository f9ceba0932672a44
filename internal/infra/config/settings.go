package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Built-in defaults for the global flags.
const (
	DefaultEnv        = "local"
	DefaultConfigPath = "config.yaml"
	DefaultLogLevel   = "warn"

	envPrefix = "BUILDHELPER_"
)

// Settings are the process-wide defaults for the global flags.
// Priority: command-line flag > BUILDHELPER_* environment > built-in default
type Settings struct {
	Env          string
	ConfigPath   string
	LogLevel     string
	TelemetryOut string
}

// LoadSettings reads BUILDHELPER_ENV, BUILDHELPER_CONFIG,
// BUILDHELPER_LOG_LEVEL and BUILDHELPER_TELEMETRY_OUT.
func LoadSettings() (Settings, error) {
	k := koanf.New(".")

	// BUILDHELPER_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Settings{}, fmt.Errorf("failed to load environment settings: %w", err)
	}

	s := Settings{
		Env:        DefaultEnv,
		ConfigPath: DefaultConfigPath,
		LogLevel:   DefaultLogLevel,
	}
	if v := k.String("env"); v != "" {
		s.Env = v
	}
	if v := k.String("config"); v != "" {
		s.ConfigPath = v
	}
	if v := k.String("log_level"); v != "" {
		s.LogLevel = v
	}
	s.TelemetryOut = k.String("telemetry_out")

	return s, nil
}
