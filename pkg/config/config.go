package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFile is the optional run configuration read from the working directory
const ConfigFile = "crossbar-heterograph.toml"

// EnvPrefix prefixes run options given through the environment
const EnvPrefix = "CROSSBAR_"

// Error policies
const (
	OnErrorHalt     = "halt"
	OnErrorContinue = "continue"
)

// Config holds all configuration for the application
type Config struct {
	DataDir    string `koanf:"data"`
	SchemaPath string `koanf:"config"`
	OutputDir  string `koanf:"output"`
	OnError    string `koanf:"on_error"`
	Compress   bool   `koanf:"compress"`
	DOT        bool   `koanf:"dot"`
	Watch      bool   `koanf:"watch"`
	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
	LogFormat  string `koanf:"log_format"`
}

// HaltOnError reports whether the first failing table stops its stage
func (c *Config) HaltOnError() bool {
	return c.OnError != OnErrorContinue
}

// Validate checks required paths and enumerations
func (c *Config) Validate() error {
	var missing []string
	if c.DataDir == "" {
		missing = append(missing, "data")
	}
	if c.SchemaPath == "" {
		missing = append(missing, "config")
	}
	if c.OutputDir == "" {
		missing = append(missing, "output")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	switch c.OnError {
	case OnErrorHalt, OnErrorContinue:
	default:
		return fmt.Errorf("on_error must be %q or %q, got %q", OnErrorHalt, OnErrorContinue, c.OnError)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}

	return nil
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return load(f, ConfigFile)
}

func load(f *pflag.FlagSet, configFile string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"data":       "",
		"config":     "",
		"output":     "",
		"on_error":   OnErrorHalt,
		"compress":   false,
		"dot":        false,
		"watch":      false,
		"verbosity":  "",
		"verbose":    0,
		"log_format": "text",
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider(configFile), toml.Parser())

	// 3. Environment Variables
	// Prefix: CROSSBAR_ (e.g., CROSSBAR_ON_ERROR=continue). Keys are flat, so
	// underscores are kept.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey(f)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// flagKey maps dashed flag names onto config keys (--on-error -> on_error)
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(fl *pflag.Flag) (string, interface{}) {
		return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(fs, fl)
	}
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
