package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nixxel-company-limited/escpos-spool-bridge/spooler"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. ESCPOS_PRINTER
const EnvPrefix = "ESCPOS"

// Keys
const (
	KeyBackend       = "backend"
	KeyPrinter       = "printer"
	KeyListenAddress = "listen_address"
	KeyRawAddress    = "raw_address"
	KeyLogLevel      = "log_level"
)

// Config holds the bridge settings
type Config struct {
	// Backend selects the spooler: cups or usb
	Backend string `mapstructure:"backend"`

	// Printer is the default printer for commands that omit one and for the raw listener
	Printer string `mapstructure:"printer"`

	// ListenAddress is where the command dispatch server listens
	ListenAddress string `mapstructure:"listen_address"`

	// RawAddress is where the raw passthrough server listens; empty disables it
	RawAddress string `mapstructure:"raw_address"`

	LogLevel string `mapstructure:"log_level"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, spooler.BackendCUPS)
	v.SetDefault(KeyPrinter, "")
	v.SetDefault(KeyListenAddress, "localhost:9110")
	v.SetDefault(KeyRawAddress, "localhost:9100")
	v.SetDefault(KeyLogLevel, "info")
}

// DefaultPath returns $HOME/.escpos-bridge/config.toml, or "" when the home directory is unknown
func DefaultPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".escpos-bridge", "config.toml")
	}
	return ""
}

// Load resolves configuration from defaults, the config file, ESCPOS_* variables and any
// flags already bound on v, in increasing order of precedence. A missing file at the default
// path is not an error; a missing explicit path is.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the backend and log level
func (c Config) Validate() error {
	switch c.Backend {
	case spooler.BackendCUPS, spooler.BackendUSB:
	default:
		return fmt.Errorf("invalid backend %q: must be %s or %s", c.Backend, spooler.BackendCUPS, spooler.BackendUSB)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	if c.ListenAddress == "" {
		return errors.New("listen_address must not be empty")
	}
	return nil
}

// Level returns the parsed log level, falling back to info
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
