// Package config loads workerbuild settings from file, .env and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WORKERBUILD_NPM_PATH
const EnvPrefix = "WORKERBUILD"

// Config represents the workerbuild configuration
type Config struct {
	// WasmPackPath is handed to wrangler-js for compiling Rust modules
	WasmPackPath string `mapstructure:"wasm_pack_path"`

	// NPMPath is the npm binary used to install wrangler-js
	NPMPath string `mapstructure:"npm_path"`

	Build BuildConfig `mapstructure:"build"`
	Watch WatchConfig `mapstructure:"watch"`

	// MetricsFile, when set, receives build metrics in Prometheus text format
	MetricsFile string `mapstructure:"metrics_file"`

	Debug bool `mapstructure:"debug"`
}

// BuildConfig contains settings for a single build
type BuildConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`      // 0 waits forever
	AutoInstall bool          `mapstructure:"auto_install"` // install wrangler-js when missing
}

// WatchConfig contains settings for watch mode
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Ignore   []string      `mapstructure:"ignore"`
}

// Load reads configuration into a fresh viper instance. configFile, when
// not empty, replaces the default search paths.
func Load(configFile string) (*Config, error) {
	return LoadWith(viper.New(), configFile)
}

// LoadWith reads configuration into v, which may already carry bound flags
func LoadWith(v *viper.Viper, configFile string) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("workerbuild")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".workerbuild"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	for _, location := range []string{".env", ".env.local"} {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}

// defaultWasmPackPath prefers a wasm-pack found on PATH
func defaultWasmPackPath() string {
	if path, err := exec.LookPath("wasm-pack"); err == nil {
		return path
	}
	return "wasm-pack"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wasm_pack_path", defaultWasmPackPath())
	v.SetDefault("npm_path", "npm")

	v.SetDefault("build.timeout", "0s")
	v.SetDefault("build.auto_install", true)

	v.SetDefault("watch.debounce", "300ms")
	v.SetDefault("watch.ignore", []string{"worker", "dist", "node_modules", ".git"})

	v.SetDefault("metrics_file", "")
	v.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.NPMPath == "" {
		return fmt.Errorf("npm_path cannot be empty")
	}
	if c.Build.Timeout < 0 {
		return fmt.Errorf("build.timeout cannot be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce cannot be negative")
	}
	return nil
}
