// Package config resolves runtime settings from flags, BLUEPRINT_* environment
// variables, an optional config file and built-in defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BLUEPRINT"

// Setting keys. Flags of the same name override them.
const (
	KeyDB            = "db"
	KeyBlueprintsDir = "blueprints-dir"
	KeyLogLevel      = "log-level"
	KeyLogMode       = "log-mode"
)

type Config struct {
	DBPath        string
	BlueprintsDir string
	LogLevel      string
	LogMode       string

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string
}

// Load reads the configuration. flags may be nil. An explicit configFile must
// exist; otherwise blueprint.{yaml,json,toml} is looked up in the working
// directory, $HOME/.config/blueprint and /etc/blueprint.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogMode, "dev")

	if flags != nil {
		for _, key := range []string{KeyDB, KeyBlueprintsDir, KeyLogLevel, KeyLogMode} {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("blueprint")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/blueprint")
		v.AddConfigPath("/etc/blueprint")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return &Config{
		DBPath:        v.GetString(KeyDB),
		BlueprintsDir: v.GetString(KeyBlueprintsDir),
		LogLevel:      v.GetString(KeyLogLevel),
		LogMode:       v.GetString(KeyLogMode),
		ConfigFile:    v.ConfigFileUsed(),
	}, nil
}
