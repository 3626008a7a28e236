// Package config resolves runeforge settings from flags, RUNEFORGE_*
// environment variables, a .env file and an optional YAML config file, in
// that order of precedence.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable runeforge reads.
const EnvPrefix = "RUNEFORGE"

// Setting keys. Flags with the same names are bound to them.
const (
	KeyRules        = "rules"
	KeySeed         = "seed"
	KeyLogLevel     = "log-level"
	KeyLogFormat    = "log-format"
	KeyParallel     = "parallel"
	KeyArchive      = "archive"
	KeyAddr         = "addr"
	KeyCacheSize    = "cache-size"
	KeyOTelEndpoint = "otel-endpoint"
)

// DefaultSeed is the seed used when none is configured.
const DefaultSeed uint64 = 42

// Settings are the resolved values.
type Settings struct {
	Rules        string `mapstructure:"rules"`
	Seed         uint64 `mapstructure:"seed"`
	LogLevel     string `mapstructure:"log-level"`
	LogFormat    string `mapstructure:"log-format"`
	Parallel     bool   `mapstructure:"parallel"`
	Archive      string `mapstructure:"archive"`
	Addr         string `mapstructure:"addr"`
	CacheSize    int    `mapstructure:"cache-size"`
	OTelEndpoint string `mapstructure:"otel-endpoint"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// Loader resolves Settings.
type Loader struct {
	v        *viper.Viper
	explicit string
	envFile  string
	dirs     []string
}

// NewLoader creates a loader. configFile, when set, must exist; otherwise
// the default search directories are tried and a missing file is fine.
func NewLoader(configFile string) *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Every key needs a default so environment-only values reach Unmarshal.
	v.SetDefault(KeyRules, "")
	v.SetDefault(KeySeed, DefaultSeed)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyParallel, false)
	v.SetDefault(KeyArchive, "")
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyCacheSize, 256)
	v.SetDefault(KeyOTelEndpoint, "")

	return &Loader{v: v, explicit: configFile, envFile: ".env", dirs: SearchDirs()}
}

// SearchDirs returns the directories searched for config.yaml:
// $XDG_CONFIG_HOME/runeforge (or ~/.config/runeforge) and ~/.runeforge.
func SearchDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "runeforge"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		if os.Getenv("XDG_CONFIG_HOME") == "" {
			dirs = append(dirs, filepath.Join(home, ".config", "runeforge"))
		}
		dirs = append(dirs, filepath.Join(home, ".runeforge"))
	}
	return dirs
}

// BindFlags binds every flag in the sets to the setting of the same name.
func (l *Loader) BindFlags(sets ...*pflag.FlagSet) error {
	for _, fs := range sets {
		if err := l.v.BindPFlags(fs); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}
	return nil
}

// Load reads the .env file and the config file and returns the settings.
func (l *Loader) Load() (Settings, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", l.envFile, err)
		}
	}

	if l.explicit != "" {
		l.v.SetConfigFile(l.explicit)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		for _, dir := range l.dirs {
			l.v.AddConfigPath(dir)
		}
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.explicit != "" || !stderrors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	s.ConfigFile = l.v.ConfigFileUsed()
	return s, nil
}
