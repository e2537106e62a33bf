package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Options controls where Load looks for configuration.
type Options struct {
	// Paths are searched in order; "." and "./config" are always appended.
	Paths []string
	// Name is the config file name without extension.
	Name string
	// EnvPrefix, when set, is prepended to automatic env lookups (PULSE_SERVER_PORT).
	EnvPrefix string
	// Defaults are applied before the file is read.
	Defaults map[string]interface{}
}

// Load reads a YAML config file (if present) layered under environment variables.
// A missing file is not an error; everything can come from defaults and env.
func Load(opts Options) (*viper.Viper, error) {
	v := viper.New()

	name := opts.Name
	if name == "" {
		name = "config"
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, p := range opts.Paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}

	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}

// BindEnvs binds each config key to an explicit environment variable name.
func BindEnvs(v *viper.Viper, bindings map[string]string) error {
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	return nil
}

// Watch calls onChange each time the file v was read from is written.
// It reports false, and watches nothing, when v came from defaults and env only.
func Watch(v *viper.Viper, onChange func(fsnotify.Event)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	v.OnConfigChange(onChange)
	v.WatchConfig()
	return true
}
