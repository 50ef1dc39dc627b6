package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds ragctl settings. Precedence is flags, then RAGCTL_* env
// variables, then the config file, then defaults.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	UserID string       `mapstructure:"user_id"`
}

type ServerConfig struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// LoadConfig reads configuration into v, which may already carry bound flags.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".ragctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ragctl")
	}

	v.SetEnvPrefix("RAGCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:9020")
	v.SetDefault("server.timeout", 120)
	v.SetDefault("user_id", "")
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.URL) == "" {
		return errors.New("server.url is required")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %d", c.Server.Timeout)
	}
	return nil
}
