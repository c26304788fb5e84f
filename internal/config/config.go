package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const envPrefix = "TOOLCALL"

type Config struct {
	ServerID   string // generated per process, reported by /health
	ServerHost string
	ServerPort int
	BaseURL    string // server the client commands talk to
	LogLevel   string
	Guard      GuardConfig
}

// GuardConfig controls secret scanning of tool parameters.
type GuardConfig struct {
	Enabled    bool
	ConfigPath string // gitleaks rules file; empty uses the built-in rules
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// New returns a viper instance with defaults and environment bindings.
// Keys map to TOOLCALL_* variables, e.g. server.port -> TOOLCALL_SERVER_PORT.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("client.base_url", "http://127.0.0.1:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("guard.enabled", false)
	v.SetDefault("guard.config_path", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads an optional config file into v and builds the Config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerID:   uuid.NewString(),
		ServerHost: v.GetString("server.host"),
		ServerPort: v.GetInt("server.port"),
		BaseURL:    v.GetString("client.base_url"),
		LogLevel:   v.GetString("log.level"),
		Guard: GuardConfig{
			Enabled:    v.GetBool("guard.enabled"),
			ConfigPath: v.GetString("guard.config_path"),
		},
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.ServerPort)
	}
	return cfg, nil
}
