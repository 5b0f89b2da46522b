// Package config loads the engine's environment into a typed Config value.
// It follows the ambient service's getenv-with-defaults style: every field
// has a sane default except the API secret, which the operator must set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Monitor   MonitorConfig
	OVH       OVHConfig
	Paths     PathsConfig
}

type ServerConfig struct {
	Port string
}

type AuthConfig struct {
	APISecretKey string
	Enabled      bool
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type SchedulerConfig struct {
	TickSeconds int
	Workers     int
}

type MonitorConfig struct {
	TickSeconds int
}

type OVHConfig struct {
	HTTPTimeoutSeconds int
}

type PathsConfig struct {
	DataDir  string
	CacheDir string
	LogDir   string
}

// Load reads environment variables (optionally preloaded from ENV_FILE via
// godotenv) into a Config. Missing optional vars fall back to defaults;
// Validate should be called separately once the config is fully assembled.
func Load() (*Config, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "19998"),
		},
		Auth: AuthConfig{
			APISecretKey: getEnv("API_SECRET_KEY", ""),
			Enabled:      getEnvBool("ENABLE_API_KEY_AUTH", true),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Scheduler: SchedulerConfig{
			TickSeconds: getEnvInt("SCHEDULER_TICK_SECONDS", 1),
			Workers:     getEnvInt("SCHEDULER_WORKERS", 0), // 0 => derived from account count
		},
		Monitor: MonitorConfig{
			TickSeconds: getEnvInt("MONITOR_TICK_SECONDS", 60),
		},
		OVH: OVHConfig{
			HTTPTimeoutSeconds: getEnvInt("OVH_HTTP_TIMEOUT_SECONDS", 20),
		},
		Paths: PathsConfig{
			DataDir:  getEnv("DATA_DIR", "./data"),
			CacheDir: getEnv("CACHE_DIR", "./cache"),
			LogDir:   getEnv("LOG_DIR", "./logs"),
		},
	}

	return cfg, nil
}

// Validate rejects configurations that would leave the control plane
// unauthenticated in a non-development setting.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.APISecretKey == "" {
		return fmt.Errorf("API_SECRET_KEY must be set when ENABLE_API_KEY_AUTH is true")
	}
	if c.Monitor.TickSeconds < 30 {
		return fmt.Errorf("MONITOR_TICK_SECONDS must be at least 30, got %d", c.Monitor.TickSeconds)
	}
	if c.Scheduler.TickSeconds < 1 {
		return fmt.Errorf("SCHEDULER_TICK_SECONDS must be at least 1, got %d", c.Scheduler.TickSeconds)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
