// Package config loads the service configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const configFilePath = "config.json"

// Config represents the service's configuration. Every key can be set in
// config.json or through the environment, upper-cased with dashes replaced by
// underscores (store-backend becomes STORE_BACKEND). The environment wins.
type Config struct {
	Host           string   `json:"host" mapstructure:"host"`
	Port           int      `json:"port" mapstructure:"port"`
	AllowedOrigins []string `json:"allowed-origins" mapstructure:"allowed-origins"`

	LogLevel  string `json:"log-level" mapstructure:"log-level"`
	LogFormat string `json:"log-format" mapstructure:"log-format"`

	StoreBackend string `json:"store-backend" mapstructure:"store-backend"`
	DataDir      string `json:"data-dir" mapstructure:"data-dir"`

	MongoURI            string        `json:"mongo-uri" mapstructure:"mongo-uri"`
	MongoDatabase       string        `json:"mongo-database" mapstructure:"mongo-database"`
	MongoMaxPoolSize    uint64        `json:"mongo-max-pool-size" mapstructure:"mongo-max-pool-size"`
	MongoConnectTimeout time.Duration `json:"mongo-connect-timeout" mapstructure:"mongo-connect-timeout"`
	MongoSocketTimeout  time.Duration `json:"mongo-socket-timeout" mapstructure:"mongo-socket-timeout"`

	RateLimitRPS   float64 `json:"rate-limit-rps" mapstructure:"rate-limit-rps"`
	RateLimitBurst int     `json:"rate-limit-burst" mapstructure:"rate-limit-burst"`

	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// Addr is the address the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var defaults = map[string]any{
	"host":                  "0.0.0.0",
	"port":                  8080,
	"allowed-origins":       []string{"*"},
	"log-level":             "info",
	"log-format":            "text",
	"store-backend":         "auto",
	"data-dir":              "./data",
	"mongo-uri":             "",
	"mongo-database":        "franchise_admin",
	"mongo-max-pool-size":   10,
	"mongo-connect-timeout": "10s",
	"mongo-socket-timeout":  "45s",
	"rate-limit-rps":        0,
	"rate-limit-burst":      20,
	"shutdown-timeout":      "15s",
}

// Backends lists the accepted store-backend values.
var Backends = []string{"auto", "mongo", "sqlite", "json", "memory"}

// Load reads .env (if present) into the environment, then config.json (if
// present) and the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env: %w", err)
	}
	return load(configFilePath)
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		// The file is optional; everything can come from the environment.
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if !slices.Contains(Backends, c.StoreBackend) {
		return fmt.Errorf("unknown store-backend %q (supported: %s)", c.StoreBackend, strings.Join(Backends, ", "))
	}
	if c.StoreBackend == "mongo" && c.MongoURI == "" {
		return errors.New("store-backend mongo requires mongo-uri")
	}
	if (c.StoreBackend == "sqlite" || c.StoreBackend == "json") && c.DataDir == "" {
		return fmt.Errorf("store-backend %s requires data-dir", c.StoreBackend)
	}
	if c.MongoConnectTimeout <= 0 {
		return fmt.Errorf("mongo-connect-timeout must be positive, got %s", c.MongoConnectTimeout)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate-limit-rps must not be negative, got %v", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return errors.New("rate-limit-burst must be positive when rate limiting is enabled")
	}
	return nil
}
