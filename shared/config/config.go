// Package config loads service configuration from an optional YAML file and
// DIGIBANK_-prefixed environment variables, then validates it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "DIGIBANK"

// ServerConfig is shared by every binary.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`
}

// LogConfig selects the zap encoding and level.
type LogConfig struct {
	Mode  string `mapstructure:"mode" validate:"omitempty,oneof=dev development prod production"`
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// TracingConfig controls OpenTelemetry export. Correlation ids are propagated
// regardless of whether spans are exported.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// RegistryConfig selects how logical service names resolve to instances.
type RegistryConfig struct {
	Mode        string              `mapstructure:"mode" validate:"required,oneof=static consul"`
	ConsulAddr  string              `mapstructure:"consul_addr" validate:"required_if=Mode consul"`
	Instances   map[string][]string `mapstructure:"instances"`
	HealthCheck HealthCheckConfig   `mapstructure:"health_check"`
}

// HealthCheckConfig drives probing of static instances.
type HealthCheckConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures int           `mapstructure:"max_failures" validate:"gte=0"`
}

// DatabaseConfig points at the PostgreSQL store owned by a service.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
	// Migrate applies the service's embedded schema migrations at startup.
	Migrate bool `mapstructure:"migrate"`
}

// RedisConfig points at the read-model cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

var validate = validator.New()

// Load fills out from defaults, the config file and the environment, in
// increasing order of precedence. The file is DIGIBANK_CONFIG when set, otherwise
// ./config/<name>.yaml; a missing file is not an error.
func Load(name string, defaults map[string]any, out any) error {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path := strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG")); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(name)
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only sees keys viper already knows about.
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CommonDefaults are the defaults every binary starts from.
func CommonDefaults(port int) map[string]any {
	return map[string]any{
		"server.port":          port,
		"log.mode":             "development",
		"log.level":            "info",
		"tracing.enabled":      false,
		"tracing.endpoint":     "",
		"tracing.sample_ratio": 0.1,
	}
}
