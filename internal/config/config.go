// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for one run
type Config struct {
	// Model and input configuration
	Model          string    `mapstructure:"model"`
	Shape          []int64   `mapstructure:"shape"`
	Values         []float32 `mapstructure:"values"`
	Outputs        []string  `mapstructure:"outputs"`
	ScalarIndex    int       `mapstructure:"scalar_index"`
	IntraOpThreads int       `mapstructure:"intra_op_threads"`

	// Runtime environment configuration
	EnvironmentName string `mapstructure:"environment_name"`
	LogLevel        string `mapstructure:"log_level"`
	OnnxLib         string `mapstructure:"onnx_lib"`

	// Optional integrations
	Redis       string        `mapstructure:"redis"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	PushGateway string        `mapstructure:"push_gateway"`
	OTELEnabled bool          `mapstructure:"otel_enabled"`

	// Feature flags
	UseMock bool `mapstructure:"use_mock"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "random_forest_model_v9.onnx")
	v.SetDefault("shape", []int64{1, 4})
	v.SetDefault("values", []float32{1.0, 2.0, 3.0, 4.0})
	v.SetDefault("outputs", []string{})
	v.SetDefault("scalar_index", 0)
	v.SetDefault("intra_op_threads", 1)
	v.SetDefault("environment_name", "forest-runner")
	v.SetDefault("log_level", "info")
	v.SetDefault("onnx_lib", "")
	v.SetDefault("redis", "")
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("push_gateway", "")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("use_mock", false)
}

// New returns a viper instance carrying defaults and environment bindings.
// Priority (highest to lowest): flags > env vars > config file > defaults.
// The cmd layer sets flag overrides on this instance before Read is called.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FOREST_RUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Read finishes loading: it reads the optional config file and unmarshals the
// merged result. An empty configFile falls back to the search path lookup.
func Read(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/forest-runner/")
		v.AddConfigPath("$HOME/.forest-runner")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			// Config file not found; ignore
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Load loads configuration with no flag overrides and the default search path.
func Load() (*Config, error) {
	return Read(New(), "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Model == "" && !c.UseMock {
		return fmt.Errorf("model path is required when not using the mock engine")
	}
	if c.IntraOpThreads < 0 {
		return fmt.Errorf("intra_op_threads must be zero or positive, got %d", c.IntraOpThreads)
	}
	if c.ScalarIndex < 0 {
		return fmt.Errorf("scalar_index must be zero or positive, got %d", c.ScalarIndex)
	}
	if len(c.Values) == 0 {
		return fmt.Errorf("at least one input value is required")
	}
	for i, d := range c.Shape {
		if d <= 0 {
			return fmt.Errorf("shape dimension %d must be positive, got %d", i, d)
		}
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
