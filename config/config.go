package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenSecret is only meant for local runs; main warns when it is in use.
const DefaultTokenSecret = "default-very-insecure-secret-key"

type Config struct {
	HTTPPort       int             `mapstructure:"http_port"`
	GRPCPort       int             `mapstructure:"grpc_port"`
	LogLevel       string          `mapstructure:"log_level"`
	DatabaseDriver string          `mapstructure:"database_driver"` // mysql | sqlite
	DatabaseURL    string          `mapstructure:"database_url"`
	ServiceName    string          `mapstructure:"service_name"`
	TokenSecret    string          `mapstructure:"token_secret"`
	BcryptCost     int             `mapstructure:"bcrypt_cost"`
	RateLimit      float64         `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateLimitBurst int             `mapstructure:"rate_limit_burst"`
	Superuser      SuperuserConfig `mapstructure:"superuser"`
	Consul         ConsulConfig    `mapstructure:"consul"`
}

// SuperuserConfig seeds an initial admin account. Seeding is skipped when Email is empty.
type SuperuserConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type ConsulConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Address     string `mapstructure:"address"`
	ServiceHost string `mapstructure:"service_host"` // address consul uses to reach this instance
}

var AppConfig Config

// Load reads config.yaml from the given paths (defaults to "." and "./config"),
// applies RECIPE_* environment overrides and validates the result.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("RECIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("database_driver", "mysql")
	v.SetDefault("database_url", "")
	v.SetDefault("service_name", "recipe-api")
	v.SetDefault("token_secret", DefaultTokenSecret)
	v.SetDefault("bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("rate_limit", 50)
	v.SetDefault("rate_limit_burst", 100)
	v.SetDefault("superuser.email", "")
	v.SetDefault("superuser.password", "")
	v.SetDefault("consul.enabled", false)
	v.SetDefault("consul.address", "127.0.0.1:8500")
	v.SetDefault("consul.service_host", "localhost")
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database_driver %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateLimitBurst < 1 {
		return errors.New("rate_limit_burst must be positive when rate_limit is set")
	}
	if c.Superuser.Email != "" && c.Superuser.Password == "" {
		return errors.New("superuser.password is required when superuser.email is set")
	}
	return nil
}

// InitConfig loads the configuration into AppConfig and panics when it is unusable.
func InitConfig() {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Errorf("fatal error loading config: %w", err))
	}
	AppConfig = *cfg
}
