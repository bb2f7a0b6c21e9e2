package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Environments a gateway adapter can be resolved for.
const (
	EnvLive    = "live"
	EnvSandbox = "sandbox"
	EnvMock    = "mock"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// GatewayConfig is the supported-methods table plus the settings shared by
// every gateway interaction.
type GatewayConfig struct {
	// Environment selects which adapter variant methods resolve to:
	// live, sandbox or mock.
	Environment string `mapstructure:"environment"`
	// BaseCallbackURL is this service's externally reachable base URL,
	// used to build gateway-hosted return URLs.
	BaseCallbackURL string `mapstructure:"base_callback_url"`
	// RequestTimeout bounds one outbound gateway call.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// LockTTL bounds the per-record callback lock.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// PostProcessRedirect, when set, is surfaced to the caller after a
	// terminal transition instead of the default confirmation view.
	PostProcessRedirect string `mapstructure:"post_process_redirect"`

	Methods map[string]MethodConfig `mapstructure:"methods"`
}

// MethodConfig maps one logical payment method onto an adapter.
type MethodConfig struct {
	// Adapter is the registered adapter name, e.g. "dummy_merchant_hosted"
	// or "paypal_express".
	Adapter string `mapstructure:"adapter"`
	// AdapterOverrides maps an environment to an adapter name, taking
	// precedence over the environment convention.
	AdapterOverrides map[string]string `mapstructure:"adapter_overrides"`
	// Endpoints maps an environment to the gateway endpoint URL.
	Endpoints map[string]string `mapstructure:"endpoints"`
	// CheckoutURLs maps an environment to the hosted checkout page, for
	// gateway-hosted methods that redirect to a fixed page.
	CheckoutURLs map[string]string `mapstructure:"checkout_urls"`
	Credentials  CredentialsConfig `mapstructure:"credentials"`
	Currencies   []string          `mapstructure:"currencies"`
	CardBrands   []string          `mapstructure:"card_brands"`
	// Action is a gateway-specific payment action, e.g. PayPal "Sale".
	Action string `mapstructure:"action"`
}

type CredentialsConfig struct {
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Signature string `mapstructure:"signature"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PAYGATE")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paygate")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}

	switch c.Gateway.Environment {
	case EnvLive, EnvSandbox, EnvMock:
	default:
		errs = append(errs, fmt.Errorf("gateway.environment must be live, sandbox or mock, got %q", c.Gateway.Environment))
	}
	if c.Gateway.BaseCallbackURL == "" {
		errs = append(errs, fmt.Errorf("gateway.base_callback_url is required"))
	}
	if c.Gateway.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.request_timeout must be positive"))
	}
	if c.Gateway.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("gateway.lock_ttl must be positive"))
	}
	for name, m := range c.Gateway.Methods {
		if m.Adapter == "" && len(m.AdapterOverrides) == 0 {
			errs = append(errs, fmt.Errorf("gateway.methods.%s: adapter is required", name))
		}
		if len(m.Currencies) == 0 {
			errs = append(errs, fmt.Errorf("gateway.methods.%s: at least one currency is required", name))
		}
	}

	if c.Gateway.Environment == EnvLive {
		for name, m := range c.Gateway.Methods {
			if m.Endpoints[EnvLive] == "" {
				errs = append(errs, fmt.Errorf("gateway.methods.%s: live endpoint required in live environment", name))
			}
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit_per_min", 120)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "paygate")
	v.SetDefault("database.database", "paygate")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Gateway defaults
	v.SetDefault("gateway.environment", EnvSandbox)
	v.SetDefault("gateway.base_callback_url", "http://localhost:8080")
	v.SetDefault("gateway.request_timeout", "30s")
	v.SetDefault("gateway.lock_ttl", "30s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "paygate-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
