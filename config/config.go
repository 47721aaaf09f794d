package config

import (
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ServiceName      string         `mapstructure:"service_name"`
	Env              string         `mapstructure:"env"`
	Host             string         `mapstructure:"host"`
	Port             string         `mapstructure:"port"`
	AssetDir         string         `mapstructure:"asset_dir"`
	OTELEndpoint     string         `mapstructure:"otel_endpoint"`
	TelemetryEnabled bool           `mapstructure:"telemetry_enabled"`
	Checkout         CheckoutConfig `mapstructure:"checkout"`
}

// CheckoutConfig holds the merchant credentials and redirect targets used
// when talking to the payment gateway.
type CheckoutConfig struct {
	APIURL            string        `mapstructure:"api_url"`
	SecretKey         string        `mapstructure:"secret_key"`
	PublicKey         string        `mapstructure:"public_key"`
	ProcessingChannel string        `mapstructure:"processing_channel"`
	SuccessURL        string        `mapstructure:"success_url"`
	FailureURL        string        `mapstructure:"failure_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// envBindings maps config keys to the environment variables the demo has
// always been configured with.
var envBindings = map[string]string{
	"env":                         "ENV",
	"host":                        "HOST",
	"port":                        "PORT",
	"asset_dir":                   "ASSET_DIR",
	"otel_endpoint":               "OTEL_EXPORTER_OTLP_ENDPOINT",
	"telemetry_enabled":           "TELEMETRY_ENABLED",
	"checkout.api_url":            "CHECKOUT_API_URL",
	"checkout.secret_key":         "CHECKOUT_SECRET_KEY",
	"checkout.public_key":         "CHECKOUT_PUBLIC_KEY",
	"checkout.processing_channel": "CHECKOUT_PROCESSING_CHANNEL",
	"checkout.success_url":        "SUCCESS_URL",
	"checkout.failure_url":        "FAILURE_URL",
	"checkout.timeout":            "GATEWAY_TIMEOUT",
}

// Load loads configuration from a .env file (if present) and environment variables
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "checkout-demo")
	v.SetDefault("env", "development")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "3000")
	v.SetDefault("asset_dir", "public")
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("telemetry_enabled", false)

	v.SetDefault("checkout.api_url", "https://api.sandbox.checkout.com")
	v.SetDefault("checkout.secret_key", "")
	v.SetDefault("checkout.public_key", "")
	v.SetDefault("checkout.processing_channel", "")
	v.SetDefault("checkout.success_url", "http://localhost:3000/?status=success")
	v.SetDefault("checkout.failure_url", "http://localhost:3000/?status=failed")
	v.SetDefault("checkout.timeout", 10*time.Second)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// GinMode maps the deployment environment onto a gin mode.
func (c *Config) GinMode() string {
	switch c.Env {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
