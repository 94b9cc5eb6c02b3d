package myconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read from the environment only.
type Config struct {
	Port            string
	AllowedOrigins  []string
	DefaultLocale   string
	CatalogSeedFile string
	// TrustedProxies is the number of proxy hops in front of the service whose
	// X-Forwarded-For entries can be believed. Zero means only the remote address counts.
	TrustedProxies  int
	RateLimit       RateLimitConfig
	Integrations    IntegrationDefaults
}

type RateLimitConfig struct {
	Requests   int
	Window     time.Duration
	MaxEntries int
}

// IntegrationDefaults are used when the site-settings document leaves a field empty.
type IntegrationDefaults struct {
	StripeSecretKey       string
	StripePublishableKey  string
	StripeWebhookSecret   string
	ShippingAPIURL        string
	ShippingAPIKey        string
	ShippingOriginCountry string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		DefaultLocale:   getEnv("DEFAULT_LOCALE", "it"),
		CatalogSeedFile: getEnv("CATALOG_SEED_FILE", ""),
		TrustedProxies:  getEnvAsInt("TRUSTED_PROXIES", 0),
		RateLimit: RateLimitConfig{
			Requests:   getEnvAsInt("RATE_LIMIT_REQUESTS", 10),
			Window:     getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			MaxEntries: getEnvAsInt("RATE_LIMIT_MAX_ENTRIES", 10000),
		},
		Integrations: IntegrationDefaults{
			StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey:  getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
			ShippingAPIURL:        getEnv("SHIPPING_API_URL", ""),
			ShippingAPIKey:        getEnv("SHIPPING_API_KEY", ""),
			ShippingOriginCountry: getEnv("SHIPPING_ORIGIN_COUNTRY", "IT"),
		},
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.TrustedProxies < 0 {
		return fmt.Errorf("TRUSTED_PROXIES must not be negative, got %d", c.TrustedProxies)
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimit.Window)
	}
	switch c.DefaultLocale {
	case "it", "en":
	default:
		return fmt.Errorf("invalid DEFAULT_LOCALE: %s (must be it or en)", c.DefaultLocale)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	result := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
