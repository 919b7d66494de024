package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"donation-checkout-api/database"
	"donation-checkout-api/services/email"
	"donation-checkout-api/services/payment/moneris"
)

type Config struct {
	Database database.DatabaseConfig
	Moneris  MonerisConfig
	Gateways GatewaysConfig
	SMTP     email.SMTPConfig
	Server   ServerConfig
	Redis    RedisConfig
	Session  SessionConfig
	Auth     AuthConfig
	Site     SiteConfig
}

type MonerisConfig struct {
	StoreID               string
	APIToken              string
	TestMode              bool
	CountryCode           string
	StatementDescriptor   string
	OrderPrefix           string
	CollectBillingDetails bool
	RequestTimeout        time.Duration
}

type GatewaysConfig struct {
	Active []string
}

type ServerConfig struct {
	Port          string
	AllowedOrigin string
}

type RedisConfig struct {
	URL               string
	WorkerConcurrency int
	QueueName         string
}

type SessionConfig struct {
	Secret string
	Domain string
	MaxAge int
	Secure bool
}

type AuthConfig struct {
	JWTSecret      string
	Issuer         string
	InternalSecret string
}

type SiteConfig struct {
	SuccessURL      string
	CheckoutURL     string
	DefaultCurrency string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Database: database.DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Moneris: MonerisConfig{
			StoreID:               os.Getenv("MONERIS_STORE_ID"),
			APIToken:              os.Getenv("MONERIS_API_TOKEN"),
			TestMode:              getBool("MONERIS_TEST_MODE", false),
			CountryCode:           strings.ToUpper(getString("MONERIS_COUNTRY_CODE", "CA")),
			StatementDescriptor:   os.Getenv("MONERIS_STATEMENT_DESCRIPTOR"),
			OrderPrefix:           getString("MONERIS_ORDER_PREFIX", "give"),
			CollectBillingDetails: getBool("MONERIS_COLLECT_BILLING_DETAILS", false),
			RequestTimeout:        getDuration("MONERIS_REQUEST_TIMEOUT", moneris.DefaultRequestTimeout),
		},
		Gateways: GatewaysConfig{
			Active: getList("ACTIVE_GATEWAYS", []string{moneris.GatewayID}),
		},
		SMTP: email.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getString("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getString("SMTP_FROM", "no-reply@example.org"),
			FromName: getString("SMTP_FROM_NAME", "Donations"),
		},
		Server: ServerConfig{
			Port:          getString("SERVER_PORT", "8080"),
			AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		},
		Redis: RedisConfig{
			URL:               os.Getenv("REDIS_URL"),
			WorkerConcurrency: getInt("WORKER_CONCURRENCY", 2),
			QueueName:         getString("QUEUE_NAME", "donation_jobs"),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
			Domain: os.Getenv("SESSION_DOMAIN"),
			MaxAge: getInt("SESSION_MAX_AGE", 1800),
			Secure: getBool("SESSION_SECURE", true),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			Issuer:         getString("JWT_ISSUER", "donation-checkout-api"),
			InternalSecret: os.Getenv("INTERNAL_API_SECRET"),
		},
		Site: SiteConfig{
			SuccessURL:      getString("SITE_SUCCESS_URL", "/donation-confirmation"),
			CheckoutURL:     getString("SITE_CHECKOUT_URL", "/donate"),
			DefaultCurrency: strings.ToUpper(getString("SITE_DEFAULT_CURRENCY", "CAD")),
		},
	}

	// Use default Redis URL if not set
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
		log.Printf("Warning: REDIS_URL not set, using default: %s", cfg.Redis.URL)
	}

	if cfg.Moneris.TestMode {
		log.Printf("Warning: Moneris is running in test mode")
	}

	log.Printf("Config loaded: port=%s gateways=%v moneris_country=%s moneris_test=%v",
		cfg.Server.Port, cfg.Gateways.Active, cfg.Moneris.CountryCode, cfg.Moneris.TestMode)

	return cfg
}

// IsGatewayActive reports whether id is listed in ACTIVE_GATEWAYS.
func (c *Config) IsGatewayActive(id string) bool {
	for _, active := range c.Gateways.Active {
		if active == id {
			return true
		}
	}
	return false
}

// MonerisReady reports whether the Moneris credentials are present.
func (c *Config) MonerisReady() bool {
	return c.Moneris.StoreID != "" && c.Moneris.APIToken != ""
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s: %q, using %v", key, value, fallback)
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s: %q, using %d", key, value, fallback)
		return fallback
	}
	return parsed
}

// getDuration accepts Go durations ("45s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("Warning: invalid duration for %s: %q, using %v", key, value, fallback)
		return fallback
	}
	return parsed
}

func getList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
