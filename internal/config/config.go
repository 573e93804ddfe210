package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server             ServerConfig             `mapstructure:"server"`
	Auth               AuthConfig               `mapstructure:"auth"`
	CORS               CORSConfig               `mapstructure:"cors"`
	RateLimit          RateLimitConfig          `mapstructure:"rate_limit"`
	Redis              RedisConfig              `mapstructure:"redis"`
	Supabase           SupabaseConfig           `mapstructure:"supabase"`
	Queue              QueueConfig              `mapstructure:"queue"`
	RecipientRateLimit RecipientRateLimitConfig `mapstructure:"recipient_rate_limit"`
	Email              EmailConfig              `mapstructure:"email"`
	Twilio             TwilioConfig             `mapstructure:"twilio"`
	WooCommerce        WooCommerceConfig        `mapstructure:"woocommerce"`
	Monitor            MonitorConfig            `mapstructure:"monitor"`
	Store              StoreConfig              `mapstructure:"store"`
	Purger             PurgerConfig             `mapstructure:"purger"`
	SettingsCache      SettingsCacheConfig      `mapstructure:"settings_cache"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// RateLimitConfig holds per-IP HTTP rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SupabaseConfig holds Supabase project settings.
// Persistence is disabled when URL is empty.
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

// Enabled reports whether a Supabase project is configured.
func (c SupabaseConfig) Enabled() bool {
	return c.URL != "" && c.ServiceKey != ""
}

// QueueConfig holds async dispatch queue settings.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxRetry    int `mapstructure:"max_retry"`
}

// RecipientRateLimitConfig holds per-recipient rate limiting settings.
type RecipientRateLimitConfig struct {
	MaxPerHour int `mapstructure:"max_per_hour"`
}

// EmailConfig holds Resend settings.
type EmailConfig struct {
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// TwilioConfig holds Twilio settings shared by the SMS and WhatsApp senders.
// Missing credentials switch the senders to testing mode.
type TwilioConfig struct {
	AccountSID     string `mapstructure:"account_sid"`
	AuthToken      string `mapstructure:"auth_token"`
	PhoneNumber    string `mapstructure:"phone_number"`
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
}

// WooCommerceConfig holds store API credentials.
type WooCommerceConfig struct {
	StoreURL       string `mapstructure:"store_url"`
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	OrderLimit     int    `mapstructure:"order_limit"`
	ProductLimit   int    `mapstructure:"product_limit"`
}

// Enabled reports whether WooCommerce credentials are configured.
func (c WooCommerceConfig) Enabled() bool {
	return c.StoreURL != "" && c.ConsumerKey != "" && c.ConsumerSecret != ""
}

// MonitorConfig holds polling monitor settings (durations as seconds for YAML/env compat).
type MonitorConfig struct {
	IntervalSec       int `mapstructure:"interval_sec"`
	LowStockThreshold int `mapstructure:"low_stock_threshold"`
}

// Interval returns the polling interval.
func (c MonitorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// StoreConfig holds in-app notification store settings.
type StoreConfig struct {
	Name     string `mapstructure:"name"`
	Capacity int    `mapstructure:"capacity"`
}

// PurgerConfig holds old notification purge settings.
type PurgerConfig struct {
	IntervalSec  int `mapstructure:"interval_sec"`
	RetentionSec int `mapstructure:"retention_sec"`
}

// SettingsCacheConfig holds admin settings cache settings.
type SettingsCacheConfig struct {
	TTLSec int `mapstructure:"ttl_sec"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the BACKOFFICE_ prefix and underscore separators.
// Example: BACKOFFICE_MONITOR_INTERVAL_SEC overrides monitor.interval_sec.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// .env is optional
	_ = godotenv.Load()

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// API keys may arrive as a YAML list or a comma-separated env var
	keys := cfg.Auth.APIKeys
	if len(keys) == 0 {
		keys = []string{v.GetString("auth.api_keys")}
	}
	cfg.Auth.APIKeys = splitList(strings.Join(keys, ","))

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so AutomaticEnv can fill them on Unmarshal.
	for _, key := range []string{
		"auth.api_keys",
		"supabase.url", "supabase.service_key",
		"email.api_key", "email.from_address",
		"twilio.account_sid", "twilio.auth_token", "twilio.phone_number", "twilio.whatsapp_number",
		"woocommerce.store_url", "woocommerce.consumer_key", "woocommerce.consumer_secret",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("server.port", 8081)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.max_retry", 0) // the poll interval is the retry mechanism
	v.SetDefault("recipient_rate_limit.max_per_hour", 30)
	v.SetDefault("email.from_name", "Back Office")
	v.SetDefault("woocommerce.order_limit", 5)
	v.SetDefault("woocommerce.product_limit", 20)
	v.SetDefault("monitor.interval_sec", 10)
	v.SetDefault("monitor.low_stock_threshold", 2)
	v.SetDefault("store.name", "Flamenca Store")
	v.SetDefault("store.capacity", 10)
	v.SetDefault("purger.interval_sec", 3600)
	v.SetDefault("purger.retention_sec", 3600)
	v.SetDefault("settings_cache.ttl_sec", 60)
}

func (c *Config) validate() error {
	if c.Monitor.IntervalSec <= 0 {
		return fmt.Errorf("monitor.interval_sec must be positive, got %d", c.Monitor.IntervalSec)
	}
	if c.Monitor.LowStockThreshold <= 0 {
		return fmt.Errorf("monitor.low_stock_threshold must be positive, got %d", c.Monitor.LowStockThreshold)
	}
	if c.Store.Capacity <= 0 {
		return fmt.Errorf("store.capacity must be positive, got %d", c.Store.Capacity)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
