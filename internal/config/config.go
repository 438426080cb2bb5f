package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logger   LoggerConfig   `yaml:"logger"`
	Auth     AuthConfig     `yaml:"auth"`
	S3       S3Config       `yaml:"s3"`
	Coupons  CouponConfig   `yaml:"coupons"`
	Carrier  CarrierConfig  `yaml:"carrier"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Notify   NotifyConfig   `yaml:"notify"`
	Redis    RedisConfig    `yaml:"redis"`
	Shipping ShippingConfig `yaml:"shipping"`
	Pricing  PricingConfig  `yaml:"pricing"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxConnections  int    `yaml:"max_connections"`
	MinConnections  int    `yaml:"min_connections"`
	MaxConnLifetime int    `yaml:"max_conn_lifetime"` // seconds
	AutoMigrate     bool   `yaml:"auto_migrate"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// S3Config holds AWS S3 configuration for coupon catalog files.
type S3Config struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	Prefix  string `yaml:"prefix"` // Path prefix within bucket (e.g., "coupons/")
}

// CouponConfig lists the coupon catalog files.
type CouponConfig struct {
	Files []string `yaml:"files"`
}

// CarrierConfig configures the shipping carrier client. An empty BaseURL
// disables the carrier; shipments are then recorded without tracking.
type CarrierConfig struct {
	Name               string `yaml:"name"`
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	ReferenceMaxLength int    `yaml:"reference_max_length"`
	OriginCommune      string `yaml:"origin_commune"`
	PackageLengthCm    int    `yaml:"package_length_cm"`
	PackageWidthCm     int    `yaml:"package_width_cm"`
	PackageHeightCm    int    `yaml:"package_height_cm"`
	PackageWeightGrams int    `yaml:"package_weight_grams"`
}

// GatewayConfig configures the payment gateway client.
type GatewayConfig struct {
	BaseURL        string `yaml:"base_url"`
	CommerceCode   string `yaml:"commerce_code"`
	APIKey         string `yaml:"api_key"`
	ReturnURL      string `yaml:"return_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	WebhookSecret  string `yaml:"webhook_secret"`
}

// NotifyConfig configures order confirmation delivery.
type NotifyConfig struct {
	Backend        string `yaml:"backend"` // "log" or "kafka"
	KafkaBroker    string `yaml:"kafka_broker"`
	KafkaTopic     string `yaml:"kafka_topic"`
	FlushTimeoutMs int    `yaml:"flush_timeout_ms"`
}

// RedisConfig configures the webhook replay guard.
type RedisConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Addr             string `yaml:"addr"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	ReplayTTLSeconds int    `yaml:"replay_ttl_seconds"`
}

// ShippingConfig holds the flat shipping rate table.
type ShippingConfig struct {
	DefaultCost int64            `yaml:"default_cost"`
	RegionCosts map[string]int64 `yaml:"region_costs"`
}

// PricingConfig holds pricing parameters.
type PricingConfig struct {
	TaxRatePercent int64 `yaml:"tax_rate_percent"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Database:        "checkout",
			MaxConnections:  25,
			MinConnections:  5,
			MaxConnLifetime: 300,
		},
		Logger: LoggerConfig{Level: "info", Format: "json"},
		S3:     S3Config{Region: "us-east-1", Prefix: "coupons/"},
		Coupons: CouponConfig{
			Files: []string{"data/coupons/catalog.csv.gz"},
		},
		Carrier: CarrierConfig{
			Name:               "chilexpress",
			TimeoutSeconds:     10,
			ReferenceMaxLength: 25,
			OriginCommune:      "santiago",
			PackageLengthCm:    30,
			PackageWidthCm:     20,
			PackageHeightCm:    15,
			PackageWeightGrams: 1000,
		},
		Gateway: GatewayConfig{
			TimeoutSeconds: 15,
			MaxRetries:     3,
		},
		Notify: NotifyConfig{
			Backend:        "log",
			KafkaTopic:     "order-notifications",
			FlushTimeoutMs: 5000,
		},
		Redis: RedisConfig{
			Addr:             "localhost:6379",
			ReplayTTLSeconds: 86400,
		},
		Shipping: ShippingConfig{DefaultCost: 5000},
		Pricing:  PricingConfig{TaxRatePercent: 19},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFromYAML(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing YAML: %w", err)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.MaxConnections = getEnvAsInt("DB_MAX_CONNECTIONS", cfg.Database.MaxConnections)
	cfg.Database.MinConnections = getEnvAsInt("DB_MIN_CONNECTIONS", cfg.Database.MinConnections)
	cfg.Database.MaxConnLifetime = getEnvAsInt("DB_MAX_CONN_LIFETIME", cfg.Database.MaxConnLifetime)
	cfg.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", cfg.Database.AutoMigrate)

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Format = getEnv("LOG_FORMAT", cfg.Logger.Format)

	cfg.Auth.APIKey = getEnv("API_KEY", cfg.Auth.APIKey)

	cfg.S3.Enabled = getEnvAsBool("S3_ENABLED", cfg.S3.Enabled)
	cfg.S3.Bucket = getEnv("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Region = getEnv("S3_REGION", cfg.S3.Region)
	cfg.S3.Prefix = getEnv("S3_PREFIX", cfg.S3.Prefix)

	cfg.Coupons.Files = getEnvAsList("COUPON_FILES", cfg.Coupons.Files)

	cfg.Carrier.Name = getEnv("CARRIER_NAME", cfg.Carrier.Name)
	cfg.Carrier.BaseURL = getEnv("CARRIER_BASE_URL", cfg.Carrier.BaseURL)
	cfg.Carrier.APIKey = getEnv("CARRIER_API_KEY", cfg.Carrier.APIKey)
	cfg.Carrier.TimeoutSeconds = getEnvAsInt("CARRIER_TIMEOUT_SECONDS", cfg.Carrier.TimeoutSeconds)
	cfg.Carrier.ReferenceMaxLength = getEnvAsInt("CARRIER_REFERENCE_MAX_LENGTH", cfg.Carrier.ReferenceMaxLength)
	cfg.Carrier.OriginCommune = getEnv("CARRIER_ORIGIN_COMMUNE", cfg.Carrier.OriginCommune)

	cfg.Gateway.BaseURL = getEnv("GATEWAY_BASE_URL", cfg.Gateway.BaseURL)
	cfg.Gateway.CommerceCode = getEnv("GATEWAY_COMMERCE_CODE", cfg.Gateway.CommerceCode)
	cfg.Gateway.APIKey = getEnv("GATEWAY_API_KEY", cfg.Gateway.APIKey)
	cfg.Gateway.ReturnURL = getEnv("GATEWAY_RETURN_URL", cfg.Gateway.ReturnURL)
	cfg.Gateway.TimeoutSeconds = getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", cfg.Gateway.TimeoutSeconds)
	cfg.Gateway.MaxRetries = getEnvAsInt("GATEWAY_MAX_RETRIES", cfg.Gateway.MaxRetries)
	cfg.Gateway.WebhookSecret = getEnv("GATEWAY_WEBHOOK_SECRET", cfg.Gateway.WebhookSecret)

	cfg.Notify.Backend = getEnv("NOTIFY_BACKEND", cfg.Notify.Backend)
	cfg.Notify.KafkaBroker = getEnv("KAFKA_BROKER", cfg.Notify.KafkaBroker)
	cfg.Notify.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.Notify.KafkaTopic)

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.ReplayTTLSeconds = getEnvAsInt("REDIS_REPLAY_TTL_SECONDS", cfg.Redis.ReplayTTLSeconds)

	cfg.Shipping.DefaultCost = int64(getEnvAsInt("SHIPPING_DEFAULT_COST", int(cfg.Shipping.DefaultCost)))
	cfg.Pricing.TaxRatePercent = int64(getEnvAsInt("TAX_RATE_PERCENT", int(cfg.Pricing.TaxRatePercent)))
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}

	if c.Gateway.CommerceCode == "" {
		return fmt.Errorf("gateway commerce code is required")
	}

	if c.Gateway.ReturnURL == "" {
		return fmt.Errorf("gateway return URL is required")
	}

	if c.Gateway.TimeoutSeconds < 1 || c.Carrier.TimeoutSeconds < 1 {
		return fmt.Errorf("collaborator timeouts must be at least 1 second")
	}

	if c.Carrier.ReferenceMaxLength < 1 {
		return fmt.Errorf("carrier reference max length must be at least 1")
	}

	switch c.Notify.Backend {
	case "log":
	case "kafka":
		if c.Notify.KafkaBroker == "" {
			return fmt.Errorf("kafka broker is required when notify backend is kafka")
		}
		if c.Notify.KafkaTopic == "" {
			return fmt.Errorf("kafka topic is required when notify backend is kafka")
		}
	default:
		return fmt.Errorf("invalid notify backend: %s (must be log or kafka)", c.Notify.Backend)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Shipping.DefaultCost < 0 {
		return fmt.Errorf("shipping default cost cannot be negative")
	}

	if c.Pricing.TaxRatePercent < 0 || c.Pricing.TaxRatePercent > 100 {
		return fmt.Errorf("invalid tax rate percent: %d", c.Pricing.TaxRatePercent)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated environment variable.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
