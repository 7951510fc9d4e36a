package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/otpgate/pkg/middleware"
	"github.com/platinummonkey/otpgate/pkg/observability"
	"github.com/platinummonkey/otpgate/pkg/phone"
	"github.com/platinummonkey/otpgate/pkg/settings"
	"github.com/platinummonkey/otpgate/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// OTP settings defaults and provider tuning
	OTP OTPConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Identity provisioning
	Identity IdentityConfig

	// Audit log
	Audit AuditConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	CORSOrigins     []string
	// TrustedProxies are CIDRs or addresses whose forwarding headers are
	// believed when resolving the client address
	TrustedProxies []string

	// Metrics/health server (separate port for k8s probes)
	OpsPort string
}

// OTPConfig holds the settings snapshot defaults and provider tuning
type OTPConfig struct {
	// Defaults seed the settings manager before the first reload
	Defaults settings.OTPConfig

	// SettingsSource is "db" or "file"
	SettingsSource string
	SettingsFile   string
	SettingsKey    string

	ProviderTimeout time.Duration
	CountryCode     string
}

// RateLimitConfig holds limiter settings
type RateLimitConfig struct {
	// Backend is "memory" or "redis"
	Backend     string
	IPLimit     int
	IPWindow    time.Duration
	PhoneLimit  int
	PhoneWindow time.Duration
	// Capacity bounds the number of tracked keys in the memory backend
	Capacity int
}

// IdentityConfig holds identity provisioning settings
type IdentityConfig struct {
	AliasDomain string
}

// AuditConfig holds audit log settings
type AuditConfig struct {
	// FileDir enables an NDJSON mirror of the audit log when set
	FileDir   string
	Workers   int
	QueueSize int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  observability.LogLevel
	LogFormat string

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		OTP:           loadOTPConfig(),
		RateLimit:     loadRateLimitConfig(),
		Identity:      IdentityConfig{AliasDomain: getEnv("OTPGATE_ALIAS_DOMAIN", "agents.otpgate.internal")},
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("OTPGATE_HOST", "0.0.0.0"),
		Port:            getEnv("OTPGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("OTPGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("OTPGATE_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("OTPGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("OTPGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("OTPGATE_MAX_BODY_BYTES", 1<<20),
		CORSOrigins:     getEnvList("OTPGATE_CORS_ORIGINS"),
		TrustedProxies:  getEnvList("OTPGATE_TRUSTED_PROXIES"),
		OpsPort:         getEnv("OTPGATE_OPS_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if driver := getEnv("OTPGATE_DB_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	if url := getEnv("OTPGATE_DB_URL", ""); url != "" {
		cfg.URL = url
	}
	if maxConns := getEnvInt("OTPGATE_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxOpenConns = maxConns
	}

	cfg.RedisURL = getEnv("OTPGATE_REDIS_URL", "")
	if redisPassword := getEnv("OTPGATE_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("OTPGATE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("OTPGATE_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	return cfg
}

// loadOTPConfig loads settings defaults from environment
func loadOTPConfig() OTPConfig {
	mode, _ := settings.ParseMode(getEnv("OTPGATE_MODE", string(settings.ModeMock)))

	return OTPConfig{
		Defaults: settings.OTPConfig{
			Provider:      getEnv("OTPGATE_PROVIDER", "2factor"),
			Mode:          mode,
			APIKey:        getEnv("OTPGATE_API_KEY", ""),
			SenderID:      getEnv("OTPGATE_SENDER_ID", "OTPGTE"),
			TemplateText:  getEnv("OTPGATE_TEMPLATE", "Your OTP is {otp}"),
			SendEnabled:   getEnvBool("OTPGATE_SEND_ENABLED", true),
			VerifyEnabled: getEnvBool("OTPGATE_VERIFY_ENABLED", true),
			BaseURL:       getEnv("OTPGATE_PROVIDER_URL", "https://2factor.in/API/V1"),
		},
		SettingsSource:  strings.ToLower(getEnv("OTPGATE_SETTINGS_SOURCE", "db")),
		SettingsFile:    getEnv("OTPGATE_SETTINGS_FILE", ""),
		SettingsKey:     getEnv("OTPGATE_SETTINGS_KEY", settings.DefaultKey),
		ProviderTimeout: getEnvDuration("OTPGATE_PROVIDER_TIMEOUT", 10*time.Second),
		CountryCode:     getEnv("OTPGATE_COUNTRY_CODE", phone.DefaultCountryCode),
	}
}

// loadRateLimitConfig loads limiter configuration from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Backend:     strings.ToLower(getEnv("OTPGATE_RATE_BACKEND", "memory")),
		IPLimit:     getEnvInt("OTPGATE_RATE_IP_LIMIT", 100),
		IPWindow:    getEnvDuration("OTPGATE_RATE_IP_WINDOW", time.Minute),
		PhoneLimit:  getEnvInt("OTPGATE_RATE_PHONE_LIMIT", 5),
		PhoneWindow: getEnvDuration("OTPGATE_RATE_PHONE_WINDOW", 10*time.Minute),
		Capacity:    getEnvInt("OTPGATE_RATE_CAPACITY", 10000),
	}
}

// loadAuditConfig loads audit configuration from environment
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		FileDir:   getEnv("OTPGATE_AUDIT_FILE_DIR", ""),
		Workers:   getEnvInt("OTPGATE_AUDIT_WORKERS", 4),
		QueueSize: getEnvInt("OTPGATE_AUDIT_QUEUE_SIZE", 1024),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("OTPGATE_LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("OTPGATE_LOG_FORMAT", "json")),
		MetricsEnabled:     getEnvBool("OTPGATE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("OTPGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("OTPGATE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("OTPGATE_OTEL_SERVICE_NAME", "otpgate"),
		OTelServiceVersion: getEnv("OTPGATE_OTEL_SERVICE_VERSION", observability.Version),
		OTelInsecure:       getEnvBool("OTPGATE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.OpsPort == "" {
		return fmt.Errorf("ops port is required")
	}
	if c.Server.Port == c.Server.OpsPort {
		return fmt.Errorf("server port and ops port must be different")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}
	if _, err := middleware.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		return err
	}

	// Validate storage config
	if err := storage.ValidateDriver(c.Storage.Driver); err != nil {
		return err
	}
	if c.Storage.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	// Validate OTP config
	if !c.OTP.Defaults.Mode.Valid() {
		return fmt.Errorf("invalid mode: must be mock or live")
	}
	switch c.OTP.SettingsSource {
	case "db":
	case "file":
		if c.OTP.SettingsFile == "" {
			return fmt.Errorf("settings file is required for file settings source")
		}
	default:
		return fmt.Errorf("invalid settings source: %s (must be db or file)", c.OTP.SettingsSource)
	}
	if c.OTP.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}
	if phone.Digits(c.OTP.CountryCode) != c.OTP.CountryCode || c.OTP.CountryCode == "" {
		return fmt.Errorf("country code must be digits only: %q", c.OTP.CountryCode)
	}

	// Validate rate limit config
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis rate limit backend")
		}
	default:
		return fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend)
	}
	if c.RateLimit.IPLimit <= 0 || c.RateLimit.PhoneLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.RateLimit.IPWindow <= 0 || c.RateLimit.PhoneWindow <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}

	if c.Identity.AliasDomain == "" {
		return fmt.Errorf("alias domain is required")
	}
	if c.Audit.Workers <= 0 {
		return fmt.Errorf("audit workers must be positive")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable as a trimmed list
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
