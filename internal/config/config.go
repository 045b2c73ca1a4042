package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Server     ServerConfig
	Auth       AuthConfig
	Matching   MatchingConfig
	WineRef    WineRefConfig
	Compliance ComplianceConfig
	Jobs       JobsConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout  int
	WriteTimeout int
}

// AuthConfig holds token validation settings. The API layer owns session
// handling; the core only needs the signing secret to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string
}

// MatchingConfig controls the product identity resolver
type MatchingConfig struct {
	// AutoCreateEnabled gates minting of canonical records for identifier
	// matches that find no existing mapping
	AutoCreateEnabled bool
	// LookupTimeout bounds the external wine-reference lookup (seconds)
	LookupTimeout int
}

// WineRefConfig configures the external wine-reference/price-intelligence API
type WineRefConfig struct {
	BaseURL string
	APIKey  string
	Timeout int
}

// ComplianceConfig configures the compliance subsystem client
type ComplianceConfig struct {
	BaseURL string
	Timeout int
}

// JobsConfig controls background jobs
type JobsConfig struct {
	// OfferExpiryEnabled enables the sweep that expires sent offers past
	// their expiry date
	OfferExpiryEnabled bool
	// OfferExpiryCron is the cron expression for the sweep
	OfferExpiryCron string
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// LookupTimeoutDuration returns the resolver lookup deadline as duration
func (m *MatchingConfig) LookupTimeoutDuration() time.Duration {
	return time.Duration(m.LookupTimeout) * time.Second
}

// TimeoutDuration returns the wine-reference request timeout as duration
func (w *WineRefConfig) TimeoutDuration() time.Duration {
	return time.Duration(w.Timeout) * time.Second
}

// TimeoutDuration returns the compliance request timeout as duration
func (c *ComplianceConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.WineRef.APIKey == "" {
		cfg.WineRef.APIKey = v.GetString("WINEREF_API_KEY")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Winefeed API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "winefeed")
	v.SetDefault("database.user", "winefeed_user")
	v.SetDefault("database.password", "winefeed_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Matching defaults - auto-create is opt-in
	v.SetDefault("matching.autoCreateEnabled", false)
	v.SetDefault("matching.lookupTimeout", 5)

	// Wine reference lookup defaults
	v.SetDefault("wineref.baseURL", "")
	v.SetDefault("wineref.timeout", 5)

	// Compliance defaults
	v.SetDefault("compliance.baseURL", "")
	v.SetDefault("compliance.timeout", 10)

	// Jobs defaults
	v.SetDefault("jobs.offerExpiryEnabled", true)
	v.SetDefault("jobs.offerExpiryCron", "@hourly")

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
}
