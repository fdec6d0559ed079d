package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the application needs. It is built once in main
// and injected into constructors; handlers never read the environment directly.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OTP      OTPConfig
	Trust    TrustConfig
	Email    EmailConfig
	Token    TokenConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig contains unified Redis connection settings.
// Supported modes: single, sentinel, cluster.
type RedisConfig struct {
	// Mode: Redis deployment mode ("single", "sentinel", "cluster"). Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs: list of Redis addresses (host:port), used by every mode.
	// For 'single', the first address wins when non-empty.
	Addrs []string `mapstructure:"addrs"`

	// Addr: alternative single-mode address, used when Mode="single" and Addrs is empty.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Redis master name (sentinel mode only).
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: reconnect attempts (-1 = unlimited). Defaults to 0 (no retries).
	MaxRetries int `mapstructure:"max_retries"`

	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// OTPConfig contains one-time-password issuance/verification settings.
type OTPConfig struct {
	// CodeTTLSec: validity window of an issued code in seconds. Defaults to 300 (5 minutes).
	CodeTTLSec int `mapstructure:"code_ttl_sec"`

	// ResendCooldownSec: minimum gap between two issuances for one email. Defaults to 30.
	ResendCooldownSec int `mapstructure:"resend_cooldown_sec"`

	// MaxAttempts: wrong-code attempts allowed per issued code. Defaults to 5.
	MaxAttempts int `mapstructure:"max_attempts"`

	// Pepper: server-side secret mixed into every code digest. Required.
	Pepper string `mapstructure:"pepper"`
}

// TrustConfig contains trusted-IP settings.
type TrustConfig struct {
	// WindowDays: rolling window during which a seen IP stays trusted. Defaults to 90.
	WindowDays int `mapstructure:"window_days"`
}

// EmailConfig contains settings for the Resend email provider.
type EmailConfig struct {
	// Enabled: when false, a noop sender is used and codes are only logged (dev).
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
}

// TokenConfig contains settings for the post-verification proof token.
type TokenConfig struct {
	// Secret: HS256 signing secret. Required.
	Secret string `mapstructure:"secret"`

	// ExpirySec: proof token lifetime in seconds. Defaults to 300.
	ExpirySec int `mapstructure:"expiry_sec"`
}

// PostgresConnectionString builds the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// CodeTTL returns the OTP validity window as a duration.
func (o *OTPConfig) CodeTTL() time.Duration {
	return time.Duration(o.CodeTTLSec) * time.Second
}

// ResendCooldown returns the per-email issuance cooldown as a duration.
func (o *OTPConfig) ResendCooldown() time.Duration {
	return time.Duration(o.ResendCooldownSec) * time.Second
}

// Window returns the trusted-IP window as a duration.
func (t *TrustConfig) Window() time.Duration {
	return time.Duration(t.WindowDays) * 24 * time.Hour
}

// Load reads configuration from an optional file plus bound environment
// variables, applies defaults, and validates required secrets. A missing
// required value fails here, at startup, not inside a request handler.
func Load(configPath string) (*Config, error) {
	vip := viper.New() // own instance, avoid viper's global state

	// Defaults for everything that has a sane one.
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 15)
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("otp.code_ttl_sec", 300)
	vip.SetDefault("otp.resend_cooldown_sec", 30)
	vip.SetDefault("otp.max_attempts", 5)
	vip.SetDefault("trust.window_days", 90)
	vip.SetDefault("token.expiry_sec", 300)

	// Bind environment variables explicitly.
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.readtimeout", "SERVER_READ_TIMEOUT")
	vip.BindEnv("server.writetimeout", "SERVER_WRITE_TIMEOUT")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("otp.code_ttl_sec", "OTP_CODE_TTL_SEC")
	vip.BindEnv("otp.resend_cooldown_sec", "OTP_RESEND_COOLDOWN_SEC")
	vip.BindEnv("otp.max_attempts", "OTP_MAX_ATTEMPTS")
	vip.BindEnv("otp.pepper", "OTP_PEPPER")

	vip.BindEnv("trust.window_days", "TRUST_WINDOW_DAYS")

	vip.BindEnv("email.enabled", "EMAIL_ENABLED")
	vip.BindEnv("email.api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	vip.BindEnv("token.secret", "TOKEN_SECRET")
	vip.BindEnv("token.expiry_sec", "TOKEN_EXPIRY_SEC")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Config file '%s' not found, relying on environment variables and defaults.", configPath)
			} else {
				log.Printf("Warning: failed to read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Loaded configuration ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("OTP Code TTL: %ds, Cooldown: %ds, Max Attempts: %d",
			cfg.OTP.CodeTTLSec, cfg.OTP.ResendCooldownSec, cfg.OTP.MaxAttempts)
		log.Printf("Trust Window: %d days", cfg.Trust.WindowDays)
		log.Printf("Email Enabled: %t, From: %s", cfg.Email.Enabled, cfg.Email.From)
		log.Printf("OTP Pepper Set: %t, Token Secret Set: %t",
			cfg.OTP.Pepper != "", cfg.Token.Secret != "")
		log.Printf("----------------------------")
	}

	// Required values. The process refuses to start without them instead of
	// surfacing configuration errors per-request.
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.OTP.Pepper == "" {
		return nil, fmt.Errorf("OTP pepper is required (check OTP_PEPPER env var)")
	}
	if cfg.Token.Secret == "" {
		return nil, fmt.Errorf("token secret is required (check TOKEN_SECRET env var)")
	}
	if cfg.Email.Enabled {
		if cfg.Email.APIKey == "" {
			return nil, fmt.Errorf("email is enabled but the provider API key is missing (check RESEND_API_KEY env var)")
		}
		if cfg.Email.From == "" {
			return nil, fmt.Errorf("email is enabled but the sender address is missing (check EMAIL_FROM env var)")
		}
	}
	if os.Getenv("GIN_MODE") == "release" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}

	return &cfg, nil
}
