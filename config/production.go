// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Appointment store backends
const (
	AppointmentStoreSQL   = "sql"
	AppointmentStoreRedis = "redis"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database    DatabaseConfig    `json:"database"`
	Server      ServerConfig      `json:"server"`
	Security    SecurityConfig    `json:"security"`
	JWT         JWTConfig         `json:"jwt"`
	Logging     LoggingConfig     `json:"logging"`
	Metrics     MetricsConfig     `json:"metrics"`
	Cache       CacheConfig       `json:"cache"`
	Appointment AppointmentConfig `json:"appointment"`
	Deployment  DeploymentConfig  `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
}

type SecurityConfig struct {
	AllowedOrigins  []string `json:"allowed_origins"`
	GlobalRateLimit int      `json:"global_rate_limit"` // requests per minute, 0 disables
}

type JWTConfig struct {
	SecretKey       string        `json:"secret_key"`
	PrivateKey      string        `json:"private_key"`  // RSA private key in PEM format
	PublicKey       string        `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys      bool          `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL  time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
	Issuer          string        `json:"issuer"`
	Audience        string        `json:"audience"`
}

type LoggingConfig struct {
	Level           string `json:"level"`  // debug, info, warn, error
	Format          string `json:"format"` // json, text
	Output          string `json:"output"` // stdout, file, both
	FilePath        string `json:"file_path"`
	MaxSize         int    `json:"max_size"` // MB
	MaxBackups      int    `json:"max_backups"`
	MaxAge          int    `json:"max_age"` // days
	Compress        bool   `json:"compress"`
	EnableCaller    bool   `json:"enable_caller"`
	EnableAccessLog bool   `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled             bool          `json:"enabled"`
	RedisURL            string        `json:"redis_url"`
	RedisDB             int           `json:"redis_db"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

// AppointmentConfig selects where counters and recycled ids live
type AppointmentConfig struct {
	Store          string `json:"store"` // sql, redis
	CounterPrefix  string `json:"counter_prefix"`
	RedisKeyPrefix string `json:"redis_key_prefix"`
	Timezone       string `json:"timezone"` // decides the current year
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

// LoadProductionConfig loads and validates configuration from the environment
// and an optional .env file in the working directory
func LoadProductionConfig() (*ProductionConfig, error) {
	v := viper.New()
	if err := readEnvFile(v, ".env"); err != nil {
		return nil, err
	}
	return Load(v)
}

// Load builds the configuration from v. Environment variables always win over
// values read into v.
func Load(v *viper.Viper) (*ProductionConfig, error) {
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			SSLMode:         v.GetString("DB_SSL_MODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
			SlowQueryTime:   v.GetDuration("DB_SLOW_QUERY_TIME"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			BodyLimit:       v.GetInt("SERVER_BODY_LIMIT"),
		},
		Security: SecurityConfig{
			AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			GlobalRateLimit: v.GetInt("GLOBAL_RATE_LIMIT"),
		},
		JWT: JWTConfig{
			SecretKey:       v.GetString("JWT_SECRET_KEY"),
			PrivateKey:      v.GetString("JWT_PRIVATE_KEY"),
			PublicKey:       v.GetString("JWT_PUBLIC_KEY"),
			UseRSAKeys:      v.GetBool("JWT_USE_RSA_KEYS"),
			AccessTokenTTL:  v.GetDuration("JWT_ACCESS_TOKEN_TTL"),
			RefreshTokenTTL: v.GetDuration("JWT_REFRESH_TOKEN_TTL"),
			Issuer:          v.GetString("JWT_ISSUER"),
			Audience:        v.GetString("JWT_AUDIENCE"),
		},
		Logging: LoggingConfig{
			Level:           strings.ToLower(v.GetString("LOG_LEVEL")),
			Format:          strings.ToLower(v.GetString("LOG_FORMAT")),
			Output:          strings.ToLower(v.GetString("LOG_OUTPUT")),
			FilePath:        v.GetString("LOG_FILE_PATH"),
			MaxSize:         v.GetInt("LOG_MAX_SIZE"),
			MaxBackups:      v.GetInt("LOG_MAX_BACKUPS"),
			MaxAge:          v.GetInt("LOG_MAX_AGE"),
			Compress:        v.GetBool("LOG_COMPRESS"),
			EnableCaller:    v.GetBool("LOG_ENABLE_CALLER"),
			EnableAccessLog: v.GetBool("LOG_ENABLE_ACCESS"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
		Cache: CacheConfig{
			Enabled:             v.GetBool("CACHE_ENABLED"),
			RedisURL:            v.GetString("CACHE_REDIS_URL"),
			RedisDB:             v.GetInt("CACHE_REDIS_DB"),
			HealthCheckInterval: v.GetDuration("CACHE_HEALTH_CHECK_INTERVAL"),
		},
		Appointment: AppointmentConfig{
			Store:          strings.ToLower(v.GetString("APPOINTMENT_STORE")),
			CounterPrefix:  v.GetString("APPOINTMENT_COUNTER_PREFIX"),
			RedisKeyPrefix: v.GetString("APPOINTMENT_REDIS_KEY_PREFIX"),
			Timezone:       v.GetString("APPOINTMENT_TIMEZONE"),
		},
		Deployment: DeploymentConfig{
			Environment: v.GetString("APP_ENV"),
			Version:     v.GetString("VERSION"),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "telecall")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_SSL_MODE", "require")
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 15*time.Minute)
	v.SetDefault("DB_SLOW_QUERY_TIME", time.Second)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 120*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_BODY_LIMIT", 1024*1024)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("GLOBAL_RATE_LIMIT", 2000)

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_USE_RSA_KEYS", false)
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("JWT_ISSUER", "telecall")
	v.SetDefault("JWT_AUDIENCE", "telecall-api")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_FILE_PATH", "/var/log/telecall/app.log")
	v.SetDefault("LOG_MAX_SIZE", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 10)
	v.SetDefault("LOG_MAX_AGE", 30)
	v.SetDefault("LOG_COMPRESS", true)
	v.SetDefault("LOG_ENABLE_CALLER", false)
	v.SetDefault("LOG_ENABLE_ACCESS", true)

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_REDIS_URL", "redis://localhost:6379")
	v.SetDefault("CACHE_REDIS_DB", 0)
	v.SetDefault("CACHE_HEALTH_CHECK_INTERVAL", 30*time.Second)

	v.SetDefault("APPOINTMENT_STORE", AppointmentStoreSQL)
	v.SetDefault("APPOINTMENT_COUNTER_PREFIX", "appointment_id")
	v.SetDefault("APPOINTMENT_REDIS_KEY_PREFIX", "telecall:appointment")
	v.SetDefault("APPOINTMENT_TIMEZONE", "UTC")

	v.SetDefault("APP_ENV", "production")
	v.SetDefault("VERSION", "1.0.0")
}

// readEnvFile reads KEY=value pairs from path into v if the file exists
func readEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

func splitList(value string) []string {
	var result []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errs []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errs = append(errs, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errs = append(errs, "DB_USER is required")
	}

	// Validate JWT configuration
	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PrivateKey == "" || cfg.JWT.PublicKey == "" {
			errs = append(errs, "JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when JWT_USE_RSA_KEYS is set")
		}
	} else if len(cfg.JWT.SecretKey) < 32 {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, "JWT_REFRESH_TOKEN_TTL must be positive")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errs = append(errs, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate logging configuration
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Logging.Level) {
		errs = append(errs, "LOG_LEVEL must be one of: [debug info warn error]")
	}
	if !slices.Contains([]string{"json", "text"}, cfg.Logging.Format) {
		errs = append(errs, "LOG_FORMAT must be json or text")
	}
	if !slices.Contains([]string{"stdout", "file", "both"}, cfg.Logging.Output) {
		errs = append(errs, "LOG_OUTPUT must be one of: [stdout file both]")
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errs = append(errs, "LOG_FILE_PATH is required for file output")
	}

	// Validate appointment store configuration
	switch cfg.Appointment.Store {
	case AppointmentStoreSQL:
	case AppointmentStoreRedis:
		if !cfg.Cache.Enabled || cfg.Cache.RedisURL == "" {
			errs = append(errs, "CACHE_ENABLED and CACHE_REDIS_URL are required when APPOINTMENT_STORE is redis")
		}
	default:
		errs = append(errs, "APPOINTMENT_STORE must be sql or redis")
	}
	if cfg.Appointment.CounterPrefix == "" {
		errs = append(errs, "APPOINTMENT_COUNTER_PREFIX is required")
	}
	if _, err := time.LoadLocation(cfg.Appointment.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("APPOINTMENT_TIMEZONE is invalid: %v", err))
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errs = append(errs, "CACHE_REDIS_URL is required when cache is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
