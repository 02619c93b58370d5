// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/pkg/email"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	LLM       LLMConfig       `yaml:"llm"`
	Email     EmailConfig     `yaml:"email"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Agenda    AgendaConfig    `yaml:"agenda"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	HTTPPort         string        `yaml:"http_port"`
	GRPCPort         string        `yaml:"grpc_port"`
	Environment      string        `yaml:"environment"`
	APIPrefix        string        `yaml:"api_prefix"`
	CORSOrigins      []string      `yaml:"cors_origins"`
	AutoMigrate      bool          `yaml:"auto_migrate"`
	EnableReflection bool          `yaml:"enable_reflection"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	Timezone         string        `yaml:"timezone"`
	TrustProxy       bool          `yaml:"trust_proxy"` // only behind a proxy that overwrites X-Forwarded-For
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"name"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type JWTConfig struct {
	Secret        string        `yaml:"secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type CacheConfig struct {
	SuggestionTTL time.Duration `yaml:"suggestion_ttl"`
	DayPlanTTL    time.Duration `yaml:"day_plan_ttl"`
	ChatTTL       time.Duration `yaml:"chat_ttl"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
	BaseURL      string `yaml:"base_url"`
	SupportEmail string `yaml:"support_email"`
	TestingMode  bool   `yaml:"testing_mode"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type AgendaConfig struct {
	EnforceRecurrenceBounds bool `yaml:"enforce_recurrence_bounds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        "5000",
			GRPCPort:        "50051",
			Environment:     "development",
			APIPrefix:       "/api",
			CORSOrigins:     []string{"http://localhost:5173"},
			AutoMigrate:     true,
			ShutdownTimeout: 15 * time.Second,
			Timezone:        "Local",
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			User:         "postgres",
			Password:     "postgres",
			DBName:       "barakaflow",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		JWT: JWTConfig{
			TokenDuration: 7 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "barakaflow:",
		},
		Cache: CacheConfig{
			SuggestionTTL: 24 * time.Hour,
			DayPlanTTL:    12 * time.Hour,
			ChatTTL:       24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Timeout:  60 * time.Second,
		},
		Email: EmailConfig{
			SMTPHost:     "localhost",
			SMTPPort:     587,
			FromEmail:    "noreply@barakaflow.local",
			FromName:     "BarakaFlow",
			BaseURL:      "http://localhost:5173",
			SupportEmail: "support@barakaflow.local",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     10,
			Burst:   20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.HTTPPort = getEnv("HTTP_PORT", getEnv("PORT", c.Server.HTTPPort))
	c.Server.GRPCPort = getEnv("GRPC_PORT", c.Server.GRPCPort)
	c.Server.Environment = getEnv("ENVIRONMENT", c.Server.Environment)
	c.Server.APIPrefix = getEnv("API_PREFIX", c.Server.APIPrefix)
	c.Server.CORSOrigins = getEnvAsList("CORS_ORIGINS", c.Server.CORSOrigins)
	c.Server.AutoMigrate = getEnvAsBool("AUTO_MIGRATE", c.Server.AutoMigrate)
	c.Server.EnableReflection = getEnvAsBool("ENABLE_REFLECTION", c.Server.EnableReflection)
	c.Server.TrustProxy = getEnvAsBool("TRUST_PROXY", c.Server.TrustProxy)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.Timezone = getEnv("TIMEZONE", c.Server.Timezone)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.TokenDuration = getEnvAsDuration("JWT_TOKEN_DURATION", c.JWT.TokenDuration)

	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Prefix = getEnv("REDIS_PREFIX", c.Redis.Prefix)

	c.Cache.SuggestionTTL = getEnvAsDuration("CACHE_SUGGESTION_TTL", c.Cache.SuggestionTTL)
	c.Cache.DayPlanTTL = getEnvAsDuration("CACHE_DAY_PLAN_TTL", c.Cache.DayPlanTTL)
	c.Cache.ChatTTL = getEnvAsDuration("CACHE_CHAT_TTL", c.Cache.ChatTTL)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", getEnv("GEMINI_API_KEY", c.LLM.APIKey)))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Email.SMTPHost = getEnv("SMTP_HOST", c.Email.SMTPHost)
	c.Email.SMTPPort = getEnvAsInt("SMTP_PORT", c.Email.SMTPPort)
	c.Email.SMTPUsername = getEnv("SMTP_USERNAME", c.Email.SMTPUsername)
	c.Email.SMTPPassword = getEnv("SMTP_PASSWORD", c.Email.SMTPPassword)
	c.Email.FromEmail = getEnv("FROM_EMAIL", c.Email.FromEmail)
	c.Email.FromName = getEnv("FROM_NAME", c.Email.FromName)
	c.Email.BaseURL = getEnv("APP_BASE_URL", c.Email.BaseURL)
	c.Email.SupportEmail = getEnv("SUPPORT_EMAIL", c.Email.SupportEmail)
	c.Email.TestingMode = getEnvAsBool("EMAIL_TESTING_MODE", c.Email.TestingMode)

	c.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RPS = getEnvAsFloat("RATE_LIMIT_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.Agenda.EnforceRecurrenceBounds = getEnvAsBool("AGENDA_ENFORCE_RECURRENCE_BOUNDS", c.Agenda.EnforceRecurrenceBounds)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// ValidateConfig checks that the configuration is usable.
func (c *Config) ValidateConfig() error {
	var errs []error

	if c.JWT.Secret == "" {
		if c.IsDevelopment() {
			c.JWT.Secret = "dev-secret-change-in-production"
		} else {
			errs = append(errs, errors.New("JWT_SECRET is required outside development"))
		}
	}
	if c.JWT.TokenDuration <= 0 {
		errs = append(errs, errors.New("JWT token duration must be positive"))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver: %s", c.Database.Driver))
	}
	if c.Database.Driver == "sqlite3" && c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for sqlite3"))
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}

	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("api prefix must start with '/': %q", c.Server.APIPrefix))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development" || c.Server.Environment == "test"
}

// Location resolves the configured timezone used for calendar dates.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || c.Server.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.DBName, c.Database.SSLMode,
	)
}

// ToEmailConfig converts to the email package configuration.
func (c *Config) ToEmailConfig() *email.Config {
	return &email.Config{
		SMTPHost:     c.Email.SMTPHost,
		SMTPPort:     c.Email.SMTPPort,
		SMTPUsername: c.Email.SMTPUsername,
		SMTPPassword: c.Email.SMTPPassword,
		FromEmail:    c.Email.FromEmail,
		FromName:     c.Email.FromName,
		BaseURL:      c.Email.BaseURL,
		AppName:      "BarakaFlow",
		SupportEmail: c.Email.SupportEmail,
	}
}

// ToValidationConfig converts to the request validation configuration.
func (c *Config) ToValidationConfig() *middleware.ValidationConfig {
	return middleware.DefaultValidationConfig()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(valueStr, ",") {
		if v := strings.TrimRight(strings.TrimSpace(p), "/"); v != "" {
			out = append(out, v)
		}
	}
	return out
}
