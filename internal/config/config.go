package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingSecret = errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	ShortCode ShortCodeConfig
	Log       LogConfig
}

type AppConfig struct {
	Port       string
	Env        string
	BaseURL    string
	CORSOrigin []string
	CacheTTL   time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CookieSecure  bool
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type ShortCodeConfig struct {
	MaxAttempts int
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// IsDevelopment reports whether the service runs with developer-friendly output.
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("CORS_ORIGIN", "http://localhost:3000")
	v.SetDefault("CACHE_TTL", "1h")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "linktrack")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "240h")
	v.SetDefault("COOKIE_SECURE", true)

	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("SHORTCODE_MAX_ATTEMPTS", 5)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
}

// Load reads configuration from an optional .env file and the process environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path. The file may be absent.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.Env = v.GetString("APP_ENV")
	cfg.App.BaseURL = strings.TrimRight(v.GetString("APP_BASE_URL"), "/")
	cfg.App.CORSOrigin = splitList(v.GetString("CORS_ORIGIN"))
	cfg.App.CacheTTL = v.GetDuration("CACHE_TTL")

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.Auth.AccessSecret = v.GetString("ACCESS_TOKEN_SECRET")
	cfg.Auth.RefreshSecret = v.GetString("REFRESH_TOKEN_SECRET")
	cfg.Auth.AccessTTL = v.GetDuration("ACCESS_TOKEN_TTL")
	cfg.Auth.RefreshTTL = v.GetDuration("REFRESH_TOKEN_TTL")
	cfg.Auth.CookieSecure = v.GetBool("COOKIE_SECURE")
	if cfg.Auth.AccessSecret == "" || cfg.Auth.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")

	cfg.ShortCode.MaxAttempts = v.GetInt("SHORTCODE_MAX_ATTEMPTS")
	if cfg.ShortCode.MaxAttempts < 1 {
		cfg.ShortCode.MaxAttempts = 1
	}

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.File = v.GetString("LOG_FILE")
	cfg.Log.MaxSizeMB = v.GetInt("LOG_MAX_SIZE_MB")
	cfg.Log.MaxBackups = v.GetInt("LOG_MAX_BACKUPS")
	cfg.Log.MaxAgeDays = v.GetInt("LOG_MAX_AGE_DAYS")

	return &cfg, nil
}

// splitList parses a comma-separated list, e.g. "https://a.com, https://b.com"
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
