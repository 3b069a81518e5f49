package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr             string
	MongoURI         string
	MongoDatabase    string
	Timeout          time.Duration
	StoreCollection  string
	UserCollection   string
	ReviewCollection string

	LogLevel  string
	LogFormat string

	SessionSecret       []byte
	SessionTTL          time.Duration
	SessionCookieSecure bool
	SessionIssuer       string

	PublicBaseURL   string
	AllowedOrigins  []string
	StoresPerPage   int
	NearMaxDistance float64

	ResetTokenTTL      time.Duration
	ResetSweepSchedule string

	RedisURL    string
	TagCacheTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	Mail MailConfig
}

// MailConfig is the SMTP relay used for password reset mail. An empty Host disables delivery.
type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// ErrMissingSessionSecret is returned when SESSION_SECRET is not configured.
var ErrMissingSessionSecret = errors.New("SESSION_SECRET must be configured")

// Load reads an optional .env file and the environment and returns a fully populated Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("MONGO_URI", "mongodb://mongo:27017")
	v.SetDefault("MONGO_DB", "delicious")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "10s")
	v.SetDefault("STORE_COLLECTION", "stores")
	v.SetDefault("USER_COLLECTION", "users")
	v.SetDefault("REVIEW_COLLECTION", "reviews")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_ISSUER", "delicious-api")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("API_ALLOWED_ORIGINS", "*")
	v.SetDefault("STORES_PER_PAGE", 4)
	v.SetDefault("NEAR_MAX_DISTANCE", 10000)
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("RESET_SWEEP_SCHEDULE", "@hourly")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("TAG_CACHE_TTL", "5m")
	v.SetDefault("RATE_LIMIT_RPS", 1)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("MAIL_HOST", "")
	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_USER", "")
	v.SetDefault("MAIL_PASS", "")
	v.SetDefault("MAIL_FROM", "Dang Delicious <noreply@delicious.com>")
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (Config, error) {
	secret := strings.TrimSpace(v.GetString("SESSION_SECRET"))
	if secret == "" {
		return Config{}, ErrMissingSessionSecret
	}

	cfg := Config{
		Addr:                v.GetString("HTTP_ADDR"),
		MongoURI:            v.GetString("MONGO_URI"),
		MongoDatabase:       v.GetString("MONGO_DB"),
		Timeout:             v.GetDuration("MONGO_CONNECT_TIMEOUT"),
		StoreCollection:     v.GetString("STORE_COLLECTION"),
		UserCollection:      v.GetString("USER_COLLECTION"),
		ReviewCollection:    v.GetString("REVIEW_COLLECTION"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		SessionSecret:       []byte(secret),
		SessionTTL:          v.GetDuration("SESSION_TTL"),
		SessionCookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		SessionIssuer:       v.GetString("SESSION_ISSUER"),
		PublicBaseURL:       strings.TrimRight(strings.TrimSpace(v.GetString("PUBLIC_BASE_URL")), "/"),
		AllowedOrigins:      parseList(v.GetString("API_ALLOWED_ORIGINS"), []string{"*"}),
		StoresPerPage:       v.GetInt("STORES_PER_PAGE"),
		NearMaxDistance:     v.GetFloat64("NEAR_MAX_DISTANCE"),
		ResetTokenTTL:       v.GetDuration("RESET_TOKEN_TTL"),
		ResetSweepSchedule:  v.GetString("RESET_SWEEP_SCHEDULE"),
		RedisURL:            strings.TrimSpace(v.GetString("REDIS_URL")),
		TagCacheTTL:         v.GetDuration("TAG_CACHE_TTL"),
		RateLimitRPS:        v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:      v.GetInt("RATE_LIMIT_BURST"),
		Mail: MailConfig{
			Host:     strings.TrimSpace(v.GetString("MAIL_HOST")),
			Port:     v.GetInt("MAIL_PORT"),
			User:     v.GetString("MAIL_USER"),
			Password: v.GetString("MAIL_PASS"),
			From:     v.GetString("MAIL_FROM"),
		},
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.StoresPerPage <= 0 {
		cfg.StoresPerPage = 4
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	return cfg, nil
}

func parseList(raw string, fallback []string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
