package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Apps installed when INSTALLED_APPS is not set.
var DefaultApps = []string{"programme", "labour", "badges", "enrollment", "metrics"}

type Config struct {
	DatabaseURL   string
	HTTPAddr      string
	LogLevel      string
	Env           string // dev|prod
	SentryDSN     string
	Release       string
	Location      *time.Location
	InstalledApps []string
	CORSOrigins   []string

	// RabbitMQ is optional; without it deferred programme work runs inline.
	RabbitURL      string
	RabbitExchange string
	RabbitQueue    string

	TelegramToken string

	// SeedEvent, when set, is the slug of a demo event created at startup.
	SeedEvent string

	BadgeCleanupInterval  time.Duration
	MessageResendInterval time.Duration
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Europe/Helsinki")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	cleanup, err := parseDuration("BADGE_CLEANUP_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	resend, err := parseDuration("MESSAGE_RESEND_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("required env DATABASE_URL is empty")
	}

	apps := parseList(os.Getenv("INSTALLED_APPS"))
	if len(apps) == 0 {
		apps = DefaultApps
	}

	cfg := &Config{
		DatabaseURL:           dsn,
		HTTPAddr:              getenv("HTTP_ADDR", ":8080"),
		LogLevel:              getenv("LOG_LEVEL", "info"),
		Env:                   getenv("ENV", "dev"),
		SentryDSN:             os.Getenv("SENTRY_DSN"),
		Release:               os.Getenv("RELEASE"),
		Location:              loc,
		InstalledApps:         apps,
		CORSOrigins:           parseList(getenv("CORS_ORIGINS", "*")),
		RabbitURL:             os.Getenv("RABBITMQ_URL"),
		RabbitExchange:        getenv("RABBITMQ_EXCHANGE", "kompassi"),
		RabbitQueue:           getenv("RABBITMQ_QUEUE", "kompassi.tasks"),
		TelegramToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		SeedEvent:             os.Getenv("SEED_DEMO_EVENT"),
		BadgeCleanupInterval:  cleanup,
		MessageResendInterval: resend,
	}
	return cfg, nil
}

// IsInstalled reports whether app is enabled for this deployment.
func (c *Config) IsInstalled(app string) bool {
	for _, a := range c.InstalledApps {
		if a == app {
			return true
		}
	}
	return false
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseDuration(k, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenv(k, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", k)
	}
	return d, nil
}

func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.ToLower(p))
	}
	return out
}
