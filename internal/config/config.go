package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	Bot struct {
		Token        string
		AdminGroupID int64
		AdminIDs     []int64
		LocalesDir   string
	}

	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Addr              string
		JWTSecret         string
		AdminPasswordHash string
	}

	Relay struct {
		Cooldown time.Duration
	}

	Premium struct {
		Duration      time.Duration
		SweepInterval time.Duration
	}

	Matcher struct {
		RematchInterval time.Duration
	}

	ShutdownTimeout time.Duration
}

func New() *Config {
	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "anonpair")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Bot
	cfg.Bot.Token = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.Bot.AdminGroupID = getEnvInt64("ADMIN_GROUP_ID", 0)
	cfg.Bot.AdminIDs = parseIDList(os.Getenv("ADMIN_IDS"))
	cfg.Bot.LocalesDir = os.Getenv("LOCALES_DIR")

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "postgres"))
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.User = getEnvDefault("DB_USER", "user")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "password")
		cfg.DB.Name = getEnvDefault("DB_NAME", "anonpair")

		switch cfg.DB.Driver {
		case "mysql":
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		case "sqlite":
			cfg.DB.DSN = getEnvDefault("DB_PATH", "anonpair.db")
		default:
			cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
				cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbInt, err := strconv.Atoi(getEnvDefault("REDIS_DB", "0")); err == nil {
		cfg.Redis.DB = dbInt
	}

	// HTTP admin API
	cfg.HTTP.Addr = getEnvDefault("HTTP_ADDR", ":8080")
	cfg.HTTP.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.HTTP.AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")

	// Core tunables
	cfg.Relay.Cooldown = getEnvDuration("RELAY_COOLDOWN", DefaultRelayCooldown)
	cfg.Premium.Duration = getEnvDuration("PREMIUM_DURATION", DefaultPremiumDuration)
	cfg.Premium.SweepInterval = getEnvDuration("PREMIUM_SWEEP_INTERVAL", DefaultPremiumSweepInterval)
	cfg.Matcher.RematchInterval = getEnvDuration("REMATCH_INTERVAL", DefaultRematchInterval)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", ShutdownTimeout)

	return cfg
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Relay.Cooldown <= 0 {
		return fmt.Errorf("RELAY_COOLDOWN must be positive")
	}
	return nil
}

// IsAdmin reports whether the Telegram user id is in ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Bot.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt64(k string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
