// Package config loads runtime settings from defaults, an optional YAML file,
// a .env file and LIBRIS_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	HTTP     HTTPConfig     `yaml:"http"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Log      LogConfig      `yaml:"log"`
}

type BotConfig struct {
	// Link is the bot's public URL; deep links are Link + "?start=...".
	Link     string `yaml:"link"`
	PageSize int    `yaml:"page_size"`
	// AsyncQR renders QR codes on the message bus instead of inline.
	AsyncQR bool `yaml:"async_qr"`
	// IdentityTTL bounds how long a running bot keeps a chat's role cached,
	// so directory changes made by another process show up within it.
	IdentityTTL time.Duration `yaml:"identity_ttl"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type SessionConfig struct {
	// Backend is memory, file, cache, redis or sql.
	Backend       string        `yaml:"backend"`
	Dir           string        `yaml:"dir"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	// EncryptionKey enables AES-GCM encryption of stored sessions (32 bytes).
	EncryptionKey string `yaml:"encryption_key"`
}

type HTTPConfig struct {
	Addr        string `yaml:"addr"`
	JWTSecret   string `yaml:"jwt_secret"`
	MetricsAddr string `yaml:"metrics_addr"`
	MaxInput    int    `yaml:"max_input"`
}

type SMTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	SenderName string `yaml:"sender_name"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a configuration that runs entirely in-process.
func Default() Config {
	return Config{
		Bot: BotConfig{
			Link:        "https://t.me/libris_bot",
			PageSize:    5,
			IdentityTTL: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "libris.db",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		Session: SessionConfig{
			Backend:   "memory",
			TTL:       24 * time.Hour,
			RedisAddr: "localhost:6379",
			Prefix:    "libris:session:",
			LockTTL:   30 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
			MaxInput:    4096,
		},
		SMTP: SMTPConfig{
			Port:       587,
			SenderName: "Libris",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the services cannot start with.
func (c Config) Validate() error {
	switch c.Session.Backend {
	case "memory", "file", "cache", "redis", "sql":
	default:
		return fmt.Errorf("session.backend: unknown backend %q", c.Session.Backend)
	}
	if c.Bot.PageSize <= 0 {
		return fmt.Errorf("bot.page_size must be positive, got %d", c.Bot.PageSize)
	}
	if k := len(c.Session.EncryptionKey); k != 0 && k != 32 {
		return fmt.Errorf("session.encryption_key must be 32 bytes, got %d", k)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv("LIBRIS_" + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv("LIBRIS_" + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("LIBRIS_%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv("LIBRIS_" + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("LIBRIS_%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv("LIBRIS_" + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("LIBRIS_%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("BOT_LINK", &cfg.Bot.Link)
	num("BOT_PAGE_SIZE", &cfg.Bot.PageSize)
	flag("BOT_ASYNC_QR", &cfg.Bot.AsyncQR)
	dur("BOT_IDENTITY_TTL", &cfg.Bot.IdentityTTL)

	str("DB_DRIVER", &cfg.Database.Driver)
	str("DB_DSN", &cfg.Database.DSN)
	num("DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	num("DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	dur("DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)

	str("SESSION_BACKEND", &cfg.Session.Backend)
	str("SESSION_DIR", &cfg.Session.Dir)
	dur("SESSION_TTL", &cfg.Session.TTL)
	str("REDIS_ADDR", &cfg.Session.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Session.RedisPassword)
	num("REDIS_DB", &cfg.Session.RedisDB)
	str("SESSION_PREFIX", &cfg.Session.Prefix)
	str("SESSION_ENCRYPTION_KEY", &cfg.Session.EncryptionKey)
	dur("SESSION_LOCK_TTL", &cfg.Session.LockTTL)

	str("HTTP_ADDR", &cfg.HTTP.Addr)
	str("JWT_SECRET", &cfg.HTTP.JWTSecret)
	str("METRICS_ADDR", &cfg.HTTP.MetricsAddr)
	num("HTTP_MAX_INPUT", &cfg.HTTP.MaxInput)

	str("SMTP_HOST", &cfg.SMTP.Host)
	num("SMTP_PORT", &cfg.SMTP.Port)
	str("SMTP_USERNAME", &cfg.SMTP.Username)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("SMTP_FROM", &cfg.SMTP.From)
	str("SMTP_SENDER_NAME", &cfg.SMTP.SenderName)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)
	num("LOG_MAX_SIZE_MB", &cfg.Log.MaxSizeMB)
	num("LOG_MAX_BACKUPS", &cfg.Log.MaxBackups)
	num("LOG_MAX_AGE_DAYS", &cfg.Log.MaxAgeDays)

	return errors.Join(errs...)
}
