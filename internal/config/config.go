package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string `mapstructure:"DB_DSN"`
	Environment string `mapstructure:"ENV"`
	LogFile     string `mapstructure:"LOG_FILE"`
	Timezone    string `mapstructure:"TIMEZONE"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`

	SMTP  SMTPConfig
	Redis RedisConfig

	MatchDefaultLimit int `mapstructure:"MATCH_DEFAULT_LIMIT"`
	MatchMaxLimit     int `mapstructure:"MATCH_MAX_LIMIT"`

	ContactLimit  int           `mapstructure:"CONTACT_LIMIT"`
	ContactWindow time.Duration `mapstructure:"CONTACT_WINDOW"`

	// 0 - просроченные сессии отменяются только лениво при чтении списка
	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`

	MetricsAddr  string `mapstructure:"METRICS_ADDR"`
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     int    `mapstructure:"SMTP_PORT"`
	Username string `mapstructure:"SMTP_USERNAME"`
	Password string `mapstructure:"SMTP_PASSWORD"`
	From     string `mapstructure:"SMTP_FROM"`
}

// Enabled checks if e-mail notifications are configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Addr     string `mapstructure:"REDIS_ADDR"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// Enabled checks if a shared Redis store is configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Load читает конфигурацию из .env файла (если есть) и переменных окружения
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}

	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(envFile); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from " + envFile)
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию через функцию чтения переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBDSN:         getenv("DB_DSN"),
		Environment:   getenv("ENV"),
		LogFile:       getenv("LOG_FILE"),
		Timezone:      getenv("TIMEZONE"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST"),
			Username: getenv("SMTP_USERNAME"),
			Password: getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR"),
			Password: getenv("REDIS_PASSWORD"),
		},
		MetricsAddr:  getenv("METRICS_ADDR"),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	var err error
	if cfg.SMTP.Port, err = intOr(getenv, "SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = intOr(getenv, "REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MatchDefaultLimit, err = intOr(getenv, "MATCH_DEFAULT_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.MatchMaxLimit, err = intOr(getenv, "MATCH_MAX_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.ContactLimit, err = intOr(getenv, "CONTACT_LIMIT", 3); err != nil {
		return nil, err
	}
	if cfg.ContactWindow, err = durationOr(getenv, "CONTACT_WINDOW", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = durationOr(getenv, "SWEEP_INTERVAL", 0); err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	if cfg.MatchDefaultLimit <= 0 || cfg.MatchMaxLimit < cfg.MatchDefaultLimit {
		return nil, fmt.Errorf("MATCH_DEFAULT_LIMIT must be positive and not exceed MATCH_MAX_LIMIT")
	}
	if cfg.ContactLimit <= 0 || cfg.ContactWindow <= 0 {
		return nil, fmt.Errorf("CONTACT_LIMIT and CONTACT_WINDOW must be positive")
	}

	return cfg, nil
}

// Location возвращает часовой пояс, в котором трактуются слоты доступности
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func intOr(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationOr(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
