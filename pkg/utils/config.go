package utils

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Tx        TxConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Analytics AnalyticsConfig
}

type AppConfig struct {
	Name       string
	Port       string
	Debug      bool
	LogPath    string
	CORSOrigin string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type TxConfig struct {
	MaxRetries  int
	LockTimeout time.Duration
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

type SessionConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type AnalyticsConfig struct {
	WindowDays int
	CacheTTL   time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "tour-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("CORS_ALLOWED_ORIGIN", "*")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("TX_MAX_RETRIES", 3)
	viper.SetDefault("TX_LOCK_TIMEOUT_MS", 2000)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("IDEMPOTENCY_TTL_MINUTES", 60)
	viper.SetDefault("KAFKA_TOPIC", "tour-booking.events")
	viper.SetDefault("OUTBOX_POLL_MS", 500)
	viper.SetDefault("OUTBOX_BATCH_SIZE", 100)
	viper.SetDefault("SESSION_TTL_HOURS", 24)
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("ANALYTICS_WINDOW_DAYS", 30)
	viper.SetDefault("ANALYTICS_CACHE_TTL_SECONDS", 30)

	// .env is optional, environment variables win
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:       viper.GetString("APP_NAME"),
			Port:       viper.GetString("PORT"),
			Debug:      viper.GetBool("DEBUG"),
			LogPath:    viper.GetString("LOG_PATH"),
			CORSOrigin: viper.GetString("CORS_ALLOWED_ORIGIN"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Tx: TxConfig{
			MaxRetries:  viper.GetInt("TX_MAX_RETRIES"),
			LockTimeout: time.Duration(viper.GetInt("TX_LOCK_TIMEOUT_MS")) * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:           viper.GetString("REDIS_ADDR"),
			Password:       viper.GetString("REDIS_PASSWORD"),
			DB:             viper.GetInt("REDIS_DB"),
			IdempotencyTTL: time.Duration(viper.GetInt("IDEMPOTENCY_TTL_MINUTES")) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:        viper.GetString("KAFKA_TOPIC"),
			PollInterval: time.Duration(viper.GetInt("OUTBOX_POLL_MS")) * time.Millisecond,
			BatchSize:    viper.GetInt("OUTBOX_BATCH_SIZE"),
		},
		Session: SessionConfig{
			TTL: time.Duration(viper.GetInt("SESSION_TTL_HOURS")) * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RPS:   viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst: viper.GetInt("RATE_LIMIT_BURST"),
		},
		Analytics: AnalyticsConfig{
			WindowDays: viper.GetInt("ANALYTICS_WINDOW_DAYS"),
			CacheTTL:   time.Duration(viper.GetInt("ANALYTICS_CACHE_TTL_SECONDS")) * time.Second,
		},
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
