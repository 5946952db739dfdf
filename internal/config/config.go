// Package config centralises configuration parsing for the habitboard binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration values shared by the api, consumer and habitctl binaries.
type Config struct {
	HTTPAddress    string        `yaml:"http_address"`
	MetricsAddress string        `yaml:"metrics_address"`
	CORSOrigin     string        `yaml:"cors_origin"`
	LogLevel       string        `yaml:"log_level"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`

	DatabaseURL string `yaml:"database_url"`

	SpreadsheetID         string `yaml:"spreadsheet_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
	GoogleCredentialsJSON string `yaml:"google_credentials_json"`
	GoogleAPIKey          string `yaml:"google_api_key"`
	DefaultSheet          string `yaml:"default_sheet"`

	JWTSecret   string `yaml:"jwt_secret"`
	JWTIssuer   string `yaml:"jwt_issuer"`
	JWTAudience string `yaml:"jwt_audience"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	UserCacheTTL  time.Duration `yaml:"user_cache_ttl"`
	LockTTL       time.Duration `yaml:"lock_ttl"`

	KafkaBrokers       []string      `yaml:"kafka_brokers"`
	ConsumerGroupID    string        `yaml:"consumer_group_id"`
	ConsumerTopics     []string      `yaml:"consumer_topics"`
	OutboxPollInterval time.Duration `yaml:"outbox_poll_interval"`
	OutboxBatchSize    int           `yaml:"outbox_batch_size"`
}

// Defaults returns the local-dev configuration used before any file or environment override.
func Defaults() Config {
	return Config{
		HTTPAddress:        ":3001",
		MetricsAddress:     ":9195",
		CORSOrigin:         "http://localhost:5173",
		LogLevel:           "info",
		HTTPTimeout:        10 * time.Second,
		DefaultSheet:       "Pushups",
		JWTAudience:        "authenticated",
		UserCacheTTL:       5 * time.Minute,
		LockTTL:            10 * time.Second,
		ConsumerGroupID:    "habitboard-event-log",
		ConsumerTopics:     []string{"score_events", "habit_events"},
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    25,
	}
}

// Load reads CONFIG_FILE (when set) and then environment variables into Config.
// Environment values always win over the file.
func Load() (Config, error) {
	cfg := Defaults()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// SheetsConfigured reports whether enough Google settings are present to reach the Sheets API.
func (c Config) SheetsConfigured() bool {
	return c.SpreadsheetID != "" && (c.GoogleCredentialsFile != "" || c.GoogleCredentialsJSON != "" || c.GoogleAPIKey != "")
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddress = getEnv("HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.MetricsAddress = getEnv("METRICS_ADDRESS", cfg.MetricsAddress)
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPTimeout = getDurationEnv("HTTP_TIMEOUT", cfg.HTTPTimeout)

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)

	cfg.SpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.SpreadsheetID)
	cfg.GoogleCredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", cfg.GoogleCredentialsFile)
	cfg.GoogleCredentialsJSON = getEnv("GOOGLE_CREDENTIALS_JSON", cfg.GoogleCredentialsJSON)
	cfg.GoogleAPIKey = getEnv("GOOGLE_API_KEY", cfg.GoogleAPIKey)
	cfg.DefaultSheet = getEnv("DEFAULT_SHEET", cfg.DefaultSheet)

	cfg.JWTSecret = getEnv("SUPABASE_JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("SUPABASE_JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWTAudience = getEnv("SUPABASE_JWT_AUDIENCE", cfg.JWTAudience)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getIntEnv("REDIS_DB", cfg.RedisDB)
	cfg.UserCacheTTL = getDurationEnv("USER_CACHE_TTL", cfg.UserCacheTTL)
	cfg.LockTTL = getDurationEnv("LOCK_TTL", cfg.LockTTL)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	cfg.ConsumerGroupID = getEnv("CONSUMER_GROUP_ID", cfg.ConsumerGroupID)
	if topics := getEnv("CONSUMER_TOPICS", ""); topics != "" {
		cfg.ConsumerTopics = splitAndTrim(topics)
	}
	cfg.OutboxPollInterval = getDurationEnv("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = getIntEnv("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
