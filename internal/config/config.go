// Package config lê a configuração dos binários a partir do ambiente (.env opcional).
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	Storage     string
	RabbitMQURL string
	RedisURL    string
	JWTSecret   string

	TrelloBaseURL       string
	TrelloRatePerSecond float64
	TrelloRateBurst     int
	WebhookCallbackURL  string

	Sync SyncConfig
	Mail MailConfig
}

type SyncConfig struct {
	Concurrency   int
	QuickWindow   time.Duration
	QuickMaxCards int
	QuickDeadline time.Duration
	FullDeadline  time.Duration
	QuickCron     string
	FullCron      string
}

type MailConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   string
}

// Enabled indica se há SMTP e destinatário para relatórios de sincronização.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.To != ""
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Load carrega o .env, se existir, e lê as variáveis. Valores numéricos ou de
// duração inválidos derrubam o processo na inicialização.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Storage:     getEnv("APP_STORAGE", StoragePostgres),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		TrelloBaseURL:       getEnv("TRELLO_API_BASE_URL", "https://api.trello.com"),
		TrelloRatePerSecond: getFloat("TRELLO_RATE_LIMIT_PER_SECOND", "10"),
		TrelloRateBurst:     getInt("TRELLO_RATE_LIMIT_BURST", "10"),
		WebhookCallbackURL:  os.Getenv("WEBHOOK_CALLBACK_URL"),

		Sync: SyncConfig{
			Concurrency:   getInt("SYNC_CONCURRENCY", "5"),
			QuickWindow:   getDuration("SYNC_QUICK_WINDOW", "10m"),
			QuickMaxCards: getInt("SYNC_QUICK_MAX_CARDS", "50"),
			QuickDeadline: getDuration("SYNC_QUICK_DEADLINE", "25s"),
			FullDeadline:  getDuration("SYNC_FULL_DEADLINE", "280s"),
			QuickCron:     getEnv("SYNC_QUICK_CRON", "*/10 * * * *"),
			FullCron:      getEnv("SYNC_FULL_CRON", "0 3 * * *"),
		},
		Mail: MailConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: getInt("SMTP_PORT", "587"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: getEnv("SYNC_REPORT_FROM", "no-reply@agency-backoffice.local"),
			To:   os.Getenv("SYNC_REPORT_TO"),
		},
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key, fallback string) int {
	v, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		log.Panicf("%s inválido: %v", key, err)
	}
	return v
}

func getFloat(key, fallback string) float64 {
	v, err := strconv.ParseFloat(getEnv(key, fallback), 64)
	if err != nil {
		log.Panicf("%s inválido: %v", key, err)
	}
	return v
}

func getDuration(key, fallback string) time.Duration {
	v, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		log.Panicf("%s inválido: %v", key, err)
	}
	return v
}
