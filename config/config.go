package config

import (
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"12223"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Logger      *logger.Config
	Tracing     *tracing.JaegerConfig
}

type GmailConfig struct {
	AccessToken string `env:"GMAIL_ACCESS_TOKEN"`
}

type AnthropicConfig struct {
	APIKey string `env:"ANTHROPIC_API_KEY"`
	APIURL string `env:"ANTHROPIC_API_URL" envDefault:"https://api.anthropic.com"`
	Model  string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
}

type OnboardingConfig struct {
	CycleSeconds int `env:"ONBOARDING_CYCLE_SECONDS" envDefault:"30"`
}

type MailsortDatabaseConfig struct {
	Host            string `env:"MAILSORT_POSTGRES_HOST,required"`
	Port            string `env:"MAILSORT_POSTGRES_PORT,required"`
	User            string `env:"MAILSORT_POSTGRES_USER,required"`
	DBName          string `env:"MAILSORT_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILSORT_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILSORT_POSTGRES_DB_MAX_CONN" envDefault:"100"`
	MaxIdleConn     int    `env:"MAILSORT_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"MAILSORT_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"MAILSORT_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILSORT_POSTGRES_SSL_MODE" envDefault:"require"`
}
