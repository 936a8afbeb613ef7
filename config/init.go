package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/tracing"
)

type Config struct {
	AppConfig              *AppConfig
	Logger                 *logger.Config
	Tracing                *tracing.JaegerConfig
	GmailConfig            *GmailConfig
	AnthropicConfig        *AnthropicConfig
	OnboardingConfig       *OnboardingConfig
	MailsortDatabaseConfig *MailsortDatabaseConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:              &AppConfig{},
		Logger:                 &logger.Config{},
		Tracing:                &tracing.JaegerConfig{},
		GmailConfig:            &GmailConfig{},
		AnthropicConfig:        &AnthropicConfig{},
		OnboardingConfig:       &OnboardingConfig{},
		MailsortDatabaseConfig: &MailsortDatabaseConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailsort config: %v", err)
	}

	return config, nil
}
