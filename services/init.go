package services

import (
	"context"

	"github.com/inboxkit/mailsort/config"
	"github.com/inboxkit/mailsort/interfaces"
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/repository"
	"github.com/inboxkit/mailsort/services/classifier"
	"github.com/inboxkit/mailsort/services/events"
	"github.com/inboxkit/mailsort/services/gmail"
	"github.com/inboxkit/mailsort/services/labels"
	"github.com/inboxkit/mailsort/services/onboarding"
)

type Services struct {
	GmailService      interfaces.GmailService
	ClassifierService interfaces.ClassifierService
	LabelService      interfaces.LabelService
	OnboardingService interfaces.OnboardingService
	EventsPublisher   interfaces.EventsPublisher
}

func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	gmailService, err := gmail.NewGmailService(ctx, cfg.GmailConfig, log)
	if err != nil {
		return nil, err
	}

	classifierService := classifier.NewClassifierService(cfg.AnthropicConfig, log)
	labelService := labels.NewLabelService(gmailService, log)

	// The broker is optional. Without RABBITMQ_URL labeling events are
	// simply not published and everything else runs unchanged.
	var publisher interfaces.EventsPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
		publisher = rabbitPublisher
	}

	onboardingService := onboarding.NewOnboardingService(
		cfg,
		log,
		gmailService,
		classifierService,
		labelService,
		publisher,
		repos.UserRepository,
	)

	return &Services{
		GmailService:      gmailService,
		ClassifierService: classifierService,
		LabelService:      labelService,
		OnboardingService: onboardingService,
		EventsPublisher:   publisher,
	}, nil
}
