package labels

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"github.com/inboxkit/mailsort/interfaces"
	"github.com/inboxkit/mailsort/internal/enum"
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/tracing"
)

// gmailSystemLabelIDs are the provider's built in labels stripped from a
// message before its classification label is applied. For system labels the
// id equals the name.
var gmailSystemLabelIDs = []string{
	"INBOX",
	"IMPORTANT",
	"STARRED",
	"CATEGORY_PROMOTIONS",
	"CATEGORY_UPDATES",
	"CATEGORY_SOCIAL",
	"CATEGORY_FORUMS",
}

type labelService struct {
	log   logger.Logger
	gmail interfaces.GmailService
}

func NewLabelService(gmail interfaces.GmailService, log logger.Logger) interfaces.LabelService {
	return &labelService{
		log:   log,
		gmail: gmail,
	}
}

func (s *labelService) ResolveLabelID(ctx context.Context, name string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "LabelService.ResolveLabelID")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("name", name)

	existing, err := s.gmail.ListLabels(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", fmt.Errorf("failed to resolve label %s: %w", name, err)
	}

	// Exact, case sensitive name match.
	for _, label := range existing {
		if label.Name == name {
			return label.ID, nil
		}
	}

	created, err := s.gmail.CreateLabel(ctx, name)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", fmt.Errorf("failed to create label %s: %w", name, err)
	}

	s.log.Infof("Created mailbox label %s (%s)", created.Name, created.ID)
	return created.ID, nil
}

func (s *labelService) ApplyLabels(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "LabelService.ApplyLabels")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	err := s.gmail.ModifyMessageLabels(ctx, messageID, addLabelIDs, removeLabelIDs)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

// LabelThreadMainMessage strips the system labels from the message, then
// resolves and adds the classification label. Removal and addition are
// independent: a removal failure is logged and the addition still runs.
func (s *labelService) LabelThreadMainMessage(ctx context.Context, messageID string, label enum.EmailLabel) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "LabelService.LabelThreadMainMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("messageId", messageID, "label", label)

	if err := s.ApplyLabels(ctx, messageID, nil, gmailSystemLabelIDs); err != nil {
		tracing.TraceErr(span, err)
		s.log.Warnf("Failed to remove system labels from message %s: %v", messageID, err)
	}

	labelID, err := s.ResolveLabelID(ctx, label.RemoteName())
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	if err := s.ApplyLabels(ctx, messageID, []string{labelID}, nil); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return labelID, nil
}
