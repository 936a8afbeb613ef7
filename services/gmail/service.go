package gmail

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/inboxkit/mailsort/config"
	"github.com/inboxkit/mailsort/interfaces"
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/models"
	"github.com/inboxkit/mailsort/internal/tracing"
)

const (
	gmailUserID = "me"

	// messageBatchSize is the page size for mailbox ingestion. Onboarding
	// walks the whole mailbox in pages of this size, one page per cycle.
	messageBatchSize = 5

	threadFormatFull = "full"
)

type gmailService struct {
	log     logger.Logger
	service *gmailapi.Service
}

func NewGmailService(ctx context.Context, cfg *config.GmailConfig, log logger.Logger) (interfaces.GmailService, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &gmailService{
		log:     log,
		service: svc,
	}, nil
}

// FetchThreadBatch lists one page of message ids and expands each into its
// full thread. Any provider error aborts the whole batch, no partial result
// is returned.
func (s *gmailService) FetchThreadBatch(ctx context.Context, pageToken string) (*models.ThreadBatch, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.FetchThreadBatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("pageToken", pageToken)

	call := s.service.Users.Messages.List(gmailUserID).MaxResults(messageBatchSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	batch := &models.ThreadBatch{NextPageToken: resp.NextPageToken}
	for _, m := range resp.Messages {
		thread, err := s.getThread(ctx, m.ThreadId)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, fmt.Errorf("failed to get thread %s: %w", m.ThreadId, err)
		}
		if thread == nil {
			continue
		}
		batch.Threads = append(batch.Threads, thread)
	}

	span.LogFields(tracingLog.Int("result.threads", len(batch.Threads)))
	return batch, nil
}

func (s *gmailService) getThread(ctx context.Context, threadID string) (*models.EmailThread, error) {
	t, err := s.service.Users.Threads.Get(gmailUserID, threadID).Format(threadFormatFull).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	// Every message in a multi-message thread is tagged as a reply; the
	// flag reflects the thread's cardinality, not the message's position.
	isThreadReply := len(t.Messages) > 1

	thread := &models.EmailThread{
		ID:        t.Id,
		HistoryID: t.HistoryId,
	}
	for _, m := range t.Messages {
		msg := buildMessage(m, isThreadReply)
		if msg == nil {
			continue
		}
		thread.Messages = append(thread.Messages, msg)
	}

	if len(thread.Messages) == 0 {
		return nil, nil
	}
	thread.MainMessage = thread.Messages[0]

	return thread, nil
}

func (s *gmailService) ListLabels(ctx context.Context) ([]*models.MailboxLabel, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.ListLabels")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	resp, err := s.service.Users.Labels.List(gmailUserID).Context(ctx).Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	labels := make([]*models.MailboxLabel, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, &models.MailboxLabel{ID: l.Id, Name: l.Name})
	}

	span.LogFields(tracingLog.Int("result.count", len(labels)))
	return labels, nil
}

func (s *gmailService) CreateLabel(ctx context.Context, name string) (*models.MailboxLabel, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.CreateLabel")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("name", name)

	created, err := s.service.Users.Labels.Create(gmailUserID, &gmailapi.Label{
		Name:                  name,
		MessageListVisibility: "show",
		LabelListVisibility:   "labelShow",
	}).Context(ctx).Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to create label %s: %w", name, err)
	}

	return &models.MailboxLabel{ID: created.Id, Name: created.Name}, nil
}

// ModifyMessageLabels issues a single modify request. Empty lists are left
// out of the request body entirely, so repeating the call with the same
// arguments is idempotent on the remote side.
func (s *gmailService) ModifyMessageLabels(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.ModifyMessageLabels")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("messageId", messageID, "add", addLabelIDs, "remove", removeLabelIDs)

	request := &gmailapi.ModifyMessageRequest{}
	if len(addLabelIDs) > 0 {
		request.AddLabelIds = addLabelIDs
	}
	if len(removeLabelIDs) > 0 {
		request.RemoveLabelIds = removeLabelIDs
	}

	_, err := s.service.Users.Messages.Modify(gmailUserID, messageID, request).Context(ctx).Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to modify labels on message %s: %w", messageID, err)
	}

	return nil
}
