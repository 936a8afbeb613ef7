package onboarding

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/inboxkit/mailsort/config"
	"github.com/inboxkit/mailsort/dto"
	"github.com/inboxkit/mailsort/interfaces"
	coreerrors "github.com/inboxkit/mailsort/internal/errors"
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/models"
	"github.com/inboxkit/mailsort/internal/tracing"
	"github.com/inboxkit/mailsort/internal/utils"
)

// onboardingService pages through each pending user's mailbox, one batch per
// user per cycle, classifying and labeling new threads and advancing the
// user's cursor. All users are processed strictly sequentially; the cursor is
// the only shared mutable state and is committed once per user per cycle.
type onboardingService struct {
	cfg        *config.Config
	log        logger.Logger
	gmail      interfaces.GmailService
	classifier interfaces.ClassifierService
	labels     interfaces.LabelService
	events     interfaces.EventsPublisher
	users      interfaces.UserRepository

	now func() time.Time

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	cyclesRun   int64
	lastCycleAt *time.Time
}

func NewOnboardingService(
	cfg *config.Config,
	log logger.Logger,
	gmail interfaces.GmailService,
	classifier interfaces.ClassifierService,
	labels interfaces.LabelService,
	events interfaces.EventsPublisher,
	users interfaces.UserRepository,
) interfaces.OnboardingService {
	return &onboardingService{
		cfg:        cfg,
		log:        log,
		gmail:      gmail,
		classifier: classifier,
		labels:     labels,
		events:     events,
		users:      users,
		now:        utils.Now,
	}
}

// Start validates provider credentials and then blocks, running one cycle
// followed by one full sleep interval until Stop is called or ctx is
// cancelled. Stop is only observed between cycles, never mid-cycle.
func (s *onboardingService) Start(ctx context.Context) error {
	if err := s.checkCredentials(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("onboarding scheduler is already running")
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.stopCh = nil
		s.mu.Unlock()
	}()

	interval := time.Duration(s.cfg.OnboardingConfig.CycleSeconds) * time.Second
	s.log.Infof("Onboarding scheduler started, cycle interval %s", interval)

	for {
		s.runCycle(ctx)

		timer := time.NewTimer(interval)
		select {
		case <-stopCh:
			timer.Stop()
			s.log.Info("Onboarding scheduler stopped")
			return nil
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("Onboarding scheduler context cancelled")
			return nil
		case <-timer.C:
		}
	}
}

func (s *onboardingService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopCh == nil {
		return nil
	}
	close(s.stopCh)
	s.stopCh = nil
	return nil
}

func (s *onboardingService) Status() interfaces.OnboardingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return interfaces.OnboardingStatus{
		Running:     s.running,
		CyclesRun:   s.cyclesRun,
		LastCycleAt: s.lastCycleAt,
	}
}

func (s *onboardingService) checkCredentials() error {
	if strings.TrimSpace(s.cfg.GmailConfig.AccessToken) == "" {
		return errors.Wrap(coreerrors.ErrMissingGmailCredentials, "onboarding scheduler cannot start")
	}
	if strings.TrimSpace(s.cfg.AnthropicConfig.APIKey) == "" {
		return errors.Wrap(coreerrors.ErrMissingAnthropicCredentials, "onboarding scheduler cannot start")
	}
	return nil
}

func (s *onboardingService) runCycle(ctx context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "OnboardingService.runCycle")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	users, err := s.users.GetUsersPendingOnboarding(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Failed to load users pending onboarding: %v", err)
		return
	}
	span.LogFields(tracingLog.Int("users.pending", len(users)))

	for _, user := range users {
		s.processUser(ctx, user)
	}

	s.mu.Lock()
	s.cyclesRun++
	now := s.now()
	s.lastCycleAt = &now
	s.mu.Unlock()
}

// processUser runs one batch for one user. A fetch failure or a failed commit
// leaves the user's persisted state untouched; the next cycle retries from
// the same cursor. Failures never escape to the cycle, so the remaining
// users still get their turn.
func (s *onboardingService) processUser(ctx context.Context, user *models.User) {
	ctx = utils.WithCustomContext(ctx, &utils.CustomContext{UserId: user.ID, UserEmail: user.Email})

	span, ctx := opentracing.StartSpanFromContext(ctx, "OnboardingService.processUser")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	defer tracing.RecoverAndLogToJaeger(s.log)

	batch, err := s.gmail.FetchThreadBatch(ctx, utils.GetOrDefault(user.LastPointer, ""))
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Batch fetch failed for user %s, retrying from the same cursor next cycle: %v", user.Email, err)
		return
	}

	// An empty batch is a legitimate outcome, the user's cursor, completion
	// flag and sync timestamp all stay as they are.
	if len(batch.Threads) == 0 {
		s.log.Debugf("No threads in batch for user %s", user.Email)
		return
	}

	records := make([]*models.ThreadClassification, 0, len(batch.Threads))
	for _, thread := range batch.Threads {
		if record := s.processThread(ctx, user, thread); record != nil {
			records = append(records, record)
		}
	}

	err = s.users.SaveOnboardingProgress(ctx, user.ID, utils.StringPtrNilIfEmpty(batch.NextPageToken), s.now(), records)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Failed to persist onboarding progress for user %s: %v", user.Email, err)
		return
	}

	if batch.NextPageToken == "" {
		s.log.Infof("Onboarding complete for user %s", user.Email)
	}
}

// processThread classifies and labels a single thread, returning the audit
// record to commit alongside the cursor, or nil when the thread is skipped
// or its label mutation failed.
func (s *onboardingService) processThread(ctx context.Context, user *models.User, thread *models.EmailThread) *models.ThreadClassification {
	span, ctx := opentracing.StartSpanFromContext(ctx, "OnboardingService.processThread")
	defer span.Finish()
	tracing.TagEntity(span, thread.ID)

	main := thread.MainMessage
	if main == nil || main.IsThreadReply {
		// Multi-message threads tag every message as a reply, the first one
		// included, so a thread with replies is skipped wholesale.
		span.LogKV("skipped", "main message is a thread reply")
		return nil
	}

	label := s.classifier.ClassifyThread(ctx, buildClassifierInput(thread))

	if _, err := s.labels.LabelThreadMainMessage(ctx, main.ID, label); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Label mutation failed for thread %s: %v", thread.ID, err)
		return nil
	}

	record := &models.ThreadClassification{
		UserID:       user.ID,
		ThreadID:     thread.ID,
		MessageID:    main.ID,
		Label:        label,
		RemoteLabel:  label.RemoteName(),
		Subject:      main.Subject,
		Participants: participants(thread),
		MessageCount: len(thread.Messages),
	}

	s.publishThreadLabeled(ctx, user, record)

	span.LogKV("result.label", label)
	return record
}

// buildClassifierInput joins the main message body with each reply body in
// thread order. Empty reply bodies are skipped.
func buildClassifierInput(thread *models.EmailThread) string {
	parts := []string{thread.MainMessage.Body}
	for _, msg := range thread.Messages[1:] {
		if msg.Body == "" {
			continue
		}
		parts = append(parts, msg.Body)
	}
	return strings.Join(parts, "\n")
}

func participants(thread *models.EmailThread) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	for _, msg := range thread.Messages {
		add(msg.From)
		add(msg.To)
	}
	return out
}

func (s *onboardingService) publishThreadLabeled(ctx context.Context, user *models.User, record *models.ThreadClassification) {
	// Publisher is optional; without a broker the scheduler runs the same.
	if s.events == nil {
		return
	}

	event := dto.ThreadLabeled{
		UserID:       user.ID,
		UserEmail:    user.Email,
		ThreadID:     record.ThreadID,
		MessageID:    record.MessageID,
		Label:        record.Label,
		RemoteLabel:  record.RemoteLabel,
		Subject:      record.Subject,
		MessageCount: record.MessageCount,
		LabeledAt:    s.now().Format(time.RFC3339),
	}
	if err := s.events.PublishThreadLabeled(ctx, event); err != nil {
		s.log.Warnf("Failed to publish thread labeled event: %v", err)
	}
}
