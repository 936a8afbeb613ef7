package onboarding

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxkit/mailsort/config"
	"github.com/inboxkit/mailsort/dto"
	"github.com/inboxkit/mailsort/interfaces"
	"github.com/inboxkit/mailsort/internal/enum"
	coreerrors "github.com/inboxkit/mailsort/internal/errors"
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/models"
	"github.com/inboxkit/mailsort/internal/utils"
	"github.com/inboxkit/mailsort/services/classifier"
)

var fixedTime = time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeGmail struct {
	batches    map[string]*models.ThreadBatch
	errByToken map[string]error
	fetches    []string
}

func (f *fakeGmail) FetchThreadBatch(ctx context.Context, pageToken string) (*models.ThreadBatch, error) {
	f.fetches = append(f.fetches, pageToken)
	if err := f.errByToken[pageToken]; err != nil {
		return nil, err
	}
	if batch, ok := f.batches[pageToken]; ok {
		return batch, nil
	}
	return &models.ThreadBatch{}, nil
}

func (f *fakeGmail) ListLabels(ctx context.Context) ([]*models.MailboxLabel, error) {
	return nil, nil
}

func (f *fakeGmail) CreateLabel(ctx context.Context, name string) (*models.MailboxLabel, error) {
	return &models.MailboxLabel{ID: "label-" + name, Name: name}, nil
}

func (f *fakeGmail) ModifyMessageLabels(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	return nil
}

type fakeClassifier struct {
	label  enum.EmailLabel
	inputs []string
}

func (f *fakeClassifier) ClassifyThread(ctx context.Context, content string) enum.EmailLabel {
	f.inputs = append(f.inputs, content)
	return f.label
}

type labelCall struct {
	messageID string
	label     enum.EmailLabel
}

type fakeLabels struct {
	err   error
	calls []labelCall
}

func (f *fakeLabels) ResolveLabelID(ctx context.Context, name string) (string, error) {
	return "label-" + name, nil
}

func (f *fakeLabels) ApplyLabels(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	return nil
}

func (f *fakeLabels) LabelThreadMainMessage(ctx context.Context, messageID string, label enum.EmailLabel) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, labelCall{messageID: messageID, label: label})
	return "label-" + label.RemoteName(), nil
}

type savedProgress struct {
	userID      string
	lastPointer *string
	syncedAt    time.Time
	records     []*models.ThreadClassification
}

type fakeUserRepo struct {
	pending []*models.User
	saveErr error
	saves   []savedProgress
}

func (f *fakeUserRepo) GetUsersPendingOnboarding(ctx context.Context) ([]*models.User, error) {
	return f.pending, nil
}

func (f *fakeUserRepo) SaveOnboardingProgress(ctx context.Context, userID string, lastPointer *string, syncedAt time.Time, records []*models.ThreadClassification) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, savedProgress{
		userID:      userID,
		lastPointer: lastPointer,
		syncedAt:    syncedAt,
		records:     records,
	})
	return nil
}

func (f *fakeUserRepo) CountByOnboardingStatus(ctx context.Context) (int64, int64, error) {
	return int64(len(f.pending)), 0, nil
}

type fakeEvents struct {
	events []dto.ThreadLabeled
}

func (f *fakeEvents) PublishThreadLabeled(ctx context.Context, event dto.ThreadLabeled) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) Close() error {
	return nil
}

func singleMessageThread(threadID, messageID, body string) *models.EmailThread {
	msg := &models.EmailMessage{
		ID:       messageID,
		ThreadID: threadID,
		From:     "alice@example.com",
		To:       "bob@example.com",
		Subject:  "Subject of " + threadID,
		Body:     body,
	}
	return &models.EmailThread{
		ID:          threadID,
		MainMessage: msg,
		Messages:    []*models.EmailMessage{msg},
	}
}

func threadWithReplies(threadID string, bodies ...string) *models.EmailThread {
	thread := &models.EmailThread{ID: threadID}
	for i, body := range bodies {
		thread.Messages = append(thread.Messages, &models.EmailMessage{
			ID:            fmt.Sprintf("%s-msg-%d", threadID, i),
			ThreadID:      threadID,
			Body:          body,
			IsThreadReply: true,
		})
	}
	thread.MainMessage = thread.Messages[0]
	return thread
}

func newTestService(gmail *fakeGmail, classifier *fakeClassifier, labels *fakeLabels, events *fakeEvents, repo *fakeUserRepo) *onboardingService {
	cfg := &config.Config{
		GmailConfig:      &config.GmailConfig{AccessToken: "gmail-token"},
		AnthropicConfig:  &config.AnthropicConfig{APIKey: "anthropic-key"},
		OnboardingConfig: &config.OnboardingConfig{CycleSeconds: 30},
	}

	// A typed nil fake would defeat the scheduler's nil publisher check.
	var publisher interfaces.EventsPublisher
	if events != nil {
		publisher = events
	}

	svc := NewOnboardingService(cfg, getLogger(), gmail, classifier, labels, publisher, repo).(*onboardingService)
	svc.now = func() time.Time { return fixedTime }
	return svc
}

func TestProcessUserAppliesLabelAndAdvancesCursor(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "user@example.com"}
	gmail := &fakeGmail{batches: map[string]*models.ThreadBatch{
		"": {
			NextPageToken: "page-2",
			Threads: []*models.EmailThread{
				singleMessageThread("thread-1", "msg-1", "Please sign the attached form by Friday"),
			},
		},
	}}
	classifier := &fakeClassifier{label: enum.LabelActionNeeded}
	labels := &fakeLabels{}
	events := &fakeEvents{}
	repo := &fakeUserRepo{pending: []*models.User{user}}
	svc := newTestService(gmail, classifier, labels, events, repo)

	svc.runCycle(context.Background())

	// Classified from the main message body and labeled on the main message.
	require.Len(t, classifier.inputs, 1)
	assert.Equal(t, "Please sign the attached form by Friday", classifier.inputs[0])
	require.Len(t, labels.calls, 1)
	assert.Equal(t, "msg-1", labels.calls[0].messageID)
	assert.Equal(t, enum.LabelActionNeeded, labels.calls[0].label)

	// Cursor advanced to the fetched token, onboarding not complete yet.
	require.Len(t, repo.saves, 1)
	saved := repo.saves[0]
	assert.Equal(t, "user-1", saved.userID)
	require.NotNil(t, saved.lastPointer)
	assert.Equal(t, "page-2", *saved.lastPointer)
	assert.Equal(t, fixedTime, saved.syncedAt)

	require.Len(t, saved.records, 1)
	record := saved.records[0]
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "thread-1", record.ThreadID)
	assert.Equal(t, "msg-1", record.MessageID)
	assert.Equal(t, enum.LabelActionNeeded, record.Label)
	assert.Equal(t, "ACTION_NEEDED", record.RemoteLabel)
	assert.Equal(t, 1, record.MessageCount)

	require.Len(t, events.events, 1)
	assert.Equal(t, "thread-1", events.events[0].ThreadID)
	assert.Equal(t, enum.LabelActionNeeded, events.events[0].Label)
}

func TestProcessUserCompletesWhenNoNextToken(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "user@example.com", LastPointer: utils.StringPtr("page-9")}
	gmail := &fakeGmail{batches: map[string]*models.ThreadBatch{
		"page-9": {
			NextPageToken: "",
			Threads: []*models.EmailThread{
				singleMessageThread("thread-9", "msg-9", "final batch"),
			},
		},
	}}
	repo := &fakeUserRepo{pending: []*models.User{user}}
	svc := newTestService(gmail, &fakeClassifier{label: enum.LabelFYI}, &fakeLabels{}, nil, repo)

	svc.runCycle(context.Background())

	assert.Equal(t, []string{"page-9"}, gmail.fetches)
	require.Len(t, repo.saves, 1)
	// Absent next token maps to a nil pointer, which the repository turns
	// into onboarding_complete = true.
	assert.Nil(t, repo.saves[0].lastPointer)
}

func TestProcessUserEmptyBatchIsNoOp(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "user@example.com"}
	gmail := &fakeGmail{batches: map[string]*models.ThreadBatch{
		// Even a token alongside zero threads must not advance the cursor.
		"": {NextPageToken: "page-2"},
	}}
	repo := &fakeUserRepo{pending: []*models.User{user}}
	svc := newTestService(gmail, &fakeClassifier{label: enum.LabelExtra}, &fakeLabels{}, nil, repo)

	svc.runCycle(context.Background())

	assert.Empty(t, repo.saves)
}

func TestProcessUserFetchErrorDoesNotBlockNextUser(t *testing.T) {
	broken := &models.User{ID: "user-1", Email: "broken@example.com", LastPointer: utils.StringPtr("page-err")}
	healthy := &models.User{ID: "user-2", Email: "healthy@example.com"}
	gmail := &fakeGmail{
		errByToken: map[string]error{"page-err": errors.New("transport failure")},
		batches: map[string]*models.ThreadBatch{
			"": {Threads: []*models.EmailThread{
				singleMessageThread("thread-2", "msg-2", "hello"),
			}},
		},
	}
	repo := &fakeUserRepo{pending: []*models.User{broken, healthy}}
	svc := newTestService(gmail, &fakeClassifier{label: enum.LabelExtra}, &fakeLabels{}, nil, repo)

	svc.runCycle(context.Background())

	// The failed user keeps their state, the next user is still processed.
	require.Len(t, repo.saves, 1)
	assert.Equal(t, "user-2", repo.saves[0].userID)
	assert.Equal(t, []string{"page-err", ""}, gmail.fetches)
}

func TestProcessUserSkipsThreadsWithReplies(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "user@example.com"}
	gmail := &fakeGmail{batches: map[string]*models.ThreadBatch{
		"": {
			NextPageToken: "page-2",
			Threads: []*models.EmailThread{
				threadWithReplies("thread-1", "first", "second"),
				singleMessageThread("thread-2", "msg-2", "standalone"),
			},
		},
	}}
	classifier := &fakeClassifier{label: enum.LabelFYI}
	labels := &fakeLabels{}
	repo := &fakeUserRepo{pending: []*models.User{user}}
	svc := newTestService(gmail, classifier, labels, nil, repo)

	svc.runCycle(context.Background())

	// The reply thread never reaches the classifier or the label service.
	require.Len(t, classifier.inputs, 1)
	assert.Equal(t, "standalone", classifier.inputs[0])
	require.Len(t, labels.calls, 1)
	assert.Equal(t, "msg-2", labels.calls[0].messageID)

	// The cursor still advances, with only the classified thread on record.
	require.Len(t, repo.saves, 1)
	require.Len(t, repo.saves[0].records, 1)
	assert.Equal(t, "thread-2", repo.saves[0].records[0].ThreadID)
}

func TestProcessUserLabelMutationFailureKeepsCursorMoving(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "user@example.com"}
	gmail := &fakeGmail{batches: map[string]*models.ThreadBatch{
		"": {
			NextPageToken: "page-2",
			Threads: []*models.EmailThread{
				singleMessageThread("thread-1", "msg-1", "body"),
			},
		},
	}}
	labels := &fakeLabels{err: errors.New("modify rejected")}
	repo := &fakeUserRepo{pending: []*models.User{user}}
	svc := newTestService(gmail, &fakeClassifier{label: enum.LabelSpam}, labels, nil, repo)

	svc.runCycle(context.Background())

	// Mutation failures drop the audit record but never the commit.
	require.Len(t, repo.saves, 1)
	assert.Empty(t, repo.saves[0].records)
	require.NotNil(t, repo.saves[0].lastPointer)
	assert.Equal(t, "page-2", *repo.saves[0].lastPointer)
}

func TestProcessUserSaveFailureDoesNotStopCycle(t *testing.T) {
	users := []*models.User{
		{ID: "user-1", Email: "one@example.com"},
		{ID: "user-2", Email: "two@example.com"},
	}
	gmail := &fakeGmail{batches: map[string]*models.ThreadBatch{
		"": {Threads: []*models.EmailThread{
			singleMessageThread("thread-1", "msg-1", "body"),
		}},
	}}
	repo := &fakeUserRepo{pending: users, saveErr: errors.New("db down")}
	svc := newTestService(gmail, &fakeClassifier{label: enum.LabelExtra}, &fakeLabels{}, nil, repo)

	svc.runCycle(context.Background())

	// Both users attempted a fetch despite the failing commits.
	assert.Equal(t, []string{"", ""}, gmail.fetches)
	assert.Equal(t, int64(1), svc.Status().CyclesRun)
}

func TestBuildClassifierInput(t *testing.T) {
	thread := threadWithReplies("thread-1", "main body", "", "second reply")

	got := buildClassifierInput(thread)

	// Main body first, replies in thread order, empty reply bodies skipped.
	assert.Equal(t, "main body\nsecond reply", got)
}

func TestStartRequiresCredentials(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newTestService(&fakeGmail{}, &fakeClassifier{}, &fakeLabels{}, nil, repo)

	svc.cfg.GmailConfig.AccessToken = ""
	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrMissingGmailCredentials))

	svc.cfg.GmailConfig.AccessToken = "gmail-token"
	svc.cfg.AnthropicConfig.APIKey = ""
	err = svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrMissingAnthropicCredentials))

	assert.False(t, svc.Status().Running)
}

func TestStartStopObservedBetweenCycles(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newTestService(&fakeGmail{}, &fakeClassifier{}, &fakeLabels{}, nil, repo)
	svc.cfg.OnboardingConfig.CycleSeconds = 0

	done := make(chan error, 1)
	go func() {
		done <- svc.Start(context.Background())
	}()

	// Give the loop a few cycles before asking it to stop.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, svc.Stop())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	status := svc.Status()
	assert.False(t, status.Running)
	assert.GreaterOrEqual(t, status.CyclesRun, int64(1))
	require.NotNil(t, status.LastCycleAt)
	assert.Equal(t, fixedTime, *status.LastCycleAt)
}

func TestStartHonorsContextCancellation(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newTestService(&fakeGmail{}, &fakeClassifier{}, &fakeLabels{}, nil, repo)
	svc.cfg.OnboardingConfig.CycleSeconds = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not observe cancellation")
	}
	assert.False(t, svc.Status().Running)
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	svc := newTestService(&fakeGmail{}, &fakeClassifier{}, &fakeLabels{}, nil, &fakeUserRepo{})

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())
}

func TestPublisherIsOptional(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "user@example.com"}
	gmail := &fakeGmail{batches: map[string]*models.ThreadBatch{
		"": {Threads: []*models.EmailThread{
			singleMessageThread("thread-1", "msg-1", "body"),
		}},
	}}
	repo := &fakeUserRepo{pending: []*models.User{user}}
	svc := newTestService(gmail, &fakeClassifier{label: enum.LabelFYI}, &fakeLabels{}, nil, repo)

	// No publisher configured; the cycle must run to completion regardless.
	svc.runCycle(context.Background())

	require.Len(t, repo.saves, 1)
}

func TestProcessUserUnknownClassifierAnswerDefaultsToExtra(t *testing.T) {
	// Real classifier against a stub provider whose answer is not one of the
	// four labels; the thread must still end up labeled as extra.
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"maybe"}]}`))
	}))
	t.Cleanup(provider.Close)

	user := &models.User{ID: "user-1", Email: "user@example.com"}
	gmail := &fakeGmail{batches: map[string]*models.ThreadBatch{
		"": {Threads: []*models.EmailThread{
			singleMessageThread("thread-1", "msg-1", "unclassifiable"),
		}},
	}}
	labels := &fakeLabels{}
	repo := &fakeUserRepo{pending: []*models.User{user}}
	svc := newTestService(gmail, &fakeClassifier{}, labels, nil, repo)
	svc.classifier = classifier.NewClassifierService(&config.AnthropicConfig{
		APIKey: "anthropic-key",
		APIURL: provider.URL,
		Model:  "claude-3-5-sonnet-20241022",
	}, getLogger())

	svc.runCycle(context.Background())

	require.Len(t, labels.calls, 1)
	assert.Equal(t, enum.LabelExtra, labels.calls[0].label)
	require.Len(t, repo.saves, 1)
	require.Len(t, repo.saves[0].records, 1)
	assert.Equal(t, enum.LabelExtra, repo.saves[0].records[0].Label)
	assert.Equal(t, "EXTRA", repo.saves[0].records[0].RemoteLabel)
}
