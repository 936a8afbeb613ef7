package labels

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxkit/mailsort/internal/enum"
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/models"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type modifyCall struct {
	messageID string
	add       []string
	remove    []string
}

type fakeGmail struct {
	labels       []*models.MailboxLabel
	listErr      error
	createErr    error
	failRemovals bool
	created      []string
	modifyCalls  []modifyCall
}

func (f *fakeGmail) FetchThreadBatch(ctx context.Context, pageToken string) (*models.ThreadBatch, error) {
	return &models.ThreadBatch{}, nil
}

func (f *fakeGmail) ListLabels(ctx context.Context) ([]*models.MailboxLabel, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.labels, nil
}

func (f *fakeGmail) CreateLabel(ctx context.Context, name string) (*models.MailboxLabel, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	created := &models.MailboxLabel{ID: "label-" + name, Name: name}
	f.labels = append(f.labels, created)
	f.created = append(f.created, name)
	return created, nil
}

func (f *fakeGmail) ModifyMessageLabels(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	f.modifyCalls = append(f.modifyCalls, modifyCall{messageID: messageID, add: addLabelIDs, remove: removeLabelIDs})
	if f.failRemovals && len(removeLabelIDs) > 0 {
		return errors.New("modify rejected")
	}
	return nil
}

func TestResolveLabelIDExistingLabel(t *testing.T) {
	gmail := &fakeGmail{labels: []*models.MailboxLabel{
		{ID: "l-77", Name: "ACTION_NEEDED"},
		{ID: "l-78", Name: "FYI"},
	}}
	svc := NewLabelService(gmail, getLogger())

	id, err := svc.ResolveLabelID(context.Background(), "FYI")

	require.NoError(t, err)
	assert.Equal(t, "l-78", id)
	assert.Empty(t, gmail.created)
}

func TestResolveLabelIDCreatesWhenMissing(t *testing.T) {
	gmail := &fakeGmail{}
	svc := NewLabelService(gmail, getLogger())

	id, err := svc.ResolveLabelID(context.Background(), "SPAM")

	require.NoError(t, err)
	assert.Equal(t, "label-SPAM", id)
	assert.Equal(t, []string{"SPAM"}, gmail.created)
}

func TestResolveLabelIDMatchIsCaseSensitive(t *testing.T) {
	gmail := &fakeGmail{labels: []*models.MailboxLabel{
		{ID: "l-1", Name: "Action_Needed"},
	}}
	svc := NewLabelService(gmail, getLogger())

	id, err := svc.ResolveLabelID(context.Background(), "ACTION_NEEDED")

	require.NoError(t, err)
	assert.Equal(t, "label-ACTION_NEEDED", id)
	assert.Equal(t, []string{"ACTION_NEEDED"}, gmail.created)
}

func TestResolveLabelIDListFailure(t *testing.T) {
	gmail := &fakeGmail{listErr: errors.New("quota exceeded")}
	svc := NewLabelService(gmail, getLogger())

	_, err := svc.ResolveLabelID(context.Background(), "EXTRA")

	require.Error(t, err)
	assert.Empty(t, gmail.created)
}

func TestLabelThreadMainMessage(t *testing.T) {
	gmail := &fakeGmail{labels: []*models.MailboxLabel{
		{ID: "l-9", Name: "ACTION_NEEDED"},
	}}
	svc := NewLabelService(gmail, getLogger())

	id, err := svc.LabelThreadMainMessage(context.Background(), "msg-1", enum.LabelActionNeeded)

	require.NoError(t, err)
	assert.Equal(t, "l-9", id)

	// Removal first, addition second, as two independent calls.
	require.Len(t, gmail.modifyCalls, 2)
	assert.Equal(t, "msg-1", gmail.modifyCalls[0].messageID)
	assert.Empty(t, gmail.modifyCalls[0].add)
	assert.Equal(t, gmailSystemLabelIDs, gmail.modifyCalls[0].remove)
	assert.Equal(t, []string{"l-9"}, gmail.modifyCalls[1].add)
	assert.Empty(t, gmail.modifyCalls[1].remove)
}

func TestLabelThreadMainMessageRemovalFailureStillAdds(t *testing.T) {
	gmail := &fakeGmail{failRemovals: true}
	svc := NewLabelService(gmail, getLogger())

	id, err := svc.LabelThreadMainMessage(context.Background(), "msg-2", enum.LabelSpam)

	require.NoError(t, err)
	assert.Equal(t, "label-SPAM", id)
	require.Len(t, gmail.modifyCalls, 2)
	assert.Equal(t, []string{"label-SPAM"}, gmail.modifyCalls[1].add)
}

func TestLabelThreadMainMessageIsRepeatable(t *testing.T) {
	gmail := &fakeGmail{labels: []*models.MailboxLabel{
		{ID: "l-3", Name: "EXTRA"},
	}}
	svc := NewLabelService(gmail, getLogger())

	first, err := svc.LabelThreadMainMessage(context.Background(), "msg-3", enum.LabelExtra)
	require.NoError(t, err)
	second, err := svc.LabelThreadMainMessage(context.Background(), "msg-3", enum.LabelExtra)
	require.NoError(t, err)

	// Same resolution and identical modify arguments on the second pass.
	assert.Equal(t, first, second)
	require.Len(t, gmail.modifyCalls, 4)
	assert.Equal(t, gmail.modifyCalls[1], gmail.modifyCalls[3])
	assert.Empty(t, gmail.created)
}
