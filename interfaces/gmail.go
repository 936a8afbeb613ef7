package interfaces

import (
	"context"

	"github.com/inboxkit/mailsort/internal/models"
)

// GmailService is the mailbox provider surface: paged thread retrieval plus
// the label primitives the synchronizer is built on.
type GmailService interface {
	// FetchThreadBatch lists one fixed-size page of message ids starting at
	// pageToken ("" means the beginning of the mailbox) and expands every
	// listed message into its full thread. Any provider error aborts the
	// whole batch; no partial result is returned.
	FetchThreadBatch(ctx context.Context, pageToken string) (*models.ThreadBatch, error)

	ListLabels(ctx context.Context) ([]*models.MailboxLabel, error)
	CreateLabel(ctx context.Context, name string) (*models.MailboxLabel, error)
	ModifyMessageLabels(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error
}
