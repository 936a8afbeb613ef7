package interfaces

import (
	"context"

	"github.com/inboxkit/mailsort/internal/enum"
)

type LabelService interface {
	// ResolveLabelID returns the id of the remote label with exactly the
	// given name, creating the label when no match exists. Resolution is
	// by-name on every call; ids are never cached across calls.
	ResolveLabelID(ctx context.Context, name string) (string, error)

	// ApplyLabels issues a single modify request for the message. Empty
	// lists are omitted from the request entirely. Idempotent.
	ApplyLabels(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error

	// LabelThreadMainMessage removes the provider's system labels from the
	// message and applies the classification label. The removal and the
	// addition are independent calls: a removal failure is logged and does
	// not prevent the addition attempt. Returns the resolved remote label id.
	LabelThreadMainMessage(ctx context.Context, messageID string, label enum.EmailLabel) (string, error)
}
