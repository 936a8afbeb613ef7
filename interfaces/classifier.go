package interfaces

import (
	"golang.org/x/net/context"

	"github.com/inboxkit/mailsort/internal/enum"
)

// ClassifierService files conversation text under one of the four labels.
// Classification never fails: provider errors and unrecognized answers both
// degrade to enum.LabelExtra.
type ClassifierService interface {
	ClassifyThread(ctx context.Context, content string) enum.EmailLabel
}
