package interfaces

import (
	"context"

	"github.com/inboxkit/mailsort/dto"
)

// EventsPublisher notifies downstream consumers about labeling outcomes.
// The worker runs fine without one; a nil publisher disables publishing.
type EventsPublisher interface {
	PublishThreadLabeled(ctx context.Context, event dto.ThreadLabeled) error
	Close() error
}
