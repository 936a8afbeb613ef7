package interfaces

import (
	"context"
	"time"

	"github.com/inboxkit/mailsort/internal/enum"
	"github.com/inboxkit/mailsort/internal/models"
)

type UserRepository interface {
	// GetUsersPendingOnboarding returns every user whose onboarding is not
	// yet complete, oldest first.
	GetUsersPendingOnboarding(ctx context.Context) ([]*models.User, error)

	// SaveOnboardingProgress commits one user's batch outcome as a single
	// transaction: cursor and sync timestamp are updated, the audit records
	// are inserted, and onboarding_complete is set to true when lastPointer
	// is nil (the flag is never written otherwise, so it cannot reverse).
	SaveOnboardingProgress(ctx context.Context, userID string, lastPointer *string, syncedAt time.Time, records []*models.ThreadClassification) error

	CountByOnboardingStatus(ctx context.Context) (pending int64, complete int64, err error)
}

type ThreadClassificationRepository interface {
	CountsByLabel(ctx context.Context) (map[enum.EmailLabel]int64, error)
}
