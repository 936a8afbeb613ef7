package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"gorm.io/gorm"

	"github.com/inboxkit/mailsort/interfaces"
	coreerrors "github.com/inboxkit/mailsort/internal/errors"
	"github.com/inboxkit/mailsort/internal/models"
	"github.com/inboxkit/mailsort/internal/tracing"
	"github.com/inboxkit/mailsort/internal/utils"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) interfaces.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetUsersPendingOnboarding(ctx context.Context) ([]*models.User, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "UserRepository.GetUsersPendingOnboarding")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var users []*models.User
	err := r.db.WithContext(ctx).
		Where("onboarding_complete = ?", false).
		Order("created_at asc").
		Find(&users).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get users pending onboarding: %w", err)
	}

	span.LogFields(tracingLog.Int("result.count", len(users)))
	return users, nil
}

// SaveOnboardingProgress writes the batch outcome for one user atomically.
// onboarding_complete flips to true only when lastPointer is nil; a batch
// with a next pointer leaves the flag untouched.
func (r *userRepository) SaveOnboardingProgress(ctx context.Context, userID string, lastPointer *string, syncedAt time.Time, records []*models.ThreadClassification) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "UserRepository.SaveOnboardingProgress")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, userID)
	span.LogFields(tracingLog.Int("records", len(records)))

	updates := map[string]interface{}{
		"last_pointer": lastPointer,
		"last_sync":    syncedAt,
		"updated_at":   utils.Now(),
	}
	if lastPointer == nil {
		updates["onboarding_complete"] = true
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return coreerrors.ErrUserNotFound
		}

		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to save onboarding progress: %w", err)
	}

	return nil
}

func (r *userRepository) CountByOnboardingStatus(ctx context.Context) (int64, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "UserRepository.CountByOnboardingStatus")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var pending, complete int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("onboarding_complete = ?", false).
		Count(&pending).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, 0, fmt.Errorf("failed to count pending users: %w", err)
	}

	err = r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("onboarding_complete = ?", true).
		Count(&complete).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, 0, fmt.Errorf("failed to count completed users: %w", err)
	}

	span.LogFields(tracingLog.Int64("result.pending", pending), tracingLog.Int64("result.complete", complete))
	return pending, complete, nil
}
