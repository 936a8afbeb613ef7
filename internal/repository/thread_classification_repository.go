package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"gorm.io/gorm"

	"github.com/inboxkit/mailsort/interfaces"
	"github.com/inboxkit/mailsort/internal/enum"
	"github.com/inboxkit/mailsort/internal/models"
	"github.com/inboxkit/mailsort/internal/tracing"
)

type threadClassificationRepository struct {
	db *gorm.DB
}

func NewThreadClassificationRepository(db *gorm.DB) interfaces.ThreadClassificationRepository {
	return &threadClassificationRepository{db: db}
}

func (r *threadClassificationRepository) CountsByLabel(ctx context.Context) (map[enum.EmailLabel]int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadClassificationRepository.CountsByLabel")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var rows []struct {
		Label enum.EmailLabel
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ThreadClassification{}).
		Select("label, count(*) as count").
		Group("label").
		Scan(&rows).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to count classifications by label: %w", err)
	}

	counts := make(map[enum.EmailLabel]int64, len(rows))
	for _, row := range rows {
		counts[row.Label] = row.Count
	}

	span.LogFields(tracingLog.Int("result.labels", len(counts)))
	return counts, nil
}
