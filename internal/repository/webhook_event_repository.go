package repository

import (
	"context"
	"errors"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type WebhookEventRepository interface {
	// Record archives the event. It reports false when the event id was already stored.
	Record(ctx context.Context, e *model.WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID, processingErr string) error
	SetDB(db *gorm.DB)
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Record(ctx context.Context, e *model.WebhookEvent) (bool, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return false, err
	}
	if err := db.Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, provider, eventID, processingErr string) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Model(&model.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Updates(map[string]interface{}{
			"processed_at":     db.NowFunc(),
			"processing_error": processingErr,
		}).Error
}

func (r *webhookEventRepository) SetDB(db *gorm.DB) {
	r.db = db
}
