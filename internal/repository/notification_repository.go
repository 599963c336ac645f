package repository

import (
	"context"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	SetDB(db *gorm.DB)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Create(n).Error
}

func (r *notificationRepository) SetDB(db *gorm.DB) {
	r.db = db
}
