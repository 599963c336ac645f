package repository

import (
	"context"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type VoucherRepository interface {
	Create(ctx context.Context, v *model.Voucher) error
	ListUsable(ctx context.Context, userID string, now time.Time) ([]model.Voucher, error)
	MarkUsed(ctx context.Context, id, purchaseID string, now time.Time) (int64, error)
	SetDB(db *gorm.DB)
}

type voucherRepository struct {
	db *gorm.DB
}

func NewVoucherRepository(db *gorm.DB) VoucherRepository {
	return &voucherRepository{db: db}
}

func (r *voucherRepository) Create(ctx context.Context, v *model.Voucher) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Create(v).Error
}

// ListUsable returns the user's active vouchers that have not expired at now.
func (r *voucherRepository) ListUsable(ctx context.Context, userID string, now time.Time) ([]model.Voucher, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Voucher
	if err := db.Where("user_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
		userID, model.VoucherStatusActive, now).
		Order("discount_amount DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *voucherRepository) MarkUsed(ctx context.Context, id, purchaseID string, now time.Time) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.Voucher{}).
		Where("id = ? AND status = ?", id, model.VoucherStatusActive).
		Updates(map[string]interface{}{
			"status":              model.VoucherStatusUsed,
			"used_at":             now,
			"used_on_purchase_id": purchaseID,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *voucherRepository) SetDB(db *gorm.DB) {
	r.db = db
}
