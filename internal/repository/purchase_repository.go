package repository

import (
	"context"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PurchaseRepository interface {
	Create(ctx context.Context, p *model.Purchase) error
	FindByID(ctx context.Context, id string) (*model.Purchase, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Purchase, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]model.Purchase, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.Purchase, error)
	ListDueForRelease(ctx context.Context, now time.Time, limit int) ([]model.Purchase, error)
	ReleaseIfHeld(ctx context.Context, id string, to model.FundsStatus, now time.Time) (int64, error)
	ClaimPayout(ctx context.Context, id string, staleBefore time.Time) (int64, error)
	CompletePayout(ctx context.Context, id, transferID string, amount decimal.Decimal, now time.Time) (int64, error)
	FailPayout(ctx context.Context, id string) error
	SetDB(db *gorm.DB)
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, p *model.Purchase) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Create(p).Error
}

func (r *purchaseRepository) FindByID(ctx context.Context, id string) (*model.Purchase, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var p model.Purchase
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Purchase, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var p model.Purchase
	if err := db.Where("stripe_session_id = ?", sessionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepository) ListByBuyer(ctx context.Context, buyerID string) ([]model.Purchase, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Purchase
	if err := db.Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *purchaseRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.Purchase, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Purchase
	if err := db.Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListDueForRelease returns held purchases whose escrow window closed before now.
func (r *purchaseRepository) ListDueForRelease(ctx context.Context, now time.Time, limit int) ([]model.Purchase, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var list []model.Purchase
	if err := db.Where("funds_status = ? AND funds_release_at < ?", model.FundsStatusHeld, now).
		Order("funds_release_at ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *purchaseRepository) ReleaseIfHeld(ctx context.Context, id string, to model.FundsStatus, now time.Time) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.Purchase{}).
		Where("id = ? AND funds_status = ?", id, model.FundsStatusHeld).
		Updates(map[string]interface{}{
			"funds_status":      to,
			"funds_released_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ClaimPayout moves the purchase into processing. Only one caller can win the claim.
// A processing row last touched before staleBefore is treated as abandoned and can be
// claimed again; the transfer idempotency key keeps the retry from paying twice.
func (r *purchaseRepository) ClaimPayout(ctx context.Context, id string, staleBefore time.Time) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.Purchase{}).
		Where("id = ? AND stripe_transfer_id IS NULL AND (payout_status IN ? OR (payout_status = ? AND updated_at < ?))", id,
			[]model.PayoutStatus{model.PayoutStatusPending, model.PayoutStatusFailed},
			model.PayoutStatusProcessing, staleBefore).
		Update("payout_status", model.PayoutStatusProcessing)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *purchaseRepository) CompletePayout(ctx context.Context, id, transferID string, amount decimal.Decimal, now time.Time) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.Purchase{}).
		Where("id = ? AND stripe_transfer_id IS NULL", id).
		Updates(map[string]interface{}{
			"stripe_transfer_id":   transferID,
			"seller_payout_amount": amount,
			"payout_status":        model.PayoutStatusPaid,
			"paid_out_at":          now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *purchaseRepository) FailPayout(ctx context.Context, id string) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Model(&model.Purchase{}).
		Where("id = ? AND payout_status = ?", id, model.PayoutStatusProcessing).
		Update("payout_status", model.PayoutStatusFailed).Error
}

func (r *purchaseRepository) SetDB(db *gorm.DB) {
	r.db = db
}
