package repository

import (
	"context"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

// PayoutRepository is append-only: payout rows are never updated.
type PayoutRepository interface {
	Create(ctx context.Context, p *model.SellerPayout) error
	ListBySeller(ctx context.Context, sellerID string) ([]model.SellerPayout, error)
	SetDB(db *gorm.DB)
}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Create(ctx context.Context, p *model.SellerPayout) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Create(p).Error
}

func (r *payoutRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.SellerPayout, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.SellerPayout
	if err := db.Where("seller_id = ?", sellerID).
		Order("completed_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *payoutRepository) SetDB(db *gorm.DB) {
	r.db = db
}
