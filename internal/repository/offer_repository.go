package repository

import (
	"context"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type OfferRepository interface {
	Create(ctx context.Context, o *model.Offer) error
	FindByID(ctx context.Context, id string) (*model.Offer, error)
	CountOpen(ctx context.Context, buyerID, productID string) (int64, error)
	FindAccepted(ctx context.Context, buyerID, productID string) (*model.Offer, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]model.Offer, error)
	ListByProduct(ctx context.Context, productID string) ([]model.Offer, error)
	Transition(ctx context.Context, id string, to model.OfferStatus, fields map[string]interface{}) (int64, error)
	RejectOthers(ctx context.Context, productID, exceptID string) (int64, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	SetDB(db *gorm.DB)
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, o *model.Offer) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Create(o).Error
}

func (r *offerRepository) FindByID(ctx context.Context, id string) (*model.Offer, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var o model.Offer
	if err := db.Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *offerRepository) CountOpen(ctx context.Context, buyerID, productID string) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	var cnt int64
	if err := db.Model(&model.Offer{}).
		Where("buyer_id = ? AND product_id = ? AND status IN ?", buyerID, productID, model.OpenOfferStatuses).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

// FindAccepted returns the buyer's accepted offer on the product, or nil when there is none.
func (r *offerRepository) FindAccepted(ctx context.Context, buyerID, productID string) (*model.Offer, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Offer
	if err := db.Where("buyer_id = ? AND product_id = ? AND status = ?", buyerID, productID, model.OfferStatusAccepted).
		Order("responded_at DESC").
		Limit(1).
		Find(&list).Error; err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *offerRepository) ListByBuyer(ctx context.Context, buyerID string) ([]model.Offer, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Offer
	if err := db.Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) ListByProduct(ctx context.Context, productID string) ([]model.Offer, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Offer
	if err := db.Where("product_id = ?", productID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Transition moves an open offer to status to. Offers already in a terminal state are left alone.
func (r *offerRepository) Transition(ctx context.Context, id string, to model.OfferStatus, fields map[string]interface{}) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := db.Model(&model.Offer{}).
		Where("id = ? AND status IN ?", id, model.OpenOfferStatuses).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *offerRepository) RejectOthers(ctx context.Context, productID, exceptID string) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.Offer{}).
		Where("product_id = ? AND id <> ? AND status IN ?", productID, exceptID, model.OpenOfferStatuses).
		Updates(map[string]interface{}{
			"status":       model.OfferStatusRejected,
			"responded_at": db.NowFunc(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *offerRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.Offer{}).
		Where("status IN ? AND expires_at < ?", model.OpenOfferStatuses, now).
		Update("status", model.OfferStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *offerRepository) SetDB(db *gorm.DB) {
	r.db = db
}
