package repository

import (
	"context"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, limit, offset int) ([]model.Product, int64, error)
	MarkSoldIfUnsold(ctx context.Context, id string) (int64, error)
	MarkPending(ctx context.Context, id string) (int64, error)
	SetDB(db *gorm.DB)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Create(p).Error
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var p model.Product
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns active listings, newest first.
func (r *productRepository) List(ctx context.Context, limit, offset int) ([]model.Product, int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}
	var (
		products []model.Product
		total    int64
	)
	q := db.Model(&model.Product{}).Where("is_active = ? AND sold_at IS NULL", true)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// MarkSoldIfUnsold flips the listing to sold only while sold_at is still null.
// A zero row count means another purchase won the race.
func (r *productRepository) MarkSoldIfUnsold(ctx context.Context, id string) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.Product{}).
		Where("id = ? AND sold_at IS NULL", id).
		Updates(map[string]interface{}{
			"is_active":      false,
			"listing_status": model.ListingStatusSold,
			"sold_at":        db.NowFunc(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *productRepository) MarkPending(ctx context.Context, id string) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.Product{}).
		Where("id = ? AND sold_at IS NULL", id).
		Update("listing_status", model.ListingStatusPending)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *productRepository) SetDB(db *gorm.DB) {
	r.db = db
}
