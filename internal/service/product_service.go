package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validConditions = map[string]bool{"new": true, "like_new": true, "good": true, "fair": true}

type ProductInput struct {
	Title        string
	Brand        string
	Model        string
	Category     string
	Condition    string
	Description  string
	Price        decimal.Decimal
	ShippingCost decimal.Decimal
	Draft        bool
}

type ProductService interface {
	Create(ctx context.Context, sellerID string, in ProductInput) (*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, limit, offset int) ([]model.Product, int64, error)
}

type productService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

func (s *productService) Create(ctx context.Context, sellerID string, in ProductInput) (*model.Product, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Condition = strings.ToLower(strings.TrimSpace(in.Condition))
	if sellerID == "" {
		return nil, fmt.Errorf("%w: seller is required", ErrInvalidInput)
	}
	if in.Title == "" || len(in.Title) > 160 {
		return nil, fmt.Errorf("%w: invalid title", ErrInvalidInput)
	}
	if !in.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	}
	if in.ShippingCost.IsNegative() {
		return nil, fmt.Errorf("%w: shipping cost cannot be negative", ErrInvalidInput)
	}
	if in.Condition != "" && !validConditions[in.Condition] {
		return nil, fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, in.Condition)
	}
	status := model.ListingStatusActive
	if in.Draft {
		status = model.ListingStatusDraft
	}
	p := &model.Product{
		SellerID:      sellerID,
		Title:         in.Title,
		Brand:         strings.TrimSpace(in.Brand),
		Model:         strings.TrimSpace(in.Model),
		Category:      strings.TrimSpace(in.Category),
		Condition:     in.Condition,
		Description:   strings.TrimSpace(in.Description),
		Price:         in.Price.Round(2),
		ShippingCost:  in.ShippingCost.Round(2),
		IsActive:      !in.Draft,
		ListingStatus: status,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *productService) List(ctx context.Context, limit, offset int) ([]model.Product, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
