package service

import (
	"context"
	"errors"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"gorm.io/gorm"
)

type PurchaseService interface {
	Get(ctx context.Context, uid, purchaseID string) (*PurchaseWithProduct, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]PurchaseWithProduct, error)
	ListBySeller(ctx context.Context, sellerID string) ([]PurchaseWithProduct, error)
}

type purchaseService struct {
	purchaseRepo repository.PurchaseRepository
	productRepo  repository.ProductRepository
}

type PurchaseWithProduct struct {
	Purchase model.Purchase
	Product  *model.Product
}

func NewPurchaseService(purchaseRepo repository.PurchaseRepository, productRepo repository.ProductRepository) PurchaseService {
	return &purchaseService{purchaseRepo: purchaseRepo, productRepo: productRepo}
}

// Get returns the purchase only to its buyer or seller.
func (s *purchaseService) Get(ctx context.Context, uid, purchaseID string) (*PurchaseWithProduct, error) {
	p, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if uid == "" || (uid != p.BuyerID && uid != p.SellerID) {
		return nil, ErrForbidden
	}
	product, _ := s.productRepo.FindByID(ctx, p.ProductID)
	return &PurchaseWithProduct{Purchase: *p, Product: product}, nil
}

func (s *purchaseService) ListByBuyer(ctx context.Context, buyerID string) ([]PurchaseWithProduct, error) {
	if buyerID == "" {
		return nil, ErrForbidden
	}
	purchases, err := s.purchaseRepo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return s.withProducts(ctx, purchases), nil
}

func (s *purchaseService) ListBySeller(ctx context.Context, sellerID string) ([]PurchaseWithProduct, error) {
	if sellerID == "" {
		return nil, ErrForbidden
	}
	purchases, err := s.purchaseRepo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return s.withProducts(ctx, purchases), nil
}

func (s *purchaseService) withProducts(ctx context.Context, purchases []model.Purchase) []PurchaseWithProduct {
	resp := make([]PurchaseWithProduct, 0, len(purchases))
	for _, p := range purchases {
		product, _ := s.productRepo.FindByID(ctx, p.ProductID)
		resp = append(resp, PurchaseWithProduct{
			Purchase: p,
			Product:  product,
		})
	}
	return resp
}
