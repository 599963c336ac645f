package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxOfferMessageLen = 500

type OfferService interface {
	Create(ctx context.Context, buyerID, productID string, amount decimal.Decimal, message string) (*model.Offer, error)
	Accept(ctx context.Context, sellerID, offerID string) (*model.Offer, error)
	Reject(ctx context.Context, sellerID, offerID string) (*model.Offer, error)
	Counter(ctx context.Context, sellerID, offerID string, amount decimal.Decimal) (*model.Offer, error)
	Cancel(ctx context.Context, buyerID, offerID string) (*model.Offer, error)
	AcceptCounter(ctx context.Context, buyerID, offerID string) (*model.Offer, error)
	Revise(ctx context.Context, buyerID, offerID string, amount decimal.Decimal) (*model.Offer, error)
	ListMine(ctx context.Context, buyerID string) ([]model.Offer, error)
	ListForProduct(ctx context.Context, sellerID, productID string) ([]model.Offer, error)
	ExpireStale(ctx context.Context) (int64, error)
}

type offerService struct {
	tx       repository.Transactor
	offers   repository.OfferRepository
	products repository.ProductRepository
	notify   NotificationService
	now      func() time.Time
}

func NewOfferService(tx repository.Transactor, offers repository.OfferRepository, products repository.ProductRepository, notify NotificationService) OfferService {
	return &offerService{tx: tx, offers: offers, products: products, notify: notify, now: time.Now}
}

func (s *offerService) Create(ctx context.Context, buyerID, productID string, amount decimal.Decimal, message string) (*model.Offer, error) {
	message = strings.TrimSpace(message)
	if len(message) > maxOfferMessageLen {
		return nil, fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if product.SellerID == buyerID {
		return nil, ErrSelfPurchase
	}
	if product.IsSold() {
		return nil, ErrProductSold
	}
	if !product.IsActive || product.ListingStatus != model.ListingStatusActive {
		return nil, ErrProductInactive
	}
	if !amount.IsPositive() || !amount.LessThan(product.Price) {
		return nil, ErrInvalidOfferAmount
	}
	open, err := s.offers.CountOpen(ctx, buyerID, productID)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, ErrOpenOfferExists
	}

	now := s.now().UTC()
	o := &model.Offer{
		ProductID:     product.ID,
		BuyerID:       buyerID,
		SellerID:      product.SellerID,
		OriginalPrice: product.Price,
		OfferAmount:   amount.Round(2),
		Message:       message,
		Status:        model.OfferStatusPending,
		ExpiresAt:     now.Add(model.OfferWindow),
		CreatedAt:     now,
	}
	if err := s.offers.Create(ctx, o); err != nil {
		return nil, err
	}
	obs.FromContext(ctx).Info("offer_created", "offer_id", o.ID, "product_id", o.ProductID, "amount", o.OfferAmount.StringFixed(2))
	s.notify.Notify(ctx, o.SellerID, NotifyOfferReceived, "New offer",
		fmt.Sprintf("You received an offer of %s on %s.", o.OfferAmount.StringFixed(2), product.Title),
		NotificationRef{ProductID: o.ProductID, OfferID: o.ID})
	return o, nil
}

// sellerOffer loads an offer the seller may still act on.
func (s *offerService) sellerOffer(ctx context.Context, sellerID, offerID string) (*model.Offer, error) {
	o, err := s.load(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.SellerID != sellerID {
		return nil, ErrForbidden
	}
	if !o.Status.Open() {
		return nil, ErrInvalidOfferState
	}
	if o.Expired(s.now()) {
		if _, err := s.offers.Transition(ctx, o.ID, model.OfferStatusExpired, nil); err != nil {
			obs.FromContext(ctx).Warn("offer_expire_failed", "offer_id", o.ID, "err", err)
		}
		return nil, ErrOfferExpired
	}
	return o, nil
}

func (s *offerService) load(ctx context.Context, offerID string) (*model.Offer, error) {
	o, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// Accept marks the offer accepted, reserves the product and rejects every other open
// offer on it in one transaction.
func (s *offerService) Accept(ctx context.Context, sellerID, offerID string) (*model.Offer, error) {
	o, err := s.sellerOffer(ctx, sellerID, offerID)
	if err != nil {
		return nil, err
	}
	if err := s.accept(ctx, o); err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, o.BuyerID, NotifyOfferAccepted, "Offer accepted",
		fmt.Sprintf("Your offer of %s was accepted. Complete checkout to buy it.", o.AgreedPrice().StringFixed(2)),
		NotificationRef{ProductID: o.ProductID, OfferID: o.ID})
	return o, nil
}

func (s *offerService) accept(ctx context.Context, o *model.Offer) error {
	now := s.now().UTC()
	var rejected int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.offers.Transition(ctx, o.ID, model.OfferStatusAccepted, map[string]interface{}{"responded_at": now})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInvalidOfferState
		}
		n, err = s.products.MarkPending(ctx, o.ProductID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrProductSold
		}
		rejected, err = s.offers.RejectOthers(ctx, o.ProductID, o.ID)
		return err
	})
	if err != nil {
		return err
	}
	o.Status = model.OfferStatusAccepted
	o.RespondedAt = &now
	obs.FromContext(ctx).Info("offer_accepted", "offer_id", o.ID, "product_id", o.ProductID, "rejected_others", rejected)
	return nil
}

// counteredOffer loads a countered offer the buyer may still answer.
func (s *offerService) counteredOffer(ctx context.Context, buyerID, offerID string) (*model.Offer, error) {
	o, err := s.load(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	if o.Status != model.OfferStatusCountered {
		return nil, ErrInvalidOfferState
	}
	if o.Expired(s.now()) {
		if _, err := s.offers.Transition(ctx, o.ID, model.OfferStatusExpired, nil); err != nil {
			obs.FromContext(ctx).Warn("offer_expire_failed", "offer_id", o.ID, "err", err)
		}
		return nil, ErrOfferExpired
	}
	return o, nil
}

// AcceptCounter lets the buyer take the seller's counter price.
func (s *offerService) AcceptCounter(ctx context.Context, buyerID, offerID string) (*model.Offer, error) {
	o, err := s.counteredOffer(ctx, buyerID, offerID)
	if err != nil {
		return nil, err
	}
	if err := s.accept(ctx, o); err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, o.SellerID, NotifyOfferAccepted, "Counter offer accepted",
		fmt.Sprintf("The buyer accepted your counter of %s.", o.AgreedPrice().StringFixed(2)),
		NotificationRef{ProductID: o.ProductID, OfferID: o.ID})
	return o, nil
}

// Revise answers a counter with a new buyer amount and puts the offer back to pending.
func (s *offerService) Revise(ctx context.Context, buyerID, offerID string, amount decimal.Decimal) (*model.Offer, error) {
	o, err := s.counteredOffer(ctx, buyerID, offerID)
	if err != nil {
		return nil, err
	}
	revised := amount.Round(2)
	if !revised.IsPositive() || !revised.LessThan(o.OriginalPrice) {
		return nil, ErrInvalidOfferAmount
	}
	n, err := s.offers.Transition(ctx, o.ID, model.OfferStatusPending, map[string]interface{}{
		"offer_amount":   revised,
		"counter_amount": nil,
		"responded_at":   nil,
	})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrInvalidOfferState
	}
	o.Status = model.OfferStatusPending
	o.OfferAmount = revised
	o.CounterAmount = decimal.NullDecimal{}
	o.RespondedAt = nil
	s.notify.Notify(ctx, o.SellerID, NotifyOfferReceived, "Revised offer",
		fmt.Sprintf("The buyer answered your counter with %s.", revised.StringFixed(2)),
		NotificationRef{ProductID: o.ProductID, OfferID: o.ID})
	return o, nil
}

func (s *offerService) Reject(ctx context.Context, sellerID, offerID string) (*model.Offer, error) {
	o, err := s.sellerOffer(ctx, sellerID, offerID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	n, err := s.offers.Transition(ctx, o.ID, model.OfferStatusRejected, map[string]interface{}{"responded_at": now})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrInvalidOfferState
	}
	o.Status = model.OfferStatusRejected
	o.RespondedAt = &now
	s.notify.Notify(ctx, o.BuyerID, NotifyOfferRejected, "Offer declined",
		"The seller declined your offer.", NotificationRef{ProductID: o.ProductID, OfferID: o.ID})
	return o, nil
}

func (s *offerService) Counter(ctx context.Context, sellerID, offerID string, amount decimal.Decimal) (*model.Offer, error) {
	o, err := s.sellerOffer(ctx, sellerID, offerID)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() || !amount.LessThan(o.OriginalPrice) {
		return nil, ErrInvalidOfferAmount
	}
	now := s.now().UTC()
	counter := amount.Round(2)
	n, err := s.offers.Transition(ctx, o.ID, model.OfferStatusCountered, map[string]interface{}{
		"counter_amount": counter,
		"responded_at":   now,
	})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrInvalidOfferState
	}
	o.Status = model.OfferStatusCountered
	o.CounterAmount = decimal.NewNullDecimal(counter)
	o.RespondedAt = &now
	s.notify.Notify(ctx, o.BuyerID, NotifyOfferCountered, "Counter offer",
		fmt.Sprintf("The seller countered with %s.", counter.StringFixed(2)),
		NotificationRef{ProductID: o.ProductID, OfferID: o.ID})
	return o, nil
}

func (s *offerService) Cancel(ctx context.Context, buyerID, offerID string) (*model.Offer, error) {
	o, err := s.load(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	if !o.Status.Open() {
		return nil, ErrInvalidOfferState
	}
	n, err := s.offers.Transition(ctx, o.ID, model.OfferStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrInvalidOfferState
	}
	o.Status = model.OfferStatusCancelled
	s.notify.Notify(ctx, o.SellerID, NotifyOfferCancelled, "Offer withdrawn",
		"A buyer withdrew their offer.", NotificationRef{ProductID: o.ProductID, OfferID: o.ID})
	return o, nil
}

func (s *offerService) ListMine(ctx context.Context, buyerID string) ([]model.Offer, error) {
	return s.offers.ListByBuyer(ctx, buyerID)
}

func (s *offerService) ListForProduct(ctx context.Context, sellerID, productID string) ([]model.Offer, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return s.offers.ListByProduct(ctx, productID)
}

func (s *offerService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.offers.ExpireStale(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		obs.FromContext(ctx).Info("offers_expired", "count", n)
	}
	return n, nil
}
