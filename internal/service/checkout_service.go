package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/pricing"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Metadata keys attached to the checkout session and read back by the webhook.
const (
	metaProductID      = "product_id"
	metaBuyerID        = "buyer_id"
	metaSellerID       = "seller_id"
	metaItemPrice      = "item_price"
	metaDeliveryMethod = "delivery_method"
	metaDeliveryCost   = "delivery_cost"
	metaBuyerFee       = "buyer_fee"
	metaDiscountAmount = "discount_amount"
	metaVoucherID      = "voucher_id"
	metaOfferID        = "offer_id"
	metaTotalAmount    = "total_amount"
)

type CheckoutRequest struct {
	ProductID      string
	DeliveryMethod string
	BuyerID        string
	BuyerEmail     string
}

type CheckoutResult struct {
	SessionID string
	URL       string
	Quote     pricing.Quote
	Voucher   *model.Voucher
}

type CheckoutService interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}

type checkoutService struct {
	products repository.ProductRepository
	offers   repository.OfferRepository
	vouchers repository.VoucherRepository
	gateway  payment.Gateway
	appURL   string
	now      func() time.Time
}

func NewCheckoutService(products repository.ProductRepository, offers repository.OfferRepository, vouchers repository.VoucherRepository, gateway payment.Gateway, appURL string) CheckoutService {
	return &checkoutService{
		products: products,
		offers:   offers,
		vouchers: vouchers,
		gateway:  gateway,
		appURL:   strings.TrimRight(appURL, "/"),
		now:      time.Now,
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	log := obs.FromContext(ctx).With("stage", "checkout", "product_id", req.ProductID)
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.DeliveryMethod = strings.TrimSpace(req.DeliveryMethod)
	if req.BuyerID == "" {
		return nil, fmt.Errorf("%w: buyer is required", ErrInvalidInput)
	}
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: productId is required", ErrInvalidInput)
	}
	if req.DeliveryMethod == "" {
		req.DeliveryMethod = pricing.DeliveryPickup
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if product.SellerID == req.BuyerID {
		return nil, ErrSelfPurchase
	}
	if product.IsSold() {
		return nil, ErrProductSold
	}

	offer, err := s.offers.FindAccepted(ctx, req.BuyerID, product.ID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}
	switch product.ListingStatus {
	case model.ListingStatusActive:
	case model.ListingStatusPending:
		// Reserved for whoever holds the accepted offer.
		if offer == nil {
			return nil, ErrProductInactive
		}
	default:
		return nil, ErrProductInactive
	}

	itemPrice := product.Price
	if offer != nil {
		itemPrice = offer.AgreedPrice()
	}
	deliveryFee, err := pricing.DeliveryFee(req.DeliveryMethod, product.ShippingCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	vouchers, err := s.vouchers.ListUsable(ctx, req.BuyerID, now)
	if err != nil {
		return nil, err
	}
	voucher := pricing.BestVoucher(vouchers, itemPrice)
	discount := decimal.Zero
	if voucher != nil {
		discount = voucher.DiscountAmount
	}
	quote := pricing.NewQuote(itemPrice, deliveryFee, discount)

	meta := map[string]string{
		metaProductID:      product.ID,
		metaBuyerID:        req.BuyerID,
		metaSellerID:       product.SellerID,
		metaItemPrice:      quote.ItemPrice.StringFixed(2),
		metaDeliveryMethod: req.DeliveryMethod,
		metaDeliveryCost:   quote.DeliveryFee.StringFixed(2),
		metaBuyerFee:       quote.BuyerFee.StringFixed(2),
		metaDiscountAmount: quote.Discount.StringFixed(2),
		metaTotalAmount:    quote.Total.StringFixed(2),
	}
	if voucher != nil && quote.Discount.IsPositive() {
		meta[metaVoucherID] = voucher.ID
	} else {
		voucher = nil
	}
	if offer != nil {
		meta[metaOfferID] = offer.ID
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutSessionInput{
		CustomerEmail:     req.BuyerEmail,
		ClientReferenceID: req.BuyerID,
		LineItems:         quote.LineItems(product.Title, req.DeliveryMethod),
		SuccessURL:        s.appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         s.appURL + "/products/" + url.PathEscape(product.ID),
		ExpiresAt:         now.Add(pricing.CheckoutExpiry),
		Metadata:          meta,
	})
	if err != nil {
		log.Error("session_create_failed", "err", err)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	log.Info("session_created", "session_id", session.ID, "total", quote.Total.StringFixed(2))

	return &CheckoutResult{
		SessionID: session.ID,
		URL:       session.URL,
		Quote:     quote,
		Voucher:   voucher,
	}, nil
}
