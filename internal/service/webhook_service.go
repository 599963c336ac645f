package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/logctx"
	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/pricing"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const providerStripe = "stripe"

// errMalformedEvent marks deliveries that can never succeed; they are acknowledged, not retried.
var errMalformedEvent = errors.New("malformed event")

var errDuplicateSession = errors.New("duplicate checkout session")

// OrderNumberer issues human-readable order numbers.
type OrderNumberer interface {
	Next() string
}

type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type webhookService struct {
	gateway   payment.Gateway
	tx        repository.Transactor
	events    repository.WebhookEventRepository
	purchases repository.PurchaseRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	vouchers  repository.VoucherRepository
	notify    NotificationService
	orders    OrderNumberer
	now       func() time.Time
}

type WebhookDeps struct {
	Gateway   payment.Gateway
	Tx        repository.Transactor
	Events    repository.WebhookEventRepository
	Purchases repository.PurchaseRepository
	Products  repository.ProductRepository
	Users     repository.UserRepository
	Vouchers  repository.VoucherRepository
	Notify    NotificationService
	Orders    OrderNumberer
}

func NewWebhookService(d WebhookDeps) WebhookService {
	return &webhookService{
		gateway:   d.Gateway,
		tx:        d.Tx,
		events:    d.Events,
		purchases: d.Purchases,
		products:  d.Products,
		users:     d.Users,
		vouchers:  d.Vouchers,
		notify:    d.Notify,
		orders:    d.Orders,
		now:       time.Now,
	}
}

// Handle verifies and processes one delivery. A returned error other than a signature
// failure makes the platform redeliver, which is safe because purchase creation is keyed
// on the checkout session id.
func (s *webhookService) Handle(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		obs.FromContext(ctx).Warn("webhook_signature_invalid", "err", err)
		return err
	}
	log := obs.FromContext(ctx).With("event_id", ev.ID, "event_type", ev.Type)

	if _, err := s.events.Record(ctx, &model.WebhookEvent{
		Provider:        providerStripe,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		Payload:         datatypes.JSON(payload),
		SignatureValid:  true,
	}); err != nil {
		log.Warn("webhook_archive_failed", "err", err)
	}

	var procErr error
	switch ev.Type {
	case payment.EventCheckoutCompleted:
		procErr = s.checkoutCompleted(ctx, ev.CheckoutCompleted)
	case payment.EventAccountUpdated:
		procErr = s.accountUpdated(ctx, ev.Account)
	default:
		log.Info("webhook_ignored")
	}

	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := s.events.MarkProcessed(ctx, providerStripe, ev.ID, msg); err != nil {
		log.Warn("webhook_mark_processed_failed", "err", err)
	}
	if errors.Is(procErr, errMalformedEvent) {
		log.Error("webhook_malformed", "err", procErr)
		return nil
	}
	if procErr != nil {
		log.Error("webhook_failed", "err", procErr)
	}
	return procErr
}

type checkoutMeta struct {
	productID, buyerID, sellerID string
	deliveryMethod               string
	voucherID                    string
	itemPrice, deliveryCost      decimal.Decimal
	buyerFee, discount, total    decimal.Decimal
}

func parseCheckoutMeta(cs *payment.CompletedSession) (*checkoutMeta, error) {
	md := cs.Metadata
	m := &checkoutMeta{
		productID:      md[metaProductID],
		buyerID:        md[metaBuyerID],
		sellerID:       md[metaSellerID],
		deliveryMethod: md[metaDeliveryMethod],
		voucherID:      md[metaVoucherID],
	}
	if m.productID == "" || m.buyerID == "" || m.sellerID == "" {
		return nil, fmt.Errorf("%w: session %s is missing product/buyer/seller metadata", errMalformedEvent, cs.ID)
	}
	var err error
	amount := func(key string) decimal.Decimal {
		v, perr := decimal.NewFromString(md[key])
		if perr != nil && err == nil && md[key] != "" {
			err = fmt.Errorf("%w: %s=%q", errMalformedEvent, key, md[key])
		}
		return v
	}
	m.itemPrice = amount(metaItemPrice)
	m.deliveryCost = amount(metaDeliveryCost)
	m.buyerFee = amount(metaBuyerFee)
	m.discount = amount(metaDiscountAmount)
	m.total = amount(metaTotalAmount)
	if err != nil {
		return nil, err
	}
	if md[metaTotalAmount] == "" {
		m.total = pricing.FromMinorUnits(cs.AmountTotal)
	}
	return m, nil
}

func (s *webhookService) checkoutCompleted(ctx context.Context, cs *payment.CompletedSession) error {
	if cs == nil || cs.ID == "" {
		return fmt.Errorf("%w: checkout session missing", errMalformedEvent)
	}
	log := obs.FromContext(ctx).With("stage", "checkout_completed", "session_id", cs.ID)

	if existing, err := s.purchases.FindBySessionID(ctx, cs.ID); err == nil {
		log.Info("purchase_exists", "purchase_id", existing.ID)
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("idempotency lookup: %w", err)
	}

	meta, err := parseCheckoutMeta(cs)
	if err != nil {
		return err
	}

	product, err := s.products.FindByID(ctx, meta.productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load product: %w", err)
	}
	if product != nil && product.IsSold() {
		// Payment already captured; the purchase is still recorded so it can be refunded.
		log.Error("product_already_sold", "product_id", meta.productID)
	}

	now := s.now().UTC()
	payout := pricing.SellerPayout(meta.total)
	p := &model.Purchase{
		OrderNumber:           s.orders.Next(),
		BuyerID:               meta.buyerID,
		SellerID:              meta.sellerID,
		ProductID:             meta.productID,
		DeliveryMethod:        meta.deliveryMethod,
		ItemPrice:             meta.itemPrice,
		DeliveryCost:          meta.deliveryCost,
		BuyerFee:              meta.buyerFee,
		DiscountAmount:        meta.discount,
		TotalAmount:           meta.total,
		PlatformFee:           meta.total.Sub(payout),
		SellerPayoutAmount:    decimal.NewNullDecimal(payout),
		StripeSessionID:       cs.ID,
		StripePaymentIntentID: cs.PaymentIntentID,
		PaymentStatus:         model.PaymentStatusPaid,
		FundsStatus:           model.FundsStatusHeld,
		FundsReleaseAt:        now.Add(model.EscrowHold),
		PayoutStatus:          model.PayoutStatusPending,
		CreatedAt:             now,
	}
	if meta.voucherID != "" {
		p.VoucherID = &meta.voucherID
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.purchases.Create(ctx, p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateSession
			}
			return fmt.Errorf("insert purchase: %w", err)
		}
		n, err := s.products.MarkSoldIfUnsold(ctx, meta.productID)
		if err != nil {
			return fmt.Errorf("mark product sold: %w", err)
		}
		if n == 0 {
			log.Error("mark_sold_conflict", "product_id", meta.productID, "purchase_id", p.ID)
		}
		return nil
	})
	if errors.Is(err, errDuplicateSession) {
		log.Info("purchase_exists_concurrent")
		return nil
	}
	if err != nil {
		return err
	}
	ctx = logctx.WithPurchaseID(ctx, p.ID)
	log.Info("purchase_created", "purchase_id", p.ID, "order_number", p.OrderNumber, "funds_release_at", p.FundsReleaseAt)

	if p.VoucherID != nil {
		if n, err := s.vouchers.MarkUsed(ctx, *p.VoucherID, p.ID, now); err != nil || n == 0 {
			log.Warn("voucher_mark_used_failed", "voucher_id", *p.VoucherID, "rows", n, "err", err)
		}
	}
	title := "your bike"
	if product != nil {
		title = product.Title
	}
	ref := NotificationRef{ProductID: p.ProductID, PurchaseID: p.ID}
	s.notify.Notify(ctx, p.BuyerID, NotifyPurchaseCompleted, "Purchase confirmed",
		fmt.Sprintf("Order %s for %s is confirmed.", p.OrderNumber, title), ref)
	s.notify.Notify(ctx, p.SellerID, NotifyItemSold, "You made a sale",
		fmt.Sprintf("%s sold. Funds are held until %s.", title, p.FundsReleaseAt.Format("2 Jan 2006")), ref)
	return nil
}

func (s *webhookService) accountUpdated(ctx context.Context, a *payment.ConnectAccount) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: account missing", errMalformedEvent)
	}
	f := connectFields(a)
	n, err := s.users.UpdateConnectByAccount(ctx, a.ID, f)
	if err != nil {
		return fmt.Errorf("update connect status: %w", err)
	}
	log := obs.FromContext(ctx).With("stage", "account_updated", "account_id", a.ID)
	if n == 0 {
		log.Warn("connect_account_unknown")
		return nil
	}
	log.Info("connect_status_updated", "status", f.Status)
	return nil
}
