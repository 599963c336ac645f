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
	"gorm.io/gorm"
)

// PayoutLease is how long a processing claim blocks other triggers before it is
// considered abandoned.
const PayoutLease = 5 * time.Minute

// PayoutResult is returned even when the trigger fails so callers can show the step log.
type PayoutResult struct {
	Success    bool
	TransferID string
	Amount     decimal.Decimal
	Logs       []string
}

func (r *PayoutResult) logf(format string, args ...any) {
	r.Logs = append(r.Logs, fmt.Sprintf(format, args...))
}

type PayoutService interface {
	Trigger(ctx context.Context, purchaseID string) (*PayoutResult, error)
	Balance(ctx context.Context) (*payment.Balance, error)
}

type payoutService struct {
	tx        repository.Transactor
	purchases repository.PurchaseRepository
	payouts   repository.PayoutRepository
	users     repository.UserRepository
	gateway   payment.Gateway
	notify    NotificationService
	currency  string
	now       func() time.Time
}

func NewPayoutService(tx repository.Transactor, purchases repository.PurchaseRepository, payouts repository.PayoutRepository, users repository.UserRepository, gateway payment.Gateway, notify NotificationService, currency string) PayoutService {
	return &payoutService{
		tx:        tx,
		purchases: purchases,
		payouts:   payouts,
		users:     users,
		gateway:   gateway,
		notify:    notify,
		currency:  currency,
		now:       time.Now,
	}
}

func (s *payoutService) Trigger(ctx context.Context, purchaseID string) (*PayoutResult, error) {
	res := &PayoutResult{}
	if purchaseID == "" {
		return res, fmt.Errorf("%w: purchaseId is required", ErrInvalidInput)
	}
	ctx = logctx.WithPurchaseID(ctx, purchaseID)
	log := obs.FromContext(ctx).With("stage", "payout")

	p, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			res.logf("Purchase %s not found", purchaseID)
			return res, ErrNotFound
		}
		return res, err
	}
	res.logf("Purchase found: order %s, total %s, funds_status %s", p.OrderNumber, p.TotalAmount.StringFixed(2), p.FundsStatus)

	if p.HasTransfer() {
		res.logf("Already paid out with transfer %s", *p.StripeTransferID)
		return res, ErrAlreadyPaidOut
	}
	if !p.FundsStatus.Releasable() {
		res.logf("Funds are not releasable yet")
		return res, &FundsStatusError{Status: p.FundsStatus}
	}

	seller, err := s.users.FindByID(ctx, p.SellerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return res, err
	}
	accountID := seller.ConnectAccountID()
	if accountID == "" {
		res.logf("Seller %s has no connected account", p.SellerID)
		return res, ErrNoConnectAccount
	}
	res.logf("Seller account: %s", accountID)

	amount := pricing.SellerPayout(p.TotalAmount)
	if p.SellerPayoutAmount.Valid {
		amount = p.SellerPayoutAmount.Decimal
	}
	minor := pricing.ToMinorUnits(amount)
	if minor <= 0 {
		res.logf("Payout amount %s is not positive", amount.StringFixed(2))
		return res, fmt.Errorf("%w: payout amount must be positive", ErrInvalidInput)
	}
	res.Amount = amount
	res.logf("Payout amount: %s (%d minor units)", amount.StringFixed(2), minor)

	claimed, err := s.purchases.ClaimPayout(ctx, p.ID, s.now().UTC().Add(-PayoutLease))
	if err != nil {
		return res, err
	}
	if claimed == 0 {
		res.logf("Another payout for this purchase is in progress")
		return res, ErrPayoutInProgress
	}

	// Status writes after the claim must land even if the caller goes away.
	persist := context.WithoutCancel(ctx)

	tr, err := s.gateway.CreateTransfer(ctx, payment.TransferInput{
		Amount:         minor,
		Destination:    accountID,
		TransferGroup:  p.OrderNumber,
		Description:    "Payout for order " + p.OrderNumber,
		IdempotencyKey: "payout-" + p.ID,
		Metadata:       map[string]string{"purchase_id": p.ID, "seller_id": p.SellerID},
	})
	if err != nil {
		res.logf("Transfer failed: %v", err)
		log.Error("transfer_failed", "account_id", accountID, "err", err)
		if ferr := s.purchases.FailPayout(persist, p.ID); ferr != nil {
			log.Warn("payout_status_reset_failed", "err", ferr)
		}
		return res, err
	}
	res.TransferID = tr.ID
	res.logf("Transfer created: %s", tr.ID)
	log.Info("transfer_created", "transfer_id", tr.ID, "account_id", accountID, "amount", minor)

	now := s.now().UTC()
	err = s.tx.WithinTx(persist, func(ctx context.Context) error {
		n, err := s.purchases.CompletePayout(ctx, p.ID, tr.ID, amount, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: purchase already has a transfer", ErrConflict)
		}
		return s.payouts.Create(ctx, &model.SellerPayout{
			SellerID:         p.SellerID,
			PurchaseID:       p.ID,
			StripeTransferID: tr.ID,
			StripeAccountID:  accountID,
			GrossAmount:      p.TotalAmount,
			PlatformFee:      p.TotalAmount.Sub(amount),
			NetAmount:        amount,
			Currency:         s.currency,
			Status:           string(model.PayoutStatusPaid),
			CompletedAt:      now,
		})
	})
	if err != nil {
		// The transfer exists; a retry reuses it through the idempotency key.
		res.logf("Recording payout failed: %v", err)
		log.Error("payout_record_failed", "transfer_id", tr.ID, "err", err)
		if ferr := s.purchases.FailPayout(persist, p.ID); ferr != nil {
			log.Warn("payout_status_reset_failed", "err", ferr)
		}
		return res, err
	}
	res.logf("Purchase updated and payout recorded")
	res.Success = true

	s.notify.Notify(ctx, p.SellerID, NotifyPayoutSent, "Payout sent",
		fmt.Sprintf("%s %s is on its way for order %s.", amount.StringFixed(2), s.currency, p.OrderNumber),
		NotificationRef{ProductID: p.ProductID, PurchaseID: p.ID})
	return res, nil
}

func (s *payoutService) Balance(ctx context.Context) (*payment.Balance, error) {
	b, err := s.gateway.GetBalance(ctx)
	if err != nil {
		obs.FromContext(ctx).Error("balance_failed", "err", err)
		return nil, err
	}
	return b, nil
}
