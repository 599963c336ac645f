package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/logctx"
	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"gorm.io/gorm"
)

const releaseBatchSize = 200

// PayoutEnqueuer schedules a payout for a purchase whose funds were just released.
type PayoutEnqueuer interface {
	EnqueuePayout(ctx context.Context, purchaseID string) error
}

type SweepResult struct {
	Released []string
	Enqueued int
}

type EscrowService interface {
	ReleaseDue(ctx context.Context) (*SweepResult, error)
	ConfirmReceipt(ctx context.Context, buyerID, purchaseID string) (*model.Purchase, error)
}

type escrowService struct {
	purchases repository.PurchaseRepository
	notify    NotificationService
	payouts   PayoutEnqueuer
	now       func() time.Time
}

// NewEscrowService returns the release sweep. payouts may be nil to leave payouts manual.
func NewEscrowService(purchases repository.PurchaseRepository, notify NotificationService, payouts PayoutEnqueuer) EscrowService {
	return &escrowService{purchases: purchases, notify: notify, payouts: payouts, now: time.Now}
}

// ReleaseDue flips held purchases past their release time to auto_released.
// Each row is released with its own conditional update, so concurrent sweeps release a row once.
func (s *escrowService) ReleaseDue(ctx context.Context) (*SweepResult, error) {
	log := obs.FromContext(ctx).With("stage", "escrow_sweep")
	now := s.now().UTC()
	res := &SweepResult{}
	for {
		due, err := s.purchases.ListDueForRelease(ctx, now, releaseBatchSize)
		if err != nil {
			return res, err
		}
		released := 0
		for i := range due {
			p := &due[i]
			n, err := s.purchases.ReleaseIfHeld(ctx, p.ID, model.FundsStatusAutoReleased, now)
			if err != nil {
				log.Error("release_failed", "purchase_id", p.ID, "err", err)
				continue
			}
			if n == 0 {
				continue
			}
			released++
			res.Released = append(res.Released, p.ID)
			s.afterRelease(logctx.WithPurchaseID(ctx, p.ID), p, res)
		}
		if len(due) < releaseBatchSize || released == 0 {
			break
		}
	}
	if len(res.Released) > 0 {
		log.Info("escrow_released", "count", len(res.Released), "payouts_enqueued", res.Enqueued)
	}
	return res, nil
}

func (s *escrowService) afterRelease(ctx context.Context, p *model.Purchase, res *SweepResult) {
	s.notify.Notify(ctx, p.SellerID, NotifyFundsReleased, "Funds released",
		fmt.Sprintf("Funds for order %s have been released.", p.OrderNumber),
		NotificationRef{ProductID: p.ProductID, PurchaseID: p.ID})
	if s.payouts == nil {
		return
	}
	if err := s.payouts.EnqueuePayout(ctx, p.ID); err != nil {
		obs.FromContext(ctx).Warn("payout_enqueue_failed", "err", err)
		return
	}
	res.Enqueued++
}

// ConfirmReceipt lets the buyer release funds before the escrow window ends.
func (s *escrowService) ConfirmReceipt(ctx context.Context, buyerID, purchaseID string) (*model.Purchase, error) {
	p, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	switch p.FundsStatus {
	case model.FundsStatusHeld:
	case model.FundsStatusReleased, model.FundsStatusAutoReleased:
		return p, nil
	default:
		return nil, fmt.Errorf("%w: funds are %s", ErrConflict, p.FundsStatus)
	}
	now := s.now().UTC()
	n, err := s.purchases.ReleaseIfHeld(ctx, p.ID, model.FundsStatusReleased, now)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return s.purchases.FindByID(ctx, p.ID)
	}
	p.FundsStatus = model.FundsStatusReleased
	p.FundsReleasedAt = &now
	s.afterRelease(logctx.WithPurchaseID(ctx, p.ID), p, &SweepResult{})
	return p, nil
}
