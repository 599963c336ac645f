package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/pedalmarket/marketplace-backend/internal/logctx"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/service"
)

type Processor struct {
	escrow  service.EscrowService
	offers  service.OfferService
	payouts service.PayoutService
}

func NewProcessor(escrow service.EscrowService, offers service.OfferService, payouts service.PayoutService) *Processor {
	return &Processor{escrow: escrow, offers: offers, payouts: payouts}
}

func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEscrowSweep, p.handleEscrowSweep)
	mux.HandleFunc(TypeOfferSweep, p.handleOfferSweep)
	mux.HandleFunc(TypePayout, p.handlePayout)
}

func (p *Processor) handleEscrowSweep(ctx context.Context, _ *asynq.Task) error {
	res, err := p.escrow.ReleaseDue(ctx)
	if err != nil {
		return fmt.Errorf("escrow sweep: %w", err)
	}
	obs.FromContext(ctx).Info("escrow_sweep_done", "released", len(res.Released), "payouts_enqueued", res.Enqueued)
	return nil
}

func (p *Processor) handleOfferSweep(ctx context.Context, _ *asynq.Task) error {
	if _, err := p.offers.ExpireStale(ctx); err != nil {
		return fmt.Errorf("offer sweep: %w", err)
	}
	return nil
}

func (p *Processor) handlePayout(ctx context.Context, t *asynq.Task) error {
	var payload PayoutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payout payload: %v: %w", err, asynq.SkipRetry)
	}
	ctx = logctx.WithPurchaseID(ctx, payload.PurchaseID)
	log := obs.FromContext(ctx).With("stage", "payout_task")

	res, err := p.payouts.Trigger(ctx, payload.PurchaseID)
	switch {
	case err == nil:
		log.Info("payout_task_done", "transfer_id", res.TransferID)
		return nil
	case errors.Is(err, service.ErrAlreadyPaidOut):
		log.Info("payout_task_already_paid")
		return nil
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrFundsNotReleasable),
		errors.Is(err, service.ErrNoConnectAccount):
		// Needs a person; the admin trigger can retry once it is fixed.
		log.Warn("payout_task_skipped", "err", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		log.Error("payout_task_failed", "err", err, "logs", res.Logs)
		return err
	}
}
