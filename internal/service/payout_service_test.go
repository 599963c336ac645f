package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/shopspring/decimal"
)

func releasedPurchase(id string) *model.Purchase {
	released := fixedNow.Add(-time.Hour)
	return &model.Purchase{
		ID:                 id,
		OrderNumber:        "PM-" + strings.ToUpper(id),
		BuyerID:            "buyer",
		SellerID:           "seller",
		ProductID:          "p1",
		TotalAmount:        dec("1020"),
		SellerPayoutAmount: decimal.NewNullDecimal(dec("989.4")),
		FundsStatus:        model.FundsStatusReleased,
		FundsReleasedAt:    &released,
		PayoutStatus:       model.PayoutStatusPending,
	}
}

func connectedSeller() *model.User {
	acct := "acct_seller"
	return &model.User{ID: "seller", StripeAccountID: &acct, StripeConnectStatus: model.ConnectStatusActive}
}

type payoutFixture struct {
	svc       *payoutService
	purchases *fakePurchases
	payouts   *fakePayouts
	gw        *fakeGateway
	notify    *fakeNotifier
}

func newPayoutFixture(p *model.Purchase, users ...*model.User) *payoutFixture {
	f := &payoutFixture{
		purchases: newFakePurchases(p),
		payouts:   &fakePayouts{},
		gw:        &fakeGateway{},
		notify:    &fakeNotifier{},
	}
	f.svc = NewPayoutService(&fakeTx{}, f.purchases, f.payouts, newFakeUsers(users...), f.gw, f.notify, "aud").(*payoutService)
	f.svc.now = clock
	return f
}

func TestPayoutTriggerSuccess(t *testing.T) {
	f := newPayoutFixture(releasedPurchase("pur1"), connectedSeller())

	res, err := f.svc.Trigger(context.Background(), "pur1")
	if err != nil {
		t.Fatalf("trigger: %v (logs %v)", err, res.Logs)
	}
	if !res.Success || res.TransferID != "tr_1" || !res.Amount.Equal(dec("989.4")) {
		t.Fatalf("result: %+v", res)
	}
	if len(f.gw.transfers) != 1 {
		t.Fatalf("transfers = %d", len(f.gw.transfers))
	}
	in := f.gw.transfers[0]
	if in.Amount != 98940 || in.Destination != "acct_seller" || in.IdempotencyKey != "payout-pur1" {
		t.Fatalf("transfer input: %+v", in)
	}
	p, _ := f.purchases.FindByID(context.Background(), "pur1")
	if p.PayoutStatus != model.PayoutStatusPaid || p.StripeTransferID == nil || *p.StripeTransferID != "tr_1" {
		t.Fatalf("purchase not completed: %+v", p)
	}
	if p.PaidOutAt == nil || !p.PaidOutAt.Equal(fixedNow) {
		t.Fatalf("paid_out_at = %v", p.PaidOutAt)
	}
	if len(f.payouts.rows) != 1 {
		t.Fatalf("payout rows = %d", len(f.payouts.rows))
	}
	row := f.payouts.rows[0]
	if !row.NetAmount.Equal(dec("989.4")) || !row.PlatformFee.Equal(dec("30.6")) || row.StripeTransferID != "tr_1" {
		t.Fatalf("payout row: %+v", row)
	}
	if !f.notify.has("seller", NotifyPayoutSent) {
		t.Fatalf("seller not notified")
	}
	if len(res.Logs) == 0 {
		t.Fatalf("expected step logs")
	}
}

func TestPayoutTriggerRejections(t *testing.T) {
	paid := releasedPurchase("paid")
	tr := "tr_existing"
	paid.StripeTransferID = &tr
	paid.PayoutStatus = model.PayoutStatusPaid

	held := releasedPurchase("held")
	held.FundsStatus = model.FundsStatusHeld

	refunded := releasedPurchase("refunded")
	refunded.FundsStatus = model.FundsStatusRefunded

	busy := releasedPurchase("busy")
	busy.PayoutStatus = model.PayoutStatusProcessing
	busy.UpdatedAt = fixedNow.Add(-time.Minute)

	tests := []struct {
		name    string
		p       *model.Purchase
		users   []*model.User
		id      string
		wantErr error
		wantMsg string
	}{
		{name: "already paid", p: paid, users: []*model.User{connectedSeller()}, id: "paid", wantErr: ErrAlreadyPaidOut},
		{name: "held", p: held, users: []*model.User{connectedSeller()}, id: "held", wantErr: ErrFundsNotReleasable, wantMsg: "funds not releasable: held"},
		{name: "refunded", p: refunded, users: []*model.User{connectedSeller()}, id: "refunded", wantErr: ErrFundsNotReleasable},
		{name: "no account", p: releasedPurchase("noacct"), users: []*model.User{{ID: "seller"}}, id: "noacct", wantErr: ErrNoConnectAccount},
		{name: "unknown seller", p: releasedPurchase("ghost"), id: "ghost", wantErr: ErrNoConnectAccount},
		{name: "in progress", p: busy, users: []*model.User{connectedSeller()}, id: "busy", wantErr: ErrPayoutInProgress},
		{name: "missing purchase", p: releasedPurchase("x"), id: "nope", wantErr: ErrNotFound},
		{name: "empty id", p: releasedPurchase("x"), id: "", wantErr: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPayoutFixture(tt.p, tt.users...)
			res, err := f.svc.Trigger(context.Background(), tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Fatalf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
			if res == nil || res.Success {
				t.Fatalf("result should be non-nil and unsuccessful: %+v", res)
			}
			if len(f.gw.transfers) != 0 {
				t.Fatalf("no transfer should be attempted")
			}
		})
	}
}

func TestPayoutTransferFailureResetsStatus(t *testing.T) {
	f := newPayoutFixture(releasedPurchase("pur1"), connectedSeller())
	platformErr := &payment.Error{Message: "Insufficient funds", Type: "invalid_request_error", Code: "balance_insufficient", HTTPStatus: 400}
	f.gw.transferErr = platformErr

	res, err := f.svc.Trigger(context.Background(), "pur1")
	var pe *payment.Error
	if !errors.As(err, &pe) || pe.Code != "balance_insufficient" {
		t.Fatalf("err = %v, want payment error", err)
	}
	if res.Success || res.TransferID != "" {
		t.Fatalf("result: %+v", res)
	}
	p, _ := f.purchases.FindByID(context.Background(), "pur1")
	if p.PayoutStatus != model.PayoutStatusFailed || p.StripeTransferID != nil {
		t.Fatalf("purchase should be retryable: %+v", p)
	}
	if len(f.payouts.rows) != 0 {
		t.Fatalf("no payout row on failure")
	}

	// Retry after the platform recovers reuses the same idempotency key.
	f.gw.transferErr = nil
	res, err = f.svc.Trigger(context.Background(), "pur1")
	if err != nil || !res.Success {
		t.Fatalf("retry: %v %+v", err, res)
	}
	if f.gw.transfers[0].IdempotencyKey != f.gw.transfers[1].IdempotencyKey {
		t.Fatalf("idempotency keys differ across retries")
	}
}

func TestPayoutCancelledTransferLeavesPurchaseRetryable(t *testing.T) {
	f := newPayoutFixture(releasedPurchase("pur1"), connectedSeller())
	ctx, cancel := context.WithCancel(context.Background())
	f.gw.onTransfer = cancel
	f.gw.transferErr = context.Canceled

	if _, err := f.svc.Trigger(ctx, "pur1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	p, _ := f.purchases.FindByID(context.Background(), "pur1")
	if p.PayoutStatus != model.PayoutStatusFailed {
		t.Fatalf("payout_status = %s, want failed", p.PayoutStatus)
	}

	f.gw.onTransfer = nil
	f.gw.transferErr = nil
	res, err := f.svc.Trigger(context.Background(), "pur1")
	if err != nil || !res.Success {
		t.Fatalf("retry: %v %+v", err, res)
	}
}

func TestPayoutRecordsTransferAfterCallerCancels(t *testing.T) {
	f := newPayoutFixture(releasedPurchase("pur1"), connectedSeller())
	ctx, cancel := context.WithCancel(context.Background())
	f.gw.onTransfer = cancel

	res, err := f.svc.Trigger(ctx, "pur1")
	if err != nil || !res.Success {
		t.Fatalf("trigger: %v %+v", err, res)
	}
	p, _ := f.purchases.FindByID(context.Background(), "pur1")
	if p.PayoutStatus != model.PayoutStatusPaid || p.StripeTransferID == nil {
		t.Fatalf("transfer not recorded: %+v", p)
	}
	if len(f.payouts.rows) != 1 {
		t.Fatalf("payout rows = %d", len(f.payouts.rows))
	}
}

func TestPayoutStaleClaimIsReclaimed(t *testing.T) {
	tests := []struct {
		name      string
		touched   time.Duration
		wantErr   error
		transfers int
	}{
		{name: "fresh claim blocks", touched: -time.Minute, wantErr: ErrPayoutInProgress},
		{name: "abandoned claim", touched: -PayoutLease - time.Minute, transfers: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := releasedPurchase("stuck")
			p.PayoutStatus = model.PayoutStatusProcessing
			p.UpdatedAt = fixedNow.Add(tt.touched)
			f := newPayoutFixture(p, connectedSeller())

			_, err := f.svc.Trigger(context.Background(), "stuck")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(f.gw.transfers) != tt.transfers {
				t.Fatalf("transfers = %d, want %d", len(f.gw.transfers), tt.transfers)
			}
			if tt.transfers == 1 && f.gw.transfers[0].IdempotencyKey != "payout-stuck" {
				t.Fatalf("idempotency key = %q", f.gw.transfers[0].IdempotencyKey)
			}
		})
	}
}

func TestPayoutAutoReleasedFundsArePayable(t *testing.T) {
	p := releasedPurchase("auto")
	p.FundsStatus = model.FundsStatusAutoReleased
	p.SellerPayoutAmount = decimal.NullDecimal{}
	f := newPayoutFixture(p, connectedSeller())

	res, err := f.svc.Trigger(context.Background(), "auto")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !res.Amount.Equal(dec("989.4")) {
		t.Fatalf("amount derived from total = %s", res.Amount)
	}
}

func TestPayoutBalance(t *testing.T) {
	f := newPayoutFixture(releasedPurchase("x"))
	b, err := f.svc.Balance(context.Background())
	if err != nil || len(b.Available) != 1 || b.Available[0].Amount != 1000 {
		t.Fatalf("balance: %+v %v", b, err)
	}
}
