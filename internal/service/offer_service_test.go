package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/shopspring/decimal"
)

func openOffer(id, buyer string, amount string) *model.Offer {
	return &model.Offer{
		ID:            id,
		ProductID:     "p1",
		BuyerID:       buyer,
		SellerID:      "seller",
		OriginalPrice: dec("1000"),
		OfferAmount:   dec(amount),
		Status:        model.OfferStatusPending,
		ExpiresAt:     fixedNow.Add(model.OfferWindow / 2),
		CreatedAt:     fixedNow.Add(-model.OfferWindow / 2),
	}
}

type offerFixture struct {
	svc      *offerService
	offers   *fakeOffers
	products *fakeProducts
	notify   *fakeNotifier
	tx       *fakeTx
}

func newOfferFixture(offers ...*model.Offer) *offerFixture {
	f := &offerFixture{
		offers:   newFakeOffers(offers...),
		products: newFakeProducts(activeProduct("p1", "seller", "1000")),
		notify:   &fakeNotifier{},
		tx:       &fakeTx{},
	}
	f.svc = NewOfferService(f.tx, f.offers, f.products, f.notify).(*offerService)
	f.svc.now = clock
	return f
}

func TestOfferCreate(t *testing.T) {
	f := newOfferFixture()
	o, err := f.svc.Create(context.Background(), "buyer", "p1", dec("850"), "  Cash today?  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != model.OfferStatusPending || o.SellerID != "seller" || o.Message != "Cash today?" {
		t.Fatalf("offer: %+v", o)
	}
	if !o.ExpiresAt.Equal(fixedNow.Add(model.OfferWindow)) {
		t.Fatalf("expires_at = %v", o.ExpiresAt)
	}
	if !o.OriginalPrice.Equal(dec("1000")) {
		t.Fatalf("original price = %s", o.OriginalPrice)
	}
	if !f.notify.has("seller", NotifyOfferReceived) {
		t.Fatalf("seller not notified")
	}
}

func TestOfferCreateRejections(t *testing.T) {
	sold := activeProduct("sold", "seller", "1000")
	soldAt := fixedNow
	sold.SoldAt = &soldAt
	draft := activeProduct("draft", "seller", "1000")
	draft.IsActive = false
	draft.ListingStatus = model.ListingStatusDraft

	tests := []struct {
		name      string
		buyer     string
		productID string
		amount    string
		message   string
		want      error
	}{
		{name: "equal to price", buyer: "buyer", productID: "p1", amount: "1000", want: ErrInvalidOfferAmount},
		{name: "above price", buyer: "buyer", productID: "p1", amount: "1200", want: ErrInvalidOfferAmount},
		{name: "zero", buyer: "buyer", productID: "p1", amount: "0", want: ErrInvalidOfferAmount},
		{name: "own product", buyer: "seller", productID: "p1", amount: "500", want: ErrSelfPurchase},
		{name: "sold", buyer: "buyer", productID: "sold", amount: "500", want: ErrProductSold},
		{name: "draft", buyer: "buyer", productID: "draft", amount: "500", want: ErrProductInactive},
		{name: "missing", buyer: "buyer", productID: "nope", amount: "500", want: ErrNotFound},
		{name: "long message", buyer: "buyer", productID: "p1", amount: "500", message: strings.Repeat("x", 501), want: ErrInvalidInput},
		{name: "already open", buyer: "repeat", productID: "p1", amount: "500", want: ErrOpenOfferExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOfferFixture(openOffer("o-open", "repeat", "700"))
			f.products.rows["sold"] = sold
			f.products.rows["draft"] = draft
			_, err := f.svc.Create(context.Background(), tt.buyer, tt.productID, dec(tt.amount), tt.message)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOfferAccept(t *testing.T) {
	f := newOfferFixture(openOffer("o1", "b1", "800"), openOffer("o2", "b2", "850"))
	other := f.offers.rows["o2"]

	o, err := f.svc.Accept(context.Background(), "seller", "o1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if o.Status != model.OfferStatusAccepted || o.RespondedAt == nil {
		t.Fatalf("offer: %+v", o)
	}
	if other.Status != model.OfferStatusRejected {
		t.Fatalf("other offer status = %s, want rejected", other.Status)
	}
	p := f.products.rows["p1"]
	if p.ListingStatus != model.ListingStatusPending {
		t.Fatalf("product status = %s, want pending", p.ListingStatus)
	}
	if f.tx.calls != 1 {
		t.Fatalf("accept should run in one transaction")
	}
	if !f.notify.has("b1", NotifyOfferAccepted) {
		t.Fatalf("buyer not notified")
	}
}

func TestOfferAcceptSoldProduct(t *testing.T) {
	f := newOfferFixture(openOffer("o1", "b1", "800"))
	soldAt := fixedNow
	f.products.rows["p1"].SoldAt = &soldAt
	if _, err := f.svc.Accept(context.Background(), "seller", "o1"); !errors.Is(err, ErrProductSold) {
		t.Fatalf("err = %v, want ErrProductSold", err)
	}
}

func TestOfferSellerGuards(t *testing.T) {
	expired := openOffer("old", "b1", "800")
	expired.ExpiresAt = fixedNow.Add(-1)
	accepted := openOffer("done", "b1", "800")
	accepted.Status = model.OfferStatusAccepted

	tests := []struct {
		name   string
		seller string
		id     string
		want   error
	}{
		{"not the seller", "intruder", "o1", ErrForbidden},
		{"already accepted", "seller", "done", ErrInvalidOfferState},
		{"expired", "seller", "old", ErrOfferExpired},
		{"missing", "seller", "nope", ErrNotFound},
	}
	actions := map[string]func(s *offerService, seller, id string) error{
		"accept": func(s *offerService, seller, id string) error {
			_, err := s.Accept(context.Background(), seller, id)
			return err
		},
		"reject": func(s *offerService, seller, id string) error {
			_, err := s.Reject(context.Background(), seller, id)
			return err
		},
		"counter": func(s *offerService, seller, id string) error {
			_, err := s.Counter(context.Background(), seller, id, dec("900"))
			return err
		},
	}
	for action, run := range actions {
		for _, tt := range tests {
			t.Run(action+"/"+tt.name, func(t *testing.T) {
				exp := *expired
				acc := *accepted
				f := newOfferFixture(openOffer("o1", "b1", "800"), &exp, &acc)
				if err := run(f.svc, tt.seller, tt.id); !errors.Is(err, tt.want) {
					t.Fatalf("err = %v, want %v", err, tt.want)
				}
				if tt.want == ErrOfferExpired && f.offers.rows["old"].Status != model.OfferStatusExpired {
					t.Fatalf("expired offer should be marked expired")
				}
			})
		}
	}
}

func TestOfferCounterThenAccept(t *testing.T) {
	f := newOfferFixture(openOffer("o1", "b1", "800"))

	if _, err := f.svc.Counter(context.Background(), "seller", "o1", dec("1000")); !errors.Is(err, ErrInvalidOfferAmount) {
		t.Fatalf("counter at list price: err = %v", err)
	}
	o, err := f.svc.Counter(context.Background(), "seller", "o1", dec("900"))
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if o.Status != model.OfferStatusCountered || !o.AgreedPrice().Equal(dec("900")) {
		t.Fatalf("offer: %+v", o)
	}
	if !f.notify.has("b1", NotifyOfferCountered) {
		t.Fatalf("buyer not notified of counter")
	}
	o, err = f.svc.Accept(context.Background(), "seller", "o1")
	if err != nil {
		t.Fatalf("accept countered: %v", err)
	}
	if !o.AgreedPrice().Equal(dec("900")) {
		t.Fatalf("agreed price = %s", o.AgreedPrice())
	}
}

func countered(id, buyer, amount, counter string) *model.Offer {
	o := openOffer(id, buyer, amount)
	o.Status = model.OfferStatusCountered
	o.CounterAmount = decimal.NewNullDecimal(dec(counter))
	responded := fixedNow.Add(-time.Hour)
	o.RespondedAt = &responded
	return o
}

func TestOfferBuyerAcceptsCounter(t *testing.T) {
	f := newOfferFixture(countered("o1", "b1", "800", "900"), openOffer("o2", "b2", "850"))

	if _, err := f.svc.AcceptCounter(context.Background(), "b2", "o1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other buyer: err = %v", err)
	}
	if _, err := f.svc.AcceptCounter(context.Background(), "b2", "o2"); !errors.Is(err, ErrInvalidOfferState) {
		t.Fatalf("pending offer: err = %v", err)
	}
	o, err := f.svc.AcceptCounter(context.Background(), "b1", "o1")
	if err != nil {
		t.Fatalf("accept counter: %v", err)
	}
	if o.Status != model.OfferStatusAccepted || !o.AgreedPrice().Equal(dec("900")) {
		t.Fatalf("offer: %+v", o)
	}
	if f.products.rows["p1"].ListingStatus != model.ListingStatusPending {
		t.Fatalf("listing = %s, want pending", f.products.rows["p1"].ListingStatus)
	}
	if f.offers.rows["o2"].Status != model.OfferStatusRejected {
		t.Fatalf("other offer = %s, want rejected", f.offers.rows["o2"].Status)
	}
	if !f.notify.has("seller", NotifyOfferAccepted) {
		t.Fatalf("seller not notified")
	}
}

func TestOfferBuyerRevisesCounter(t *testing.T) {
	tests := []struct {
		name   string
		buyer  string
		amount string
		want   error
	}{
		{name: "other buyer", buyer: "b2", amount: "850", want: ErrForbidden},
		{name: "at list price", buyer: "b1", amount: "1000", want: ErrInvalidOfferAmount},
		{name: "zero", buyer: "b1", amount: "0", want: ErrInvalidOfferAmount},
		{name: "rounds to list price", buyer: "b1", amount: "999.999", want: ErrInvalidOfferAmount},
		{name: "revised", buyer: "b1", amount: "850.555"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOfferFixture(countered("o1", "b1", "800", "900"))
			o, err := f.svc.Revise(context.Background(), tt.buyer, "o1", dec(tt.amount))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			row := f.offers.rows["o1"]
			if tt.want != nil {
				if row.Status != model.OfferStatusCountered {
					t.Fatalf("status = %s, want countered", row.Status)
				}
				return
			}
			if o.Status != model.OfferStatusPending || row.Status != model.OfferStatusPending {
				t.Fatalf("status = %s/%s, want pending", o.Status, row.Status)
			}
			if row.CounterAmount.Valid || row.RespondedAt != nil {
				t.Fatalf("counter not cleared: %+v", row)
			}
			if !row.OfferAmount.Equal(dec("850.56")) || !row.AgreedPrice().Equal(dec("850.56")) {
				t.Fatalf("offer amount = %s", row.OfferAmount)
			}
			if !f.notify.has("seller", NotifyOfferReceived) {
				t.Fatalf("seller not notified")
			}
			// The seller can answer the revised amount again.
			if _, err := f.svc.Accept(context.Background(), "seller", "o1"); err != nil {
				t.Fatalf("accept revised: %v", err)
			}
		})
	}
}

func TestOfferExpiredCounterCannotBeAnswered(t *testing.T) {
	o := countered("o1", "b1", "800", "900")
	o.ExpiresAt = fixedNow.Add(-time.Minute)
	f := newOfferFixture(o)
	if _, err := f.svc.AcceptCounter(context.Background(), "b1", "o1"); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("err = %v, want ErrOfferExpired", err)
	}
	if f.offers.rows["o1"].Status != model.OfferStatusExpired {
		t.Fatalf("status = %s, want expired", f.offers.rows["o1"].Status)
	}
	if _, err := f.svc.Revise(context.Background(), "b1", "o1", dec("850")); !errors.Is(err, ErrInvalidOfferState) {
		t.Fatalf("revise after expiry: err = %v", err)
	}
}

func TestOfferReject(t *testing.T) {
	f := newOfferFixture(openOffer("o1", "b1", "800"))
	o, err := f.svc.Reject(context.Background(), "seller", "o1")
	if err != nil || o.Status != model.OfferStatusRejected {
		t.Fatalf("reject: %+v %v", o, err)
	}
	if f.products.rows["p1"].ListingStatus != model.ListingStatusActive {
		t.Fatalf("rejecting must not reserve the product")
	}
}

func TestOfferCancel(t *testing.T) {
	f := newOfferFixture(openOffer("o1", "b1", "800"))
	if _, err := f.svc.Cancel(context.Background(), "b2", "o1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other buyer: err = %v", err)
	}
	o, err := f.svc.Cancel(context.Background(), "b1", "o1")
	if err != nil || o.Status != model.OfferStatusCancelled {
		t.Fatalf("cancel: %+v %v", o, err)
	}
	if _, err := f.svc.Cancel(context.Background(), "b1", "o1"); !errors.Is(err, ErrInvalidOfferState) {
		t.Fatalf("second cancel: err = %v", err)
	}
	if !f.notify.has("seller", NotifyOfferCancelled) {
		t.Fatalf("seller not notified")
	}
}

func TestOfferListForProduct(t *testing.T) {
	f := newOfferFixture(openOffer("o1", "b1", "800"), openOffer("o2", "b2", "850"))
	got, err := f.svc.ListForProduct(context.Background(), "seller", "p1")
	if err != nil || len(got) != 2 {
		t.Fatalf("list: %d %v", len(got), err)
	}
	if _, err := f.svc.ListForProduct(context.Background(), "b1", "p1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-seller: err = %v", err)
	}
	mine, err := f.svc.ListMine(context.Background(), "b2")
	if err != nil || len(mine) != 1 || mine[0].ID != "o2" {
		t.Fatalf("list mine: %+v %v", mine, err)
	}
}

func TestOfferExpireStale(t *testing.T) {
	stale := openOffer("stale", "b1", "800")
	stale.ExpiresAt = fixedNow.Add(-1)
	f := newOfferFixture(stale, openOffer("fresh", "b2", "850"))
	n, err := f.svc.ExpireStale(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expired %d err %v", n, err)
	}
	if f.offers.rows["fresh"].Status != model.OfferStatusPending {
		t.Fatalf("fresh offer touched")
	}
}
