package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

func (f *fakeTx) SetDB(*gorm.DB) {}

type fakeProducts struct {
	mu        sync.Mutex
	rows      map[string]*model.Product
	markSolds int
}

func newFakeProducts(ps ...*model.Product) *fakeProducts {
	f := &fakeProducts{rows: map[string]*model.Product{}}
	for _, p := range ps {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Create(_ context.Context, p *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("prod-%d", len(f.rows)+1)
	}
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakeProducts) FindByID(_ context.Context, id string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) List(_ context.Context, limit, offset int) ([]model.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Product
	for _, p := range f.rows {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProducts) MarkSoldIfUnsold(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markSolds++
	p, ok := f.rows[id]
	if !ok || p.SoldAt != nil {
		return 0, nil
	}
	now := fixedNow
	p.SoldAt = &now
	p.IsActive = false
	p.ListingStatus = model.ListingStatusSold
	return 1, nil
}

func (f *fakeProducts) MarkPending(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.SoldAt != nil {
		return 0, nil
	}
	p.ListingStatus = model.ListingStatusPending
	return 1, nil
}

func (f *fakeProducts) SetDB(*gorm.DB) {}

type fakePurchases struct {
	mu      sync.Mutex
	rows    map[string]*model.Purchase
	creates int
	// hidden sessions are invisible to FindBySessionID, simulating a concurrent insert.
	hidden map[string]bool
}

func newFakePurchases(ps ...*model.Purchase) *fakePurchases {
	f := &fakePurchases{rows: map[string]*model.Purchase{}}
	for _, p := range ps {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakePurchases) Create(_ context.Context, p *model.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.StripeSessionID == p.StripeSessionID {
			return gorm.ErrDuplicatedKey
		}
	}
	f.creates++
	if p.ID == "" {
		p.ID = fmt.Sprintf("pur-%d", f.creates)
	}
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePurchases) FindByID(_ context.Context, id string) (*model.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePurchases) FindBySessionID(_ context.Context, sessionID string) (*model.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hidden[sessionID] {
		return nil, gorm.ErrRecordNotFound
	}
	for _, p := range f.rows {
		if p.StripeSessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePurchases) list(match func(*model.Purchase) bool) []model.Purchase {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Purchase
	for _, p := range f.rows {
		if match(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakePurchases) ListByBuyer(_ context.Context, buyerID string) ([]model.Purchase, error) {
	return f.list(func(p *model.Purchase) bool { return p.BuyerID == buyerID }), nil
}

func (f *fakePurchases) ListBySeller(_ context.Context, sellerID string) ([]model.Purchase, error) {
	return f.list(func(p *model.Purchase) bool { return p.SellerID == sellerID }), nil
}

func (f *fakePurchases) ListDueForRelease(_ context.Context, now time.Time, limit int) ([]model.Purchase, error) {
	out := f.list(func(p *model.Purchase) bool {
		return p.FundsStatus == model.FundsStatusHeld && p.FundsReleaseAt.Before(now)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePurchases) ReleaseIfHeld(_ context.Context, id string, to model.FundsStatus, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.FundsStatus != model.FundsStatusHeld {
		return 0, nil
	}
	p.FundsStatus = to
	p.FundsReleasedAt = &now
	return 1, nil
}

func (f *fakePurchases) ClaimPayout(ctx context.Context, id string, staleBefore time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.StripeTransferID != nil {
		return 0, nil
	}
	switch p.PayoutStatus {
	case model.PayoutStatusPending, model.PayoutStatusFailed:
	case model.PayoutStatusProcessing:
		if !p.UpdatedAt.Before(staleBefore) {
			return 0, nil
		}
	default:
		return 0, nil
	}
	p.PayoutStatus = model.PayoutStatusProcessing
	p.UpdatedAt = staleBefore.Add(PayoutLease)
	return 1, nil
}

func (f *fakePurchases) CompletePayout(ctx context.Context, id, transferID string, amount decimal.Decimal, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.StripeTransferID != nil {
		return 0, nil
	}
	p.StripeTransferID = &transferID
	p.SellerPayoutAmount = decimal.NewNullDecimal(amount)
	p.PayoutStatus = model.PayoutStatusPaid
	p.PaidOutAt = &now
	return 1, nil
}

func (f *fakePurchases) FailPayout(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok && p.PayoutStatus == model.PayoutStatusProcessing {
		p.PayoutStatus = model.PayoutStatusFailed
	}
	return nil
}

func (f *fakePurchases) SetDB(*gorm.DB) {}

type fakePayouts struct {
	rows []model.SellerPayout
}

func (f *fakePayouts) Create(_ context.Context, p *model.SellerPayout) error {
	f.rows = append(f.rows, *p)
	return nil
}

func (f *fakePayouts) ListBySeller(_ context.Context, sellerID string) ([]model.SellerPayout, error) {
	var out []model.SellerPayout
	for _, p := range f.rows {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayouts) SetDB(*gorm.DB) {}

type fakeUsers struct {
	rows    map[string]*model.User
	updates int
}

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{rows: map[string]*model.User{}}
	for _, u := range us {
		f.rows[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByStripeAccountID(_ context.Context, accountID string) (*model.User, error) {
	for _, u := range f.rows {
		if u.ConnectAccountID() == accountID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) Ensure(_ context.Context, id, email string) (*model.User, error) {
	u, ok := f.rows[id]
	if !ok {
		u = &model.User{ID: id, Email: email, StripeConnectStatus: model.ConnectStatusNotConnected}
		f.rows[id] = u
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetStripeAccountID(_ context.Context, id, accountID string) (int64, error) {
	u, ok := f.rows[id]
	if !ok || u.StripeAccountID != nil {
		return 0, nil
	}
	u.StripeAccountID = &accountID
	u.StripeConnectStatus = model.ConnectStatusPending
	return 1, nil
}

func (f *fakeUsers) apply(u *model.User, c repository.ConnectFields) {
	f.updates++
	u.StripeConnectStatus = c.Status
	u.StripeDetailsSubmitted = c.DetailsSubmitted
	u.StripePayoutsEnabled = c.PayoutsEnabled
	u.StripeOnboardingComplete = c.OnboardingComplete
	if !c.CheckedAt.IsZero() {
		checked := c.CheckedAt
		u.StripeStatusCheckedAt = &checked
	}
}

func (f *fakeUsers) UpdateConnect(_ context.Context, id string, c repository.ConnectFields) error {
	if u, ok := f.rows[id]; ok {
		f.apply(u, c)
	}
	return nil
}

func (f *fakeUsers) UpdateConnectByAccount(_ context.Context, accountID string, c repository.ConnectFields) (int64, error) {
	for _, u := range f.rows {
		if u.ConnectAccountID() == accountID {
			f.apply(u, c)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeUsers) SetDB(*gorm.DB) {}

type fakeOffers struct {
	rows map[string]*model.Offer
	seq  int
}

func newFakeOffers(offers ...*model.Offer) *fakeOffers {
	f := &fakeOffers{rows: map[string]*model.Offer{}}
	for _, o := range offers {
		f.rows[o.ID] = o
	}
	return f
}

func (f *fakeOffers) Create(_ context.Context, o *model.Offer) error {
	f.seq++
	if o.ID == "" {
		o.ID = fmt.Sprintf("offer-new-%d", f.seq)
	}
	cp := *o
	f.rows[o.ID] = &cp
	return nil
}

func (f *fakeOffers) FindByID(_ context.Context, id string) (*model.Offer, error) {
	o, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOffers) CountOpen(_ context.Context, buyerID, productID string) (int64, error) {
	var n int64
	for _, o := range f.rows {
		if o.BuyerID == buyerID && o.ProductID == productID && o.Status.Open() {
			n++
		}
	}
	return n, nil
}

func (f *fakeOffers) FindAccepted(_ context.Context, buyerID, productID string) (*model.Offer, error) {
	for _, o := range f.rows {
		if o.BuyerID == buyerID && o.ProductID == productID && o.Status == model.OfferStatusAccepted {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeOffers) ListByBuyer(_ context.Context, buyerID string) ([]model.Offer, error) {
	var out []model.Offer
	for _, o := range f.rows {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOffers) ListByProduct(_ context.Context, productID string) ([]model.Offer, error) {
	var out []model.Offer
	for _, o := range f.rows {
		if o.ProductID == productID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOffers) Transition(_ context.Context, id string, to model.OfferStatus, fields map[string]interface{}) (int64, error) {
	o, ok := f.rows[id]
	if !ok || !o.Status.Open() {
		return 0, nil
	}
	o.Status = to
	if v, ok := fields["offer_amount"].(decimal.Decimal); ok {
		o.OfferAmount = v
	}
	if v, ok := fields["counter_amount"]; ok {
		if d, ok := v.(decimal.Decimal); ok {
			o.CounterAmount = decimal.NewNullDecimal(d)
		} else {
			o.CounterAmount = decimal.NullDecimal{}
		}
	}
	if v, ok := fields["responded_at"]; ok {
		if t, ok := v.(time.Time); ok {
			o.RespondedAt = &t
		} else {
			o.RespondedAt = nil
		}
	}
	return 1, nil
}

func (f *fakeOffers) RejectOthers(_ context.Context, productID, exceptID string) (int64, error) {
	var n int64
	for _, o := range f.rows {
		if o.ProductID == productID && o.ID != exceptID && o.Status.Open() {
			o.Status = model.OfferStatusRejected
			n++
		}
	}
	return n, nil
}

func (f *fakeOffers) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, o := range f.rows {
		if o.Status.Open() && o.ExpiresAt.Before(now) {
			o.Status = model.OfferStatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeOffers) SetDB(*gorm.DB) {}

type fakeVouchers struct {
	rows []model.Voucher
	used map[string]string
}

func (f *fakeVouchers) Create(_ context.Context, v *model.Voucher) error {
	f.rows = append(f.rows, *v)
	return nil
}

func (f *fakeVouchers) ListUsable(_ context.Context, userID string, now time.Time) ([]model.Voucher, error) {
	var out []model.Voucher
	for _, v := range f.rows {
		if v.UserID == userID && v.Status == model.VoucherStatusActive && (v.ExpiresAt == nil || v.ExpiresAt.After(now)) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVouchers) MarkUsed(_ context.Context, id, purchaseID string, _ time.Time) (int64, error) {
	if f.used == nil {
		f.used = map[string]string{}
	}
	if _, done := f.used[id]; done {
		return 0, nil
	}
	f.used[id] = purchaseID
	return 1, nil
}

func (f *fakeVouchers) SetDB(*gorm.DB) {}

type fakeEvents struct {
	recorded  map[string]bool
	processed map[string]string
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{recorded: map[string]bool{}, processed: map[string]string{}}
}

func (f *fakeEvents) Record(_ context.Context, e *model.WebhookEvent) (bool, error) {
	if f.recorded[e.ProviderEventID] {
		return false, nil
	}
	f.recorded[e.ProviderEventID] = true
	return true, nil
}

func (f *fakeEvents) MarkProcessed(_ context.Context, _, eventID, processingErr string) error {
	f.processed[eventID] = processingErr
	return nil
}

func (f *fakeEvents) SetDB(*gorm.DB) {}

type sentNotification struct {
	UserID string
	Type   string
}

type fakeNotifier struct {
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, userID, typ, _, _ string, _ NotificationRef) {
	f.sent = append(f.sent, sentNotification{UserID: userID, Type: typ})
}

func (f *fakeNotifier) has(userID, typ string) bool {
	for _, n := range f.sent {
		if n.UserID == userID && n.Type == typ {
			return true
		}
	}
	return false
}

type seqOrders struct{ n int }

func (s *seqOrders) Next() string {
	s.n++
	return fmt.Sprintf("PM-TEST%d", s.n)
}

type fakeGateway struct {
	sessions  []payment.CheckoutSessionInput
	events    map[string]*payment.Event
	accounts  map[string]*payment.ConnectAccount
	created   int
	transfers []payment.TransferInput

	sessionErr  error
	accountErr  error
	transferErr error
	// onTransfer runs inside CreateTransfer before the result is returned.
	onTransfer func()
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, in payment.CheckoutSessionInput) (*payment.CheckoutSession, error) {
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	g.sessions = append(g.sessions, in)
	id := fmt.Sprintf("cs_test_%d", len(g.sessions))
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.example/" + id}, nil
}

// ParseEvent treats the signature as the key of a pre-registered event.
func (g *fakeGateway) ParseEvent(_ []byte, signature string) (*payment.Event, error) {
	ev, ok := g.events[signature]
	if !ok {
		return nil, payment.ErrInvalidSignature
	}
	return ev, nil
}

func (g *fakeGateway) CreateConnectAccount(_ context.Context, _ string) (string, error) {
	if g.accountErr != nil {
		return "", g.accountErr
	}
	g.created++
	return fmt.Sprintf("acct_new_%d", g.created), nil
}

func (g *fakeGateway) GetConnectAccount(_ context.Context, accountID string) (*payment.ConnectAccount, error) {
	if g.accountErr != nil {
		return nil, g.accountErr
	}
	a, ok := g.accounts[accountID]
	if !ok {
		return nil, &payment.Error{Message: "No such account", Type: "invalid_request_error", Code: "resource_missing"}
	}
	return a, nil
}

func (g *fakeGateway) CreateOnboardingLink(_ context.Context, accountID, _, _ string) (string, error) {
	return "https://connect.example/onboard/" + accountID, nil
}

func (g *fakeGateway) CreateLoginLink(_ context.Context, accountID string) (string, error) {
	return "https://connect.example/login/" + accountID, nil
}

func (g *fakeGateway) CreateTransfer(_ context.Context, in payment.TransferInput) (*payment.Transfer, error) {
	g.transfers = append(g.transfers, in)
	if g.onTransfer != nil {
		g.onTransfer()
	}
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	return &payment.Transfer{ID: fmt.Sprintf("tr_%d", len(g.transfers)), Amount: in.Amount, Currency: "aud"}, nil
}

func (g *fakeGateway) GetBalance(_ context.Context) (*payment.Balance, error) {
	return &payment.Balance{Available: []payment.Money{{Amount: 1000, Currency: "aud"}}}, nil
}
