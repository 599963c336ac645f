package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	country       string
}

func NewStripeGateway(secretKey, webhookSecret, currency, country string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		currency:      currency,
		country:       country,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	if !in.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(in.ExpiresAt.Unix())
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	if in.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(in.ClientReferenceID)
	}
	for _, li := range in.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
				UnitAmount: stripe.Int64(li.Amount),
			},
			Quantity: stripe.Int64(1),
		})
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(ev)
}

func decodeEvent(ev stripe.Event) (*Event, error) {
	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	out.Raw = ev.Data.Raw
	switch out.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		cs := &CompletedSession{
			ID:            s.ID,
			PaymentStatus: string(s.PaymentStatus),
			AmountTotal:   s.AmountTotal,
			Metadata:      s.Metadata,
		}
		if s.PaymentIntent != nil {
			cs.PaymentIntentID = s.PaymentIntent.ID
		}
		out.CheckoutCompleted = cs
	case EventAccountUpdated:
		var a stripe.Account
		if err := json.Unmarshal(ev.Data.Raw, &a); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		out.Account = toConnectAccount(&a)
	}
	return out, nil
}

func toConnectAccount(a *stripe.Account) *ConnectAccount {
	ca := &ConnectAccount{
		ID:               a.ID,
		DetailsSubmitted: a.DetailsSubmitted,
		PayoutsEnabled:   a.PayoutsEnabled,
	}
	if a.Requirements != nil {
		ca.DisabledReason = string(a.Requirements.DisabledReason)
	}
	return ca
}

func (g *StripeGateway) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(g.country),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	a, err := g.api.Accounts.New(params)
	if err != nil {
		return "", wrapError(err)
	}
	return a.ID, nil
}

func (g *StripeGateway) GetConnectAccount(ctx context.Context, accountID string) (*ConnectAccount, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	a, err := g.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, wrapError(err)
	}
	return toConnectAccount(a), nil
}

func (g *StripeGateway) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx
	l, err := g.api.AccountLinks.New(params)
	if err != nil {
		return "", wrapError(err)
	}
	return l.URL, nil
}

func (g *StripeGateway) CreateLoginLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.LoginLinkParams{Account: stripe.String(accountID)}
	params.Context = ctx
	l, err := g.api.LoginLinks.New(params)
	if err != nil {
		return "", wrapError(err)
	}
	return l.URL, nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, in TransferInput) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(in.Amount),
		Currency:    stripe.String(g.currency),
		Destination: stripe.String(in.Destination),
	}
	params.Context = ctx
	if in.TransferGroup != "" {
		params.TransferGroup = stripe.String(in.TransferGroup)
	}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	t, err := g.api.Transfers.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Transfer{ID: t.ID, Amount: t.Amount, Currency: string(t.Currency)}, nil
}

func (g *StripeGateway) GetBalance(ctx context.Context) (*Balance, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	b, err := g.api.Balance.Get(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Balance{Available: toMoney(b.Available), Pending: toMoney(b.Pending)}, nil
}

func toMoney(in []*stripe.Amount) []Money {
	out := make([]Money, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		out = append(out, Money{Amount: a.Amount, Currency: string(a.Currency)})
	}
	return out
}

func wrapError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &Error{
			Message:    se.Msg,
			Type:       string(se.Type),
			Code:       string(se.Code),
			HTTPStatus: se.HTTPStatusCode,
		}
	}
	return err
}
