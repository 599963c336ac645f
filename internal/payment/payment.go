// Package payment wraps the hosted payment platform behind a small Gateway interface
// so that services and tests never touch the SDK types directly.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/pricing"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventAccountUpdated    = "account.updated"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	GetConnectAccount(ctx context.Context, accountID string) (*ConnectAccount, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	CreateLoginLink(ctx context.Context, accountID string) (string, error)
	CreateTransfer(ctx context.Context, in TransferInput) (*Transfer, error)
	GetBalance(ctx context.Context) (*Balance, error)
}

type CheckoutSessionInput struct {
	CustomerEmail     string
	ClientReferenceID string
	LineItems         []pricing.LineItem
	SuccessURL        string
	CancelURL         string
	ExpiresAt         time.Time
	Metadata          map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CompletedSession is the subset of a completed checkout the webhook needs.
type CompletedSession struct {
	ID              string
	PaymentIntentID string
	PaymentStatus   string
	AmountTotal     int64
	Metadata        map[string]string
}

type ConnectAccount struct {
	ID               string
	DetailsSubmitted bool
	PayoutsEnabled   bool
	DisabledReason   string
}

type Event struct {
	ID   string
	Type string
	Raw  json.RawMessage
	// Set for checkout.session.completed.
	CheckoutCompleted *CompletedSession
	// Set for account.updated.
	Account *ConnectAccount
}

type TransferInput struct {
	Amount         int64
	Destination    string
	TransferGroup  string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

type Transfer struct {
	ID       string
	Amount   int64
	Currency string
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Balance struct {
	Available []Money `json:"available"`
	Pending   []Money `json:"pending"`
}

// Error carries the platform's structured error so handlers can pass it through.
type Error struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment: %s (%s/%s)", e.Message, e.Type, e.Code)
	}
	return fmt.Sprintf("payment: %s (%s)", e.Message, e.Type)
}
