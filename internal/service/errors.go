package service

import (
	"errors"

	"github.com/pedalmarket/marketplace-backend/internal/model"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")

	ErrProductSold     = errors.New("product already sold")
	ErrProductInactive = errors.New("product is not available")
	ErrSelfPurchase    = errors.New("cannot buy your own product")

	ErrAlreadyPaidOut     = errors.New("purchase already paid out")
	ErrFundsNotReleasable = errors.New("funds not releasable")
	ErrPayoutInProgress   = errors.New("payout already in progress")
	ErrNoConnectAccount   = errors.New("seller has no connected payment account")

	ErrOfferExpired       = errors.New("offer has expired")
	ErrInvalidOfferState  = errors.New("offer can no longer be changed")
	ErrInvalidOfferAmount = errors.New("amount must be greater than zero and below the listing price")
	ErrOpenOfferExists    = errors.New("you already have an open offer on this product")
)

// FundsStatusError carries the funds status that blocked a payout.
type FundsStatusError struct {
	Status model.FundsStatus
}

func (e *FundsStatusError) Error() string {
	return ErrFundsNotReleasable.Error() + ": " + string(e.Status)
}

func (e *FundsStatusError) Is(target error) bool {
	return target == ErrFundsNotReleasable
}
