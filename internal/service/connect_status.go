package service

import (
	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
)

// DeriveConnectStatus maps the platform's sub-account flags onto the cached three-state status.
// Active takes precedence over a disabled reason.
func DeriveConnectStatus(detailsSubmitted, payoutsEnabled bool, disabledReason string) model.ConnectStatus {
	switch {
	case detailsSubmitted && payoutsEnabled:
		return model.ConnectStatusActive
	case disabledReason != "":
		return model.ConnectStatusRestricted
	default:
		return model.ConnectStatusPending
	}
}

func connectFields(a *payment.ConnectAccount) repository.ConnectFields {
	return repository.ConnectFields{
		Status:             DeriveConnectStatus(a.DetailsSubmitted, a.PayoutsEnabled, a.DisabledReason),
		DetailsSubmitted:   a.DetailsSubmitted,
		PayoutsEnabled:     a.PayoutsEnabled,
		OnboardingComplete: a.DetailsSubmitted,
	}
}
