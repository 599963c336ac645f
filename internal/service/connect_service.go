package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"gorm.io/gorm"
)

type OnboardingLink struct {
	AccountID string
	URL       string
}

type ConnectStatusView struct {
	AccountID          string
	Status             model.ConnectStatus
	DetailsSubmitted   bool
	PayoutsEnabled     bool
	OnboardingComplete bool
	CheckedAt          *time.Time
	// Cached is set when the platform could not be reached and the stored values were returned.
	Cached bool
}

type ConnectService interface {
	CreateAccount(ctx context.Context, uid, email string) (*OnboardingLink, error)
	Status(ctx context.Context, uid, email string) (*ConnectStatusView, error)
	DashboardLink(ctx context.Context, uid string) (string, error)
}

type connectService struct {
	users   repository.UserRepository
	gateway payment.Gateway
	appURL  string
	now     func() time.Time
}

func NewConnectService(users repository.UserRepository, gateway payment.Gateway, appURL string) ConnectService {
	return &connectService{users: users, gateway: gateway, appURL: strings.TrimRight(appURL, "/"), now: time.Now}
}

func (s *connectService) CreateAccount(ctx context.Context, uid, email string) (*OnboardingLink, error) {
	log := obs.FromContext(ctx).With("stage", "connect_create")
	u, err := s.users.Ensure(ctx, uid, email)
	if err != nil {
		return nil, err
	}
	accountID := u.ConnectAccountID()
	if accountID == "" {
		accountID, err = s.gateway.CreateConnectAccount(ctx, email)
		if err != nil {
			log.Error("account_create_failed", "err", err)
			return nil, fmt.Errorf("create connect account: %w", err)
		}
		n, err := s.users.SetStripeAccountID(ctx, uid, accountID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// A concurrent request stored an account first; use that one.
			log.Warn("account_create_race", "orphan_account_id", accountID)
			u, err = s.users.FindByID(ctx, uid)
			if err != nil {
				return nil, err
			}
			accountID = u.ConnectAccountID()
		} else {
			log.Info("account_created", "account_id", accountID)
		}
	}

	url, err := s.gateway.CreateOnboardingLink(ctx, accountID,
		s.appURL+"/seller/onboarding?refresh=1",
		s.appURL+"/seller/onboarding/complete")
	if err != nil {
		log.Error("onboarding_link_failed", "account_id", accountID, "err", err)
		return nil, fmt.Errorf("create onboarding link: %w", err)
	}
	return &OnboardingLink{AccountID: accountID, URL: url}, nil
}

func (s *connectService) Status(ctx context.Context, uid, email string) (*ConnectStatusView, error) {
	u, err := s.users.Ensure(ctx, uid, email)
	if err != nil {
		return nil, err
	}
	cached := viewFromUser(u)
	accountID := u.ConnectAccountID()
	if accountID == "" {
		cached.Status = model.ConnectStatusNotConnected
		return cached, nil
	}

	log := obs.FromContext(ctx).With("stage", "connect_status", "account_id", accountID)
	acct, err := s.gateway.GetConnectAccount(ctx, accountID)
	if err != nil {
		log.Warn("account_fetch_failed", "err", err)
		cached.Cached = true
		return cached, nil
	}
	f := connectFields(acct)
	checkedAt := u.StripeStatusCheckedAt
	if f.Status != u.StripeConnectStatus ||
		f.DetailsSubmitted != u.StripeDetailsSubmitted ||
		f.PayoutsEnabled != u.StripePayoutsEnabled ||
		f.OnboardingComplete != u.StripeOnboardingComplete {
		f.CheckedAt = s.now().UTC()
		if err := s.users.UpdateConnect(ctx, uid, f); err != nil {
			log.Warn("connect_status_write_failed", "err", err)
		} else {
			checkedAt = &f.CheckedAt
			log.Info("connect_status_updated", "status", f.Status)
		}
	}
	return &ConnectStatusView{
		AccountID:          accountID,
		Status:             f.Status,
		DetailsSubmitted:   f.DetailsSubmitted,
		PayoutsEnabled:     f.PayoutsEnabled,
		OnboardingComplete: f.OnboardingComplete,
		CheckedAt:          checkedAt,
	}, nil
}

func (s *connectService) DashboardLink(ctx context.Context, uid string) (string, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if u.ConnectAccountID() == "" {
		return "", ErrNoConnectAccount
	}
	url, err := s.gateway.CreateLoginLink(ctx, u.ConnectAccountID())
	if err != nil {
		obs.FromContext(ctx).Error("login_link_failed", "account_id", u.ConnectAccountID(), "err", err)
		return "", fmt.Errorf("create login link: %w", err)
	}
	return url, nil
}

func viewFromUser(u *model.User) *ConnectStatusView {
	status := u.StripeConnectStatus
	if status == "" {
		status = model.ConnectStatusNotConnected
	}
	return &ConnectStatusView{
		AccountID:          u.ConnectAccountID(),
		Status:             status,
		DetailsSubmitted:   u.StripeDetailsSubmitted,
		PayoutsEnabled:     u.StripePayoutsEnabled,
		OnboardingComplete: u.StripeOnboardingComplete,
		CheckedAt:          u.StripeStatusCheckedAt,
	}
}
