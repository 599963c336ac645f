package repository

import (
	"context"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

// ConnectFields are the cached sub-account flags mirrored onto a user.
type ConnectFields struct {
	Status             model.ConnectStatus
	DetailsSubmitted   bool
	PayoutsEnabled     bool
	OnboardingComplete bool
	// CheckedAt is stored as stripe_status_checked_at; zero means the database clock.
	CheckedAt time.Time
}

func (f ConnectFields) updates(db *gorm.DB) map[string]interface{} {
	checked := f.CheckedAt
	if checked.IsZero() {
		checked = db.NowFunc()
	}
	return map[string]interface{}{
		"stripe_connect_status":      f.Status,
		"stripe_details_submitted":   f.DetailsSubmitted,
		"stripe_payouts_enabled":     f.PayoutsEnabled,
		"stripe_onboarding_complete": f.OnboardingComplete,
		"stripe_status_checked_at":   checked,
	}
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByStripeAccountID(ctx context.Context, accountID string) (*model.User, error)
	Ensure(ctx context.Context, id, email string) (*model.User, error)
	SetStripeAccountID(ctx context.Context, id, accountID string) (int64, error)
	UpdateConnect(ctx context.Context, id string, f ConnectFields) error
	UpdateConnectByAccount(ctx context.Context, accountID string, f ConnectFields) (int64, error)
	SetDB(db *gorm.DB)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByStripeAccountID(ctx context.Context, accountID string) (*model.User, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := db.Where("stripe_account_id = ?", accountID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Ensure returns the user row for id, creating it on first sight.
func (r *userRepository) Ensure(ctx context.Context, id, email string) (*model.User, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	u := model.User{ID: id, Email: email, StripeConnectStatus: model.ConnectStatusNotConnected}
	if err := db.Where(model.User{ID: id}).FirstOrCreate(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SetStripeAccountID stores the sub-account id only if none is recorded yet.
func (r *userRepository) SetStripeAccountID(ctx context.Context, id, accountID string) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.User{}).
		Where("id = ? AND stripe_account_id IS NULL", id).
		Updates(map[string]interface{}{
			"stripe_account_id":     accountID,
			"stripe_connect_status": model.ConnectStatusPending,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *userRepository) UpdateConnect(ctx context.Context, id string, f ConnectFields) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Model(&model.User{}).Where("id = ?", id).Updates(f.updates(db)).Error
}

func (r *userRepository) UpdateConnectByAccount(ctx context.Context, accountID string, f ConnectFields) (int64, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return 0, err
	}
	res := db.Model(&model.User{}).Where("stripe_account_id = ?", accountID).Updates(f.updates(db))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *userRepository) SetDB(db *gorm.DB) {
	r.db = db
}
