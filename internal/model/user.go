package model

import "time"

type ConnectStatus string

const (
	ConnectStatusNotConnected ConnectStatus = "not_connected"
	ConnectStatusPending      ConnectStatus = "pending"
	ConnectStatusActive       ConnectStatus = "active"
	ConnectStatusRestricted   ConnectStatus = "restricted"
)

// User mirrors the hosted-auth user plus a cache of the seller's Connect sub-account state.
type User struct {
	ID                       string        `gorm:"primaryKey;size:128"`
	Email                    string        `gorm:"size:255"`
	DisplayName              string        `gorm:"column:display_name;size:120"`
	StripeAccountID          *string       `gorm:"column:stripe_account_id;size:255;uniqueIndex"`
	StripeConnectStatus      ConnectStatus `gorm:"column:stripe_connect_status;size:32;not null;default:not_connected"`
	StripeDetailsSubmitted   bool          `gorm:"column:stripe_details_submitted;not null;default:false"`
	StripePayoutsEnabled     bool          `gorm:"column:stripe_payouts_enabled;not null;default:false"`
	StripeOnboardingComplete bool          `gorm:"column:stripe_onboarding_complete;not null;default:false"`
	StripeStatusCheckedAt    *time.Time    `gorm:"column:stripe_status_checked_at"`
	CreatedAt                time.Time     `gorm:"autoCreateTime"`
	UpdatedAt                time.Time     `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) ConnectAccountID() string {
	if u == nil || u.StripeAccountID == nil {
		return ""
	}
	return *u.StripeAccountID
}
