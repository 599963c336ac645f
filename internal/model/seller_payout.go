package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SellerPayout is an append-only record of a completed transfer to a seller.
type SellerPayout struct {
	ID               string          `gorm:"primaryKey;size:36"`
	SellerID         string          `gorm:"column:seller_id;size:128;index;not null"`
	PurchaseID       string          `gorm:"column:purchase_id;size:36;index;not null"`
	StripeTransferID string          `gorm:"column:stripe_transfer_id;size:255;uniqueIndex;not null"`
	StripeAccountID  string          `gorm:"column:stripe_account_id;size:255;not null"`
	GrossAmount      decimal.Decimal `gorm:"column:gross_amount;type:decimal(10,2);not null"`
	PlatformFee      decimal.Decimal `gorm:"column:platform_fee;type:decimal(10,2);not null"`
	NetAmount        decimal.Decimal `gorm:"column:net_amount;type:decimal(10,2);not null"`
	Currency         string          `gorm:"size:8;not null"`
	Status           string          `gorm:"size:32;not null"`
	CompletedAt      time.Time       `gorm:"column:completed_at;not null"`
	CreatedAt        time.Time       `gorm:"autoCreateTime"`
}

func (SellerPayout) TableName() string {
	return "seller_payouts"
}

func (p *SellerPayout) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
