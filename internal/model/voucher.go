package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type VoucherStatus string

const (
	VoucherStatusActive  VoucherStatus = "active"
	VoucherStatusUsed    VoucherStatus = "used"
	VoucherStatusExpired VoucherStatus = "expired"
)

// Voucher is a stored discount credit applied to a single qualifying purchase.
type Voucher struct {
	ID                string          `gorm:"primaryKey;size:36"`
	UserID            string          `gorm:"column:user_id;size:128;index;not null"`
	Code              string          `gorm:"size:32"`
	DiscountAmount    decimal.Decimal `gorm:"column:discount_amount;type:decimal(10,2);not null"`
	MinPurchaseAmount decimal.Decimal `gorm:"column:min_purchase_amount;type:decimal(10,2);not null;default:0"`
	Status            VoucherStatus   `gorm:"size:16;index;not null"`
	ExpiresAt         *time.Time      `gorm:"column:expires_at"`
	UsedAt            *time.Time      `gorm:"column:used_at"`
	UsedOnPurchaseID  *string         `gorm:"column:used_on_purchase_id;size:36"`
	CreatedAt         time.Time       `gorm:"autoCreateTime"`
}

func (Voucher) TableName() string {
	return "vouchers"
}

func (v *Voucher) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
