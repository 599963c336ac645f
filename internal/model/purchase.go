package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FundsStatus string

const (
	FundsStatusHeld         FundsStatus = "held"
	FundsStatusReleased     FundsStatus = "released"
	FundsStatusAutoReleased FundsStatus = "auto_released"
	FundsStatusRefunded     FundsStatus = "refunded"
)

// Releasable reports whether a seller payout may be made against these funds.
func (s FundsStatus) Releasable() bool {
	return s == FundsStatusReleased || s == FundsStatusAutoReleased
}

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
)

const PaymentStatusPaid = "paid"

// EscrowHold is how long funds stay held after a completed checkout.
const EscrowHold = 7 * 24 * time.Hour

type Purchase struct {
	ID                    string              `gorm:"primaryKey;size:36"`
	OrderNumber           string              `gorm:"column:order_number;size:32;uniqueIndex;not null"`
	BuyerID               string              `gorm:"column:buyer_id;size:128;index;not null"`
	SellerID              string              `gorm:"column:seller_id;size:128;index;not null"`
	ProductID             string              `gorm:"column:product_id;size:36;index;not null"`
	DeliveryMethod        string              `gorm:"column:delivery_method;size:32"`
	ItemPrice             decimal.Decimal     `gorm:"column:item_price;type:decimal(10,2);not null"`
	DeliveryCost          decimal.Decimal     `gorm:"column:delivery_cost;type:decimal(10,2);not null"`
	BuyerFee              decimal.Decimal     `gorm:"column:buyer_fee;type:decimal(10,2);not null"`
	DiscountAmount        decimal.Decimal     `gorm:"column:discount_amount;type:decimal(10,2);not null"`
	VoucherID             *string             `gorm:"column:voucher_id;size:36"`
	TotalAmount           decimal.Decimal     `gorm:"column:total_amount;type:decimal(10,2);not null"`
	PlatformFee           decimal.Decimal     `gorm:"column:platform_fee;type:decimal(10,2);not null"`
	SellerPayoutAmount    decimal.NullDecimal `gorm:"column:seller_payout_amount;type:decimal(10,2)"`
	StripeSessionID       string              `gorm:"column:stripe_session_id;size:255;uniqueIndex;not null"`
	StripePaymentIntentID string              `gorm:"column:stripe_payment_intent_id;size:255"`
	PaymentStatus         string              `gorm:"column:payment_status;size:32;not null"`
	FundsStatus           FundsStatus         `gorm:"column:funds_status;size:32;index;not null"`
	FundsReleaseAt        time.Time           `gorm:"column:funds_release_at;index;not null"`
	FundsReleasedAt       *time.Time          `gorm:"column:funds_released_at"`
	PayoutStatus          PayoutStatus        `gorm:"column:payout_status;size:32;not null"`
	StripeTransferID      *string             `gorm:"column:stripe_transfer_id;size:255"`
	PaidOutAt             *time.Time          `gorm:"column:paid_out_at"`
	CreatedAt             time.Time           `gorm:"autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"autoUpdateTime"`
}

func (Purchase) TableName() string {
	return "purchases"
}

func (p *Purchase) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HasTransfer reports whether the seller has already been paid for this purchase.
func (p *Purchase) HasTransfer() bool {
	return p.StripeTransferID != nil && *p.StripeTransferID != ""
}
