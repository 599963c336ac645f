package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusExpired   OfferStatus = "expired"
	OfferStatusCancelled OfferStatus = "cancelled"
)

// OpenOfferStatuses are the states a seller may still act on.
var OpenOfferStatuses = []OfferStatus{OfferStatusPending, OfferStatusCountered}

func (s OfferStatus) Open() bool {
	return s == OfferStatusPending || s == OfferStatusCountered
}

// OfferWindow is the fixed lifetime of an offer.
const OfferWindow = 7 * 24 * time.Hour

type Offer struct {
	ID            string              `gorm:"primaryKey;size:36"`
	ProductID     string              `gorm:"column:product_id;size:36;index;not null"`
	BuyerID       string              `gorm:"column:buyer_id;size:128;index;not null"`
	SellerID      string              `gorm:"column:seller_id;size:128;index;not null"`
	OriginalPrice decimal.Decimal     `gorm:"column:original_price;type:decimal(10,2);not null"`
	OfferAmount   decimal.Decimal     `gorm:"column:offer_amount;type:decimal(10,2);not null"`
	CounterAmount decimal.NullDecimal `gorm:"column:counter_amount;type:decimal(10,2)"`
	Message       string              `gorm:"type:text"`
	Status        OfferStatus         `gorm:"size:16;index;not null"`
	ExpiresAt     time.Time           `gorm:"column:expires_at;index;not null"`
	RespondedAt   *time.Time          `gorm:"column:responded_at"`
	CreatedAt     time.Time           `gorm:"autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime"`
}

func (Offer) TableName() string {
	return "offers"
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Expired reports whether the offer window has passed at now.
func (o *Offer) Expired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}

// AgreedPrice is the price a buyer pays once the offer is accepted.
func (o *Offer) AgreedPrice() decimal.Decimal {
	if o.CounterAmount.Valid {
		return o.CounterAmount.Decimal
	}
	return o.OfferAmount
}
