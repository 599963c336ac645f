package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "active"
	ListingStatusPending ListingStatus = "pending"
	ListingStatusSold    ListingStatus = "sold"
	ListingStatusDraft   ListingStatus = "draft"
)

type Product struct {
	ID            string          `gorm:"primaryKey;size:36"`
	SellerID      string          `gorm:"column:seller_id;size:128;index;not null"`
	Title         string          `gorm:"size:160;not null"`
	Brand         string          `gorm:"size:80"`
	Model         string          `gorm:"column:model_name;size:120"`
	Category      string          `gorm:"size:64;index"`
	Condition     string          `gorm:"column:item_condition;size:32"`
	Description   string          `gorm:"type:text"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ShippingCost  decimal.Decimal `gorm:"column:shipping_cost;type:decimal(10,2);not null;default:0"`
	IsActive      bool            `gorm:"column:is_active;not null"`
	ListingStatus ListingStatus   `gorm:"column:listing_status;size:16;index;not null"`
	SoldAt        *time.Time      `gorm:"column:sold_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ListingStatus == "" {
		p.ListingStatus = ListingStatusActive
	}
	return nil
}

// IsSold reports whether a purchase has already completed against this listing.
func (p *Product) IsSold() bool {
	return p.SoldAt != nil || p.ListingStatus == ListingStatusSold
}
