// Package pricing computes checkout quotes, platform fees and seller payouts.
// All amounts are decimal dollars rounded to cents; ToMinorUnits converts for the payment platform.
package pricing

import (
	"errors"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/shopspring/decimal"
)

const (
	DeliveryPickup      = "pickup"
	DeliveryUberExpress = "uber_express"
	DeliveryShipping    = "shipping"
)

// CheckoutExpiry is the lifetime of a hosted checkout session.
const CheckoutExpiry = 30 * time.Minute

var (
	BuyerFeeRate    = decimal.RequireFromString("0.005")
	PlatformFeeRate = decimal.RequireFromString("0.03")
	UberExpressFee  = decimal.NewFromInt(15)
)

var ErrUnknownDeliveryMethod = errors.New("unknown delivery method")

// DeliveryFee returns the fee for method. Shipping uses the listing's own shipping cost.
func DeliveryFee(method string, shippingCost decimal.Decimal) (decimal.Decimal, error) {
	switch method {
	case DeliveryPickup:
		return decimal.Zero, nil
	case DeliveryUberExpress:
		return UberExpressFee, nil
	case DeliveryShipping:
		if shippingCost.IsNegative() {
			return decimal.Zero, nil
		}
		return shippingCost.Round(2), nil
	default:
		return decimal.Zero, ErrUnknownDeliveryMethod
	}
}

func BuyerFee(itemPrice decimal.Decimal) decimal.Decimal {
	return itemPrice.Mul(BuyerFeeRate).Round(2)
}

// BestVoucher picks the voucher with the highest discount whose minimum purchase is met.
// It returns nil when none qualifies.
func BestVoucher(vouchers []model.Voucher, itemPrice decimal.Decimal) *model.Voucher {
	var best *model.Voucher
	for i := range vouchers {
		v := &vouchers[i]
		if v.Status != model.VoucherStatusActive || v.MinPurchaseAmount.GreaterThan(itemPrice) {
			continue
		}
		if !v.DiscountAmount.IsPositive() {
			continue
		}
		if best == nil || v.DiscountAmount.GreaterThan(best.DiscountAmount) {
			best = v
		}
	}
	return best
}

type Quote struct {
	ItemPrice   decimal.Decimal
	DeliveryFee decimal.Decimal
	BuyerFee    decimal.Decimal
	// Discount is the part of the voucher that was actually applied.
	Discount   decimal.Decimal
	ItemCharge decimal.Decimal
	Total      decimal.Decimal
}

// NewQuote builds the checkout breakdown. The voucher only reduces the item line,
// and never below zero.
func NewQuote(itemPrice, deliveryFee, voucherDiscount decimal.Decimal) Quote {
	itemPrice = itemPrice.Round(2)
	charge := itemPrice.Sub(voucherDiscount.Round(2))
	if charge.IsNegative() {
		charge = decimal.Zero
	}
	fee := BuyerFee(itemPrice)
	return Quote{
		ItemPrice:   itemPrice,
		DeliveryFee: deliveryFee,
		BuyerFee:    fee,
		Discount:    itemPrice.Sub(charge),
		ItemCharge:  charge,
		Total:       charge.Add(deliveryFee).Add(fee),
	}
}

type LineItem struct {
	Name string
	// Amount is in minor currency units.
	Amount int64
}

// LineItems returns the item line plus delivery and service fee lines when they are non-zero.
func (q Quote) LineItems(title, deliveryMethod string) []LineItem {
	items := []LineItem{{Name: title, Amount: ToMinorUnits(q.ItemCharge)}}
	if q.DeliveryFee.IsPositive() {
		items = append(items, LineItem{Name: deliveryLabel(deliveryMethod), Amount: ToMinorUnits(q.DeliveryFee)})
	}
	if q.BuyerFee.IsPositive() {
		items = append(items, LineItem{Name: "Buyer protection fee", Amount: ToMinorUnits(q.BuyerFee)})
	}
	return items
}

func deliveryLabel(method string) string {
	switch method {
	case DeliveryUberExpress:
		return "Delivery (Uber Express)"
	case DeliveryShipping:
		return "Delivery (Shipping)"
	default:
		return "Delivery"
	}
}

// PlatformFee is whatever SellerPayout leaves behind, so fee + payout always equals total.
func PlatformFee(total decimal.Decimal) decimal.Decimal {
	return total.Sub(SellerPayout(total))
}

// SellerPayout is round(total * (1 - fee rate), 2).
func SellerPayout(total decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(1).Sub(PlatformFeeRate)).Round(2)
}

func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
