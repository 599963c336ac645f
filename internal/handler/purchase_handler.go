package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/service"
)

type PurchaseHandler struct {
	svc    service.PurchaseService
	escrow service.EscrowService
}

func NewPurchaseHandler(svc service.PurchaseService, escrow service.EscrowService) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, escrow: escrow}
}

type PurchaseResponse struct {
	ID                 string   `json:"id"`
	OrderNumber        string   `json:"orderNumber"`
	ProductID          string   `json:"productId"`
	BuyerID            string   `json:"buyerId"`
	SellerID           string   `json:"sellerId"`
	DeliveryMethod     string   `json:"deliveryMethod"`
	ItemPrice          float64  `json:"itemPrice"`
	DeliveryCost       float64  `json:"deliveryCost"`
	BuyerFee           float64  `json:"buyerFee"`
	DiscountAmount     float64  `json:"discountAmount"`
	TotalAmount        float64  `json:"totalAmount"`
	PlatformFee        float64  `json:"platformFee"`
	SellerPayoutAmount *float64 `json:"sellerPayoutAmount,omitempty"`
	PaymentStatus      string   `json:"paymentStatus"`
	FundsStatus        string   `json:"fundsStatus"`
	FundsReleaseAt     string   `json:"fundsReleaseAt"`
	FundsReleasedAt    *string  `json:"fundsReleasedAt,omitempty"`
	PayoutStatus       string   `json:"payoutStatus"`
	PaidOutAt          *string  `json:"paidOutAt,omitempty"`
	CreatedAt          string   `json:"createdAt"`
}

type PurchaseWithProductResponse struct {
	Purchase PurchaseResponse `json:"purchase"`
	Product  *ProductResponse `json:"product,omitempty"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	val := t.Format(time.RFC3339)
	return &val
}

func toPurchaseResponse(p *model.Purchase) PurchaseResponse {
	resp := PurchaseResponse{
		ID:              p.ID,
		OrderNumber:     p.OrderNumber,
		ProductID:       p.ProductID,
		BuyerID:         p.BuyerID,
		SellerID:        p.SellerID,
		DeliveryMethod:  p.DeliveryMethod,
		ItemPrice:       p.ItemPrice.InexactFloat64(),
		DeliveryCost:    p.DeliveryCost.InexactFloat64(),
		BuyerFee:        p.BuyerFee.InexactFloat64(),
		DiscountAmount:  p.DiscountAmount.InexactFloat64(),
		TotalAmount:     p.TotalAmount.InexactFloat64(),
		PlatformFee:     p.PlatformFee.InexactFloat64(),
		PaymentStatus:   p.PaymentStatus,
		FundsStatus:     string(p.FundsStatus),
		FundsReleaseAt:  p.FundsReleaseAt.Format(time.RFC3339),
		FundsReleasedAt: formatTime(p.FundsReleasedAt),
		PayoutStatus:    string(p.PayoutStatus),
		PaidOutAt:       formatTime(p.PaidOutAt),
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	if p.SellerPayoutAmount.Valid {
		v := p.SellerPayoutAmount.Decimal.InexactFloat64()
		resp.SellerPayoutAmount = &v
	}
	return resp
}

func toPurchaseWithProduct(row *service.PurchaseWithProduct) PurchaseWithProductResponse {
	resp := PurchaseWithProductResponse{Purchase: toPurchaseResponse(&row.Purchase)}
	if row.Product != nil {
		pr := toProductResponse(row.Product)
		resp.Product = &pr
	}
	return resp
}

func (h *PurchaseHandler) Get(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	row, err := h.svc.Get(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, err, "failed to fetch purchase")
	}
	return c.JSON(http.StatusOK, toPurchaseWithProduct(row))
}

func (h *PurchaseHandler) ListMine(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	list, err := h.svc.ListByBuyer(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "failed to fetch purchases")
	}
	resp := make([]PurchaseWithProductResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toPurchaseWithProduct(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PurchaseHandler) ListSales(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	list, err := h.svc.ListBySeller(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "failed to fetch sales")
	}
	resp := make([]PurchaseWithProductResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toPurchaseWithProduct(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// ConfirmReceipt releases held funds early on the buyer's word.
func (h *PurchaseHandler) ConfirmReceipt(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	p, err := h.escrow.ConfirmReceipt(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, err, "failed to confirm receipt")
	}
	return c.JSON(http.StatusOK, toPurchaseResponse(p))
}
