package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/service"
)

type CheckoutHandler struct {
	svc service.CheckoutService
}

func NewCheckoutHandler(svc service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type CheckoutRequest struct {
	ProductID      string `json:"productId"`
	DeliveryMethod string `json:"deliveryMethod"`
}

type VoucherResponse struct {
	ID             string  `json:"id"`
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discountAmount"`
}

type CheckoutResponse struct {
	SessionID string           `json:"sessionId"`
	URL       string           `json:"url"`
	Total     float64          `json:"total"`
	Voucher   *VoucherResponse `json:"voucher,omitempty"`
}

func (h *CheckoutHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	res, err := h.svc.CreateSession(c.Request().Context(), service.CheckoutRequest{
		ProductID:      req.ProductID,
		DeliveryMethod: req.DeliveryMethod,
		BuyerID:        uid,
		BuyerEmail:     currentEmail(c),
	})
	if err != nil {
		return writeError(c, err, "failed to create checkout session")
	}
	resp := CheckoutResponse{
		SessionID: res.SessionID,
		URL:       res.URL,
		Total:     res.Quote.Total.InexactFloat64(),
	}
	if v := res.Voucher; v != nil {
		resp.Voucher = &VoucherResponse{ID: v.ID, Code: v.Code, DiscountAmount: v.DiscountAmount.InexactFloat64()}
	}
	return c.JSON(http.StatusOK, resp)
}
