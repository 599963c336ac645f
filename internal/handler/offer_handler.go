package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/service"
	"github.com/shopspring/decimal"
)

type OfferHandler struct {
	svc service.OfferService
}

func NewOfferHandler(svc service.OfferService) *OfferHandler {
	return &OfferHandler{svc: svc}
}

type OfferResponse struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"productId"`
	BuyerID       string   `json:"buyerId"`
	SellerID      string   `json:"sellerId"`
	OriginalPrice float64  `json:"originalPrice"`
	OfferAmount   float64  `json:"offerAmount"`
	CounterAmount *float64 `json:"counterAmount,omitempty"`
	Message       string   `json:"message,omitempty"`
	Status        string   `json:"status"`
	ExpiresAt     string   `json:"expiresAt"`
	RespondedAt   *string  `json:"respondedAt,omitempty"`
	CreatedAt     string   `json:"createdAt"`
}

func toOfferResponse(o *model.Offer) OfferResponse {
	resp := OfferResponse{
		ID:            o.ID,
		ProductID:     o.ProductID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		OriginalPrice: o.OriginalPrice.InexactFloat64(),
		OfferAmount:   o.OfferAmount.InexactFloat64(),
		Message:       o.Message,
		Status:        string(o.Status),
		ExpiresAt:     o.ExpiresAt.Format(time.RFC3339),
		RespondedAt:   formatTime(o.RespondedAt),
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if o.CounterAmount.Valid {
		v := o.CounterAmount.Decimal.InexactFloat64()
		resp.CounterAmount = &v
	}
	return resp
}

func toOfferList(list []model.Offer) []OfferResponse {
	resp := make([]OfferResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toOfferResponse(&list[i]))
	}
	return resp
}

type CreateOfferRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}

type CounterOfferRequest struct {
	CounterAmount decimal.Decimal `json:"counterAmount"`
}

type ReviseOfferRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *OfferHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var req CreateOfferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	o, err := h.svc.Create(c.Request().Context(), uid, c.Param("id"), req.Amount, req.Message)
	if err != nil {
		return writeError(c, err, "failed to create offer")
	}
	return c.JSON(http.StatusCreated, toOfferResponse(o))
}

func (h *OfferHandler) Accept(c echo.Context) error {
	return h.respond(c, func(uid, id string) (*model.Offer, error) {
		return h.svc.Accept(c.Request().Context(), uid, id)
	})
}

func (h *OfferHandler) Reject(c echo.Context) error {
	return h.respond(c, func(uid, id string) (*model.Offer, error) {
		return h.svc.Reject(c.Request().Context(), uid, id)
	})
}

func (h *OfferHandler) Counter(c echo.Context) error {
	var req CounterOfferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	return h.respond(c, func(uid, id string) (*model.Offer, error) {
		return h.svc.Counter(c.Request().Context(), uid, id, req.CounterAmount)
	})
}

func (h *OfferHandler) Cancel(c echo.Context) error {
	return h.respond(c, func(uid, id string) (*model.Offer, error) {
		return h.svc.Cancel(c.Request().Context(), uid, id)
	})
}

func (h *OfferHandler) AcceptCounter(c echo.Context) error {
	return h.respond(c, func(uid, id string) (*model.Offer, error) {
		return h.svc.AcceptCounter(c.Request().Context(), uid, id)
	})
}

func (h *OfferHandler) Revise(c echo.Context) error {
	var req ReviseOfferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	return h.respond(c, func(uid, id string) (*model.Offer, error) {
		return h.svc.Revise(c.Request().Context(), uid, id, req.Amount)
	})
}

func (h *OfferHandler) respond(c echo.Context, act func(uid, id string) (*model.Offer, error)) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	o, err := act(uid, c.Param("id"))
	if err != nil {
		return writeError(c, err, "failed to update offer")
	}
	return c.JSON(http.StatusOK, toOfferResponse(o))
}

func (h *OfferHandler) ListMine(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	list, err := h.svc.ListMine(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "failed to fetch offers")
	}
	return c.JSON(http.StatusOK, toOfferList(list))
}

func (h *OfferHandler) ListForProduct(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	list, err := h.svc.ListForProduct(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, err, "failed to fetch offers")
	}
	return c.JSON(http.StatusOK, toOfferList(list))
}
