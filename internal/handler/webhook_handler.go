package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/service"
)

const maxWebhookBody = 1 << 16

type WebhookHandler struct {
	svc service.WebhookService
}

func NewWebhookHandler(svc service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Stripe reads the raw body; the signature covers the exact bytes.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	sig := c.Request().Header.Get("Stripe-Signature")
	if sig == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_signature", "missing Stripe-Signature header"))
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "failed to read body"))
	}
	if err := h.svc.Handle(c.Request().Context(), body, sig); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_signature", "webhook signature verification failed"))
		}
		obs.FromContext(c.Request().Context()).Error("webhook_processing_failed", "err", err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "webhook processing failed"))
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
