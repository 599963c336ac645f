package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/service"
)

type PayoutHandler struct {
	payouts service.PayoutService
	escrow  service.EscrowService
}

func NewPayoutHandler(payouts service.PayoutService, escrow service.EscrowService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, escrow: escrow}
}

type TriggerPayoutRequest struct {
	PurchaseID string `json:"purchaseId"`
}

type PayoutResponse struct {
	Success    bool          `json:"success"`
	TransferID string        `json:"transfer_id,omitempty"`
	Amount     float64       `json:"amount,omitempty"`
	Logs       []string      `json:"logs"`
	Error      *errorPayload `json:"error,omitempty"`

	// Set for payment platform failures.
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Trigger pays the seller of one purchase. The step log is returned on failure too.
func (h *PayoutHandler) Trigger(c echo.Context) error {
	var req TriggerPayoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	res, err := h.payouts.Trigger(c.Request().Context(), req.PurchaseID)
	resp := PayoutResponse{Logs: []string{}}
	if res != nil {
		resp.Success = res.Success
		resp.TransferID = res.TransferID
		resp.Amount = res.Amount.InexactFloat64()
		if res.Logs != nil {
			resp.Logs = res.Logs
		}
	}
	if err == nil {
		return c.JSON(http.StatusOK, resp)
	}

	var pe *payment.Error
	if errors.As(err, &pe) {
		resp.Message, resp.Type, resp.Code = pe.Message, pe.Type, pe.Code
		return c.JSON(http.StatusInternalServerError, resp)
	}
	status, code := statusFor(err)
	msg := payoutMessage(err)
	if status == http.StatusInternalServerError {
		obs.FromContext(c.Request().Context()).Error("payout_trigger_failed", "err", err)
		msg = "payout failed"
	}
	resp.Error = &errorPayload{Code: code, Message: msg}
	return c.JSON(status, resp)
}

// payoutMessage is the rejection text shown to admins for payout business rules.
func payoutMessage(err error) string {
	var fe *service.FundsStatusError
	switch {
	case errors.As(err, &fe):
		return "Cannot payout - funds_status is: " + string(fe.Status)
	case errors.Is(err, service.ErrAlreadyPaidOut):
		return "Purchase already paid out"
	}
	return err.Error()
}

func (h *PayoutHandler) Balance(c echo.Context) error {
	b, err := h.payouts.Balance(c.Request().Context())
	if err != nil {
		var pe *payment.Error
		if errors.As(err, &pe) {
			return c.JSON(http.StatusInternalServerError, pe)
		}
		return writeError(c, err, "failed to fetch balance")
	}
	return c.JSON(http.StatusOK, b)
}

type SweepResponse struct {
	Released []string `json:"released"`
	Count    int      `json:"count"`
	Enqueued int      `json:"payoutsEnqueued"`
}

// Sweep runs the escrow release sweep now instead of waiting for the schedule.
func (h *PayoutHandler) Sweep(c echo.Context) error {
	res, err := h.escrow.ReleaseDue(c.Request().Context())
	if err != nil {
		return writeError(c, err, "escrow sweep failed")
	}
	released := res.Released
	if released == nil {
		released = []string{}
	}
	return c.JSON(http.StatusOK, SweepResponse{Released: released, Count: len(released), Enqueued: res.Enqueued})
}
