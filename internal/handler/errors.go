package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var serviceErrors = []errorMapping{
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrInvalidInput, http.StatusBadRequest, "bad_request"},
	{service.ErrProductSold, http.StatusBadRequest, "product_sold"},
	{service.ErrProductInactive, http.StatusBadRequest, "product_inactive"},
	{service.ErrSelfPurchase, http.StatusBadRequest, "self_purchase"},
	{service.ErrAlreadyPaidOut, http.StatusBadRequest, "already_paid_out"},
	{service.ErrFundsNotReleasable, http.StatusBadRequest, "funds_not_releasable"},
	{service.ErrNoConnectAccount, http.StatusBadRequest, "no_connect_account"},
	{service.ErrOfferExpired, http.StatusBadRequest, "offer_expired"},
	{service.ErrInvalidOfferAmount, http.StatusBadRequest, "invalid_amount"},
	{service.ErrInvalidOfferState, http.StatusConflict, "invalid_offer_state"},
	{service.ErrOpenOfferExists, http.StatusConflict, "open_offer_exists"},
	{service.ErrPayoutInProgress, http.StatusConflict, "payout_in_progress"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
}

// statusFor maps a service error onto the HTTP taxonomy. Unknown errors are 500.
func statusFor(err error) (int, string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err. Internal errors are logged and replaced by fallback so
// platform and database details stay out of responses.
func writeError(c echo.Context, err error, fallback string) error {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		obs.FromContext(c.Request().Context()).Error("request_failed", "path", c.Path(), "err", err)
		return c.JSON(status, NewErrorResponse(code, fallback))
	}
	return c.JSON(status, NewErrorResponse(code, err.Error()))
}

func currentUID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

func currentEmail(c echo.Context) string {
	email, _ := c.Get("email").(string)
	return email
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}
