package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/service"
)

type ConnectHandler struct {
	svc service.ConnectService
}

func NewConnectHandler(svc service.ConnectService) *ConnectHandler {
	return &ConnectHandler{svc: svc}
}

type ConnectStatusResponse struct {
	AccountID          string  `json:"accountId,omitempty"`
	Status             string  `json:"status"`
	DetailsSubmitted   bool    `json:"detailsSubmitted"`
	PayoutsEnabled     bool    `json:"payoutsEnabled"`
	OnboardingComplete bool    `json:"onboardingComplete"`
	CheckedAt          *string `json:"checkedAt,omitempty"`
	Cached             bool    `json:"cached,omitempty"`
}

func (h *ConnectHandler) CreateAccount(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	link, err := h.svc.CreateAccount(c.Request().Context(), uid, currentEmail(c))
	if err != nil {
		return writeError(c, err, "failed to create connected account")
	}
	return c.JSON(http.StatusOK, map[string]string{"accountId": link.AccountID, "url": link.URL})
}

func (h *ConnectHandler) Status(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	v, err := h.svc.Status(c.Request().Context(), uid, currentEmail(c))
	if err != nil {
		return writeError(c, err, "failed to fetch connect status")
	}
	resp := ConnectStatusResponse{
		AccountID:          v.AccountID,
		Status:             string(v.Status),
		DetailsSubmitted:   v.DetailsSubmitted,
		PayoutsEnabled:     v.PayoutsEnabled,
		OnboardingComplete: v.OnboardingComplete,
		Cached:             v.Cached,
	}
	if v.CheckedAt != nil {
		val := v.CheckedAt.Format(time.RFC3339)
		resp.CheckedAt = &val
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConnectHandler) DashboardLink(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	url, err := h.svc.DashboardLink(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "failed to create dashboard link")
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
