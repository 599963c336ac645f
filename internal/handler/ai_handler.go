package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/ai"
)

// Describer writes listing copy from seller-supplied facts.
type Describer interface {
	Describe(ctx context.Context, facts ai.ListingFacts) (string, error)
}

type AIHandler struct {
	describer Describer
}

func NewAIHandler(describer Describer) *AIHandler {
	return &AIHandler{describer: describer}
}

type describeRequest struct {
	Title     string `json:"title"`
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Category  string `json:"category"`
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

func (h *AIHandler) Describe(c echo.Context) error {
	if currentUID(c) == "" {
		return unauthorized(c)
	}
	var req describeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "title is required"))
	}
	text, err := h.describer.Describe(c.Request().Context(), ai.ListingFacts{
		Title:     req.Title,
		Brand:     req.Brand,
		Model:     req.Model,
		Category:  req.Category,
		Condition: req.Condition,
		Notes:     req.Notes,
	})
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("unavailable", "description generator is not configured"))
		}
		return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_error", "failed to generate description"))
	}
	return c.JSON(http.StatusOK, map[string]string{"description": text})
}
