package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/service"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	svc service.ProductService
}

func NewProductHandler(svc service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type ProductResponse struct {
	ID            string  `json:"id"`
	SellerID      string  `json:"sellerId"`
	Title         string  `json:"title"`
	Brand         string  `json:"brand,omitempty"`
	Model         string  `json:"model,omitempty"`
	Category      string  `json:"category,omitempty"`
	Condition     string  `json:"condition,omitempty"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	ShippingCost  float64 `json:"shippingCost"`
	IsActive      bool    `json:"isActive"`
	ListingStatus string  `json:"listingStatus"`
	SoldAt        *string `json:"soldAt,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
}

type CreateProductRequest struct {
	Title        string          `json:"title"`
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	Category     string          `json:"category"`
	Condition    string          `json:"condition"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Draft        bool            `json:"draft"`
}

func (h *ProductHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	p, err := h.svc.Create(c.Request().Context(), uid, service.ProductInput{
		Title:        req.Title,
		Brand:        req.Brand,
		Model:        req.Model,
		Category:     req.Category,
		Condition:    req.Condition,
		Description:  req.Description,
		Price:        req.Price,
		ShippingCost: req.ShippingCost,
		Draft:        req.Draft,
	})
	if err != nil {
		return writeError(c, err, "failed to create product")
	}
	return c.JSON(http.StatusCreated, toProductResponse(p))
}

func (h *ProductHandler) Get(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err, "failed to fetch product")
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	products, total, err := h.svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return writeError(c, err, "failed to fetch products")
	}
	resp := ProductListResponse{
		Products: make([]ProductResponse, 0, len(products)),
		Total:    total,
	}
	for i := range products {
		resp.Products = append(resp.Products, toProductResponse(&products[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func toProductResponse(p *model.Product) ProductResponse {
	var soldAt *string
	if p.SoldAt != nil {
		val := p.SoldAt.Format(time.RFC3339)
		soldAt = &val
	}
	return ProductResponse{
		ID:            p.ID,
		SellerID:      p.SellerID,
		Title:         p.Title,
		Brand:         p.Brand,
		Model:         p.Model,
		Category:      p.Category,
		Condition:     p.Condition,
		Description:   p.Description,
		Price:         p.Price.InexactFloat64(),
		ShippingCost:  p.ShippingCost.InexactFloat64(),
		IsActive:      p.IsActive,
		ListingStatus: string(p.ListingStatus),
		SoldAt:        soldAt,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}
