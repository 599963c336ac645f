package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pedalmarket/marketplace-backend/internal/handler"
	"github.com/pedalmarket/marketplace-backend/internal/logctx"
	appmw "github.com/pedalmarket/marketplace-backend/internal/middleware"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"golang.org/x/time/rate"
)

type Options struct {
	Auth           *appmw.AuthMiddleware
	Describer      handler.Describer
	FrontendOrigin string
	// RateLimit is requests per second per client IP on checkout and offer writes.
	RateLimit float64
	SHA       string
	BuildTime string
}

type Server struct {
	e *echo.Echo
}

func New(svcs *Services, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, rid string) {
			c.SetRequest(c.Request().WithContext(logctx.WithRID(c.Request().Context(), rid)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			obs.FromContext(c.Request().Context()).Info("http_request",
				"method", v.Method, "uri", v.URI, "status", v.Status,
				"latency_ms", v.Latency.Milliseconds(), "err", v.Error)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(opts.FrontendOrigin),
	}))

	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(opts.RateLimit),
		Burst:     int(opts.RateLimit) * 2,
		ExpiresIn: 3 * time.Minute,
	}))

	productHandler := handler.NewProductHandler(svcs.Products)
	purchaseHandler := handler.NewPurchaseHandler(svcs.Purchases, svcs.Escrow)
	checkoutHandler := handler.NewCheckoutHandler(svcs.Checkout)
	webhookHandler := handler.NewWebhookHandler(svcs.Webhook)
	payoutHandler := handler.NewPayoutHandler(svcs.Payouts, svcs.Escrow)
	connectHandler := handler.NewConnectHandler(svcs.Connect)
	offerHandler := handler.NewOfferHandler(svcs.Offers)
	aiHandler := handler.NewAIHandler(opts.Describer)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    opts.SHA,
			"build_time": opts.BuildTime,
		})
	})

	auth := opts.Auth.RequireAuth
	admin := opts.Auth.RequireAdmin

	api := e.Group("/api")
	api.POST("/webhooks/stripe", webhookHandler.Stripe)
	api.GET("/products", productHandler.List)
	api.GET("/products/:id", productHandler.Get)

	api.POST("/products", productHandler.Create, auth)
	api.POST("/products/describe", aiHandler.Describe, auth)
	api.POST("/checkout", checkoutHandler.Create, limiter, auth)

	api.POST("/products/:id/offers", offerHandler.Create, limiter, auth)
	api.GET("/products/:id/offers", offerHandler.ListForProduct, auth)
	api.GET("/offers/mine", offerHandler.ListMine, auth)
	api.POST("/offers/:id/accept", offerHandler.Accept, limiter, auth)
	api.POST("/offers/:id/reject", offerHandler.Reject, limiter, auth)
	api.POST("/offers/:id/counter", offerHandler.Counter, limiter, auth)
	api.POST("/offers/:id/cancel", offerHandler.Cancel, limiter, auth)
	api.POST("/offers/:id/accept-counter", offerHandler.AcceptCounter, limiter, auth)
	api.POST("/offers/:id/revise", offerHandler.Revise, limiter, auth)

	api.GET("/me/purchases", purchaseHandler.ListMine, auth)
	api.GET("/me/sales", purchaseHandler.ListSales, auth)
	api.GET("/purchases/:id", purchaseHandler.Get, auth)
	api.POST("/purchases/:id/confirm-receipt", purchaseHandler.ConfirmReceipt, auth)

	api.POST("/connect/create-account", connectHandler.CreateAccount, auth)
	api.GET("/connect/status", connectHandler.Status, auth)
	api.POST("/connect/dashboard-link", connectHandler.DashboardLink, auth)

	api.POST("/admin/payouts/trigger", payoutHandler.Trigger, auth, admin)
	api.GET("/admin/balance", payoutHandler.Balance, auth, admin)
	api.POST("/admin/escrow/sweep", payoutHandler.Sweep, auth, admin)

	return &Server{e: e}
}

func allowOrigin(frontend string) func(string) (bool, error) {
	frontend = strings.TrimRight(strings.ToLower(frontend), "/")
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		return frontend != "" && low == frontend, nil
	}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
