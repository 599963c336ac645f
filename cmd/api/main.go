package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/pedalmarket/marketplace-backend/internal/ai"
	"github.com/pedalmarket/marketplace-backend/internal/config"
	"github.com/pedalmarket/marketplace-backend/internal/db"
	"github.com/pedalmarket/marketplace-backend/internal/jobs"
	"github.com/pedalmarket/marketplace-backend/internal/middleware"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/ordernum"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/server"
)

var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()
	obs.InitLogger(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		obs.Logger.Error("config_load_failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg)
	if err != nil {
		obs.Logger.Error("db_connect_failed", "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(conn); err != nil {
		obs.Logger.Error("db_migrate_failed", "err", err)
		os.Exit(1)
	}

	orders, err := ordernum.New(cfg.NodeID)
	if err != nil {
		obs.Logger.Error("ordernum_init_failed", "node_id", cfg.NodeID, "err", err)
		os.Exit(1)
	}

	deps := server.Deps{
		Gateway:  payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.Currency, cfg.ConnectCountry),
		Orders:   orders,
		AppURL:   cfg.AppURL,
		Currency: cfg.Currency,
	}
	if cfg.AutoPayoutOnRelease {
		queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer queue.Close()
		deps.PayoutQueue = jobs.NewEnqueuer(queue)
	}

	describer, err := ai.NewDescriptionClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		obs.Logger.Error("ai_client_init_failed", "err", err)
		os.Exit(1)
	}
	if cfg.GeminiAPIKey == "" {
		obs.Logger.Warn("ai_description_disabled", "reason", "GEMINI_API_KEY not set")
	}

	auth, err := middleware.NewAuthMiddleware(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsJSON, cfg.IsAdmin)
	if err != nil {
		obs.Logger.Error("auth_init_failed", "err", err)
		os.Exit(1)
	}

	srv := server.New(server.NewServices(conn, deps), server.Options{
		Auth:           auth,
		Describer:      describer,
		FrontendOrigin: cfg.FrontendURL,
		RateLimit:      cfg.RateLimitPerSecond,
		SHA:            gitSHA,
		BuildTime:      buildTime,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		obs.Logger.Info("server_starting", "addr", addr, "auto_payout", cfg.AutoPayoutOnRelease)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Logger.Error("server_stopped", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			obs.Logger.Error("server_shutdown_failed", "err", err)
		}
		obs.Logger.Info("server_stopped")
	}
}
