package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/pedalmarket/marketplace-backend/internal/config"
	"github.com/pedalmarket/marketplace-backend/internal/db"
	"github.com/pedalmarket/marketplace-backend/internal/jobs"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/server"
)

func main() {
	_ = godotenv.Load()
	obs.InitLogger(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		obs.Logger.Error("config_load_failed", "err", err)
		os.Exit(1)
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		obs.Logger.Error("db_connect_failed", "err", err)
		os.Exit(1)
	}

	redis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	// No Orders: the worker never handles webhooks, so it never assigns order numbers.
	deps := server.Deps{
		Gateway:  payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.Currency, cfg.ConnectCountry),
		AppURL:   cfg.AppURL,
		Currency: cfg.Currency,
	}
	if cfg.AutoPayoutOnRelease {
		client := asynq.NewClient(redis)
		defer client.Close()
		deps.PayoutQueue = jobs.NewEnqueuer(client)
	}
	svcs := server.NewServices(conn, deps)

	scheduler, err := jobs.NewScheduler(redis, cfg.EscrowSweepSpec, cfg.OfferSweepSpec)
	if err != nil {
		obs.Logger.Error("scheduler_init_failed", "err", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		obs.Logger.Error("scheduler_start_failed", "err", err)
		os.Exit(1)
	}
	defer scheduler.Shutdown()

	mux := asynq.NewServeMux()
	jobs.NewProcessor(svcs.Escrow, svcs.Offers, svcs.Payouts).Register(mux)

	srv := jobs.NewServer(redis, 0)
	obs.Logger.Info("worker_starting", "redis", cfg.RedisAddr,
		"escrow_spec", cfg.EscrowSweepSpec, "offer_spec", cfg.OfferSweepSpec)
	// Run blocks until SIGTERM or SIGINT, then drains in-flight tasks.
	if err := srv.Run(mux); err != nil {
		obs.Logger.Error("worker_stopped", "err", err)
		os.Exit(1)
	}
}
