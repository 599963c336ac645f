// Package obs holds the structured logger shared by the API and the worker.
package obs

import (
	"context"
	"log/slog"
	"os"

	"github.com/pedalmarket/marketplace-backend/internal/logctx"
)

// Logger is the global structured logger used by the service.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// InitLogger replaces Logger with a JSON handler at the given level.
func InitLogger(level slog.Level) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	Logger = slog.New(h)
	slog.SetDefault(Logger)
}

// FromContext returns Logger annotated with whatever correlation values ctx carries.
func FromContext(ctx context.Context) *slog.Logger {
	l := Logger
	if ctx == nil {
		return l
	}
	if rid := logctx.RID(ctx); rid != "" {
		l = l.With("request_id", rid)
	}
	if uid := logctx.UID(ctx); uid != "" {
		l = l.With("uid", uid)
	}
	if pid := logctx.PurchaseID(ctx); pid != "" {
		l = l.With("purchase_id", pid)
	}
	return l
}
