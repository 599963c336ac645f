package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
)

// NewServer builds the asynq server; payouts get twice the share of the default queue.
func NewServer(redis asynq.RedisConnOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueuePayouts: 6,
			QueueDefault: 3,
		},
		Logger: slogAdapter{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			obs.FromContext(ctx).Error("task_failed", "type", task.Type(), "retried", retried, "err", err)
		}),
	})
}

// NewScheduler registers the periodic sweeps with their cron specs.
func NewScheduler(redis asynq.RedisConnOpt, escrowSpec, offerSpec string) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		Logger: slogAdapter{},
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				obs.Logger.Error("schedule_enqueue_failed", "err", err)
			}
		},
	})
	if _, err := s.Register(escrowSpec, NewEscrowSweepTask()); err != nil {
		return nil, fmt.Errorf("register escrow sweep %q: %w", escrowSpec, err)
	}
	if _, err := s.Register(offerSpec, NewOfferSweepTask()); err != nil {
		return nil, fmt.Errorf("register offer sweep %q: %w", offerSpec, err)
	}
	return s, nil
}

// slogAdapter routes asynq's internal logging into the service logger.
type slogAdapter struct{}

func (slogAdapter) log(level slog.Level, args ...interface{}) {
	obs.Logger.Log(context.Background(), level, fmt.Sprint(args...), "component", "asynq")
}

func (a slogAdapter) Debug(args ...interface{}) { a.log(slog.LevelDebug, args...) }
func (a slogAdapter) Info(args ...interface{})  { a.log(slog.LevelInfo, args...) }
func (a slogAdapter) Warn(args ...interface{})  { a.log(slog.LevelWarn, args...) }
func (a slogAdapter) Error(args ...interface{}) { a.log(slog.LevelError, args...) }

func (a slogAdapter) Fatal(args ...interface{}) {
	a.log(slog.LevelError, args...)
	os.Exit(1)
}
