package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
)

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer queues payouts for purchases whose funds were released.
type Enqueuer struct {
	client taskClient
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueuePayout is a no-op when a payout task for the purchase is already queued.
func (e *Enqueuer) EnqueuePayout(ctx context.Context, purchaseID string) error {
	task, err := NewPayoutTask(purchaseID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		obs.FromContext(ctx).Info("payout_already_queued", "purchase_id", purchaseID)
		return nil
	}
	if err != nil {
		return err
	}
	obs.FromContext(ctx).Info("payout_queued", "purchase_id", purchaseID, "task_id", info.ID, "queue", info.Queue)
	return nil
}
