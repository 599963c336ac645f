// Package jobs runs the background work of the marketplace on asynq: the escrow
// release sweep, offer expiry and seller payouts queued after a release.
package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeEscrowSweep = "escrow:release_sweep"
	TypeOfferSweep  = "offer:expire_sweep"
	TypePayout      = "payout:trigger"

	QueuePayouts = "payouts"
	QueueDefault = "default"
)

const payoutMaxRetry = 5

type PayoutPayload struct {
	PurchaseID string `json:"purchase_id"`
}

// PayoutTaskID keys queued payouts so a purchase has at most one pending task.
func PayoutTaskID(purchaseID string) string {
	return "payout:" + purchaseID
}

func NewPayoutTask(purchaseID string) (*asynq.Task, error) {
	if purchaseID == "" {
		return nil, errors.New("purchase id is required")
	}
	b, err := json.Marshal(PayoutPayload{PurchaseID: purchaseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePayout, b,
		asynq.TaskID(PayoutTaskID(purchaseID)),
		asynq.Queue(QueuePayouts),
		asynq.MaxRetry(payoutMaxRetry),
		asynq.Timeout(time.Minute),
	), nil
}

func NewEscrowSweepTask() *asynq.Task {
	return asynq.NewTask(TypeEscrowSweep, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(0), asynq.Timeout(5*time.Minute))
}

func NewOfferSweepTask() *asynq.Task {
	return asynq.NewTask(TypeOfferSweep, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(0), asynq.Timeout(time.Minute))
}
