package service

import (
	"context"

	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
)

const (
	NotifyPurchaseCompleted = "purchase_completed"
	NotifyItemSold          = "item_sold"
	NotifyFundsReleased     = "funds_released"
	NotifyPayoutSent        = "payout_sent"
	NotifyOfferReceived     = "offer_received"
	NotifyOfferAccepted     = "offer_accepted"
	NotifyOfferRejected     = "offer_rejected"
	NotifyOfferCountered    = "offer_countered"
	NotifyOfferCancelled    = "offer_cancelled"
)

// NotificationRef links a notification to the rows it is about. Empty fields are left null.
type NotificationRef struct {
	ProductID  string
	OfferID    string
	PurchaseID string
}

type NotificationService interface {
	Notify(ctx context.Context, userID, typ, title, body string, ref NotificationRef)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort; it logs errors but does not return them to avoid breaking main flows.
func (s *notificationService) Notify(ctx context.Context, userID, typ, title, body string, ref NotificationRef) {
	if userID == "" || typ == "" {
		return
	}
	n := &model.Notification{
		UserID:     userID,
		Type:       typ,
		Title:      title,
		Body:       body,
		ProductID:  optional(ref.ProductID),
		OfferID:    optional(ref.OfferID),
		PurchaseID: optional(ref.PurchaseID),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		obs.FromContext(ctx).Warn("notification_write_failed", "user_id", userID, "type", typ, "err", err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
