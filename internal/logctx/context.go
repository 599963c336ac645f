package logctx

import "context"

type ctxKey string

const (
	keyRID      ctxKey = "rid"
	keyUID      ctxKey = "uid"
	keyPurchase ctxKey = "purchase_id"
)

// WithRID stores the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithUID stores the authenticated user id.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, keyUID, uid)
}

// UID returns the authenticated user id if present.
func UID(ctx context.Context) string {
	v, _ := ctx.Value(keyUID).(string)
	return v
}

// WithPurchaseID stores the purchase being processed (webhooks, payouts, sweeps).
func WithPurchaseID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyPurchase, id)
}

// PurchaseID returns purchase id if present.
func PurchaseID(ctx context.Context) string {
	v, _ := ctx.Value(keyPurchase).(string)
	return v
}
