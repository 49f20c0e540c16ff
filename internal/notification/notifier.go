// Package notification delivers customer emails outside the checkout
// transaction. Delivery is best-effort: failures are retried with exponential
// backoff and then logged, never reported to the caller.
package notification

import (
	"context"

	"storefront/internal/model"
)

// Notifier sends a single notification synchronously.
type Notifier interface {
	NotifyAccountCreated(ctx context.Context, email, tempPassword string) error
	NotifyOrderConfirmed(ctx context.Context, email string, order model.Order, items []model.OrderItem) error
}

// Gateway schedules notifications without blocking the caller.
type Gateway interface {
	AccountCreated(email, tempPassword string)
	OrderConfirmed(email string, order model.Order, items []model.OrderItem)
}
