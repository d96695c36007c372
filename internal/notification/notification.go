package notification

import (
	"context"

	"github.com/storefront-labs/storefront/internal/entity"
)

// Notifier is the hook invoked after a successful order placement and after
// status changes. Implementations must not affect the caller's outcome:
// errors are logged by the caller and swallowed, never propagated to the
// customer-facing request.
type Notifier interface {
	OrderPlaced(ctx context.Context, user *entity.User, order *entity.Order) error
	OrderStatusChanged(ctx context.Context, user *entity.User, order *entity.Order, previous entity.OrderStatus) error
}

// Noop discards all notifications. Used in tests and in deployments without
// an SMTP relay configured.
type Noop struct{}

func (Noop) OrderPlaced(context.Context, *entity.User, *entity.Order) error {
	return nil
}

func (Noop) OrderStatusChanged(context.Context, *entity.User, *entity.Order, entity.OrderStatus) error {
	return nil
}
