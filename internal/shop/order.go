package shop

import (
	"context"
	"log/slog"
)

// PlaceHook observes committed orders. Hooks run synchronously after the order
// transaction commits and cannot fail the placement.
type PlaceHook interface {
	AfterPlace(ctx context.Context, orderID int64)
}

// OrderService places orders and notifies hooks.
type OrderService struct {
	store  *Store
	hooks  []PlaceHook
	logger *slog.Logger
}

// NewOrderService wires checkout against store.
func NewOrderService(store *Store, logger *slog.Logger, hooks ...PlaceHook) *OrderService {
	return &OrderService{store: store, hooks: hooks, logger: logger}
}

// Place commits the order, then runs every hook. The returned order is exactly what
// the store committed regardless of hook behaviour.
func (o *OrderService) Place(ctx context.Context, req NewOrder) (Order, error) {
	order, err := o.store.PlaceOrder(ctx, req)
	if err != nil {
		return Order{}, err
	}
	o.logger.Info("order placed", "order_id", order.ID, "lines", len(order.Items), "customer_email", order.CustomerEmail)
	for _, hook := range o.hooks {
		hook.AfterPlace(ctx, order.ID)
	}
	return order, nil
}
