package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/metrics"
	"github.com/storefront-labs/storefront/internal/notification"
	"github.com/storefront-labs/storefront/internal/repository"
)

// OrderService orchestrates order placement and the order lifecycle.
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	notifier    notification.Notifier
	metrics     *metrics.Metrics
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	notifier notification.Notifier,
	m *metrics.Metrics,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		metrics:     m,
	}
}

// OrderItemInput is one requested line: product and quantity.
type OrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderInput is the full placement request.
type PlaceOrderInput struct {
	UserID          string           `json:"-"`
	ShippingAddress entity.Address   `json:"shipping_address"`
	PaymentMethod   string           `json:"payment_method"`
	PaymentStatus   string           `json:"payment_status,omitempty"`
	Items           []OrderItemInput `json:"items"`
}

func (in *PlaceOrderInput) validate() error {
	if in.UserID == "" {
		return &entity.ValidationError{Field: "user", Reason: "owner is required"}
	}
	if len(in.Items) == 0 {
		return &entity.ValidationError{Field: "items", Reason: "order must have at least one item"}
	}
	for _, item := range in.Items {
		if item.ProductID == "" {
			return &entity.ValidationError{Field: "items", Reason: "product_id is required"}
		}
		if item.Quantity <= 0 {
			return &entity.ValidationError{Field: "items", Reason: "quantity must be positive"}
		}
	}
	addr := in.ShippingAddress
	for field, value := range map[string]string{
		"street": addr.Street, "city": addr.City, "state": addr.State,
		"zip": addr.Zip, "country": addr.Country,
	} {
		if value == "" {
			return &entity.ValidationError{Field: "shipping_address." + field, Reason: "is required"}
		}
	}
	if in.PaymentMethod == "" {
		return &entity.ValidationError{Field: "payment_method", Reason: "is required"}
	}
	return nil
}

// PlaceOrder turns a placement request into a persisted order, or fails with
// nothing persisted and no inventory consumed.
//
// Each line captures the product's price and a snapshot of its public fields
// at this moment; later catalog edits never touch the stored order. The
// per-item inventory pre-check here is informational — the authoritative
// guard is the conditional reservation inside the repository's transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*entity.Order, error) {
	slog.Info("Placing order", "user_id", in.UserID, "items", len(in.Items))

	if err := in.validate(); err != nil {
		s.countPlacementFailure(err)
		return nil, err
	}

	paymentStatus := entity.PaymentStatusPending
	if in.PaymentStatus != "" {
		parsed, err := entity.ParsePaymentStatus(in.PaymentStatus)
		if err != nil {
			s.countPlacementFailure(err)
			return nil, err
		}
		paymentStatus = parsed
	}

	now := time.Now()
	order := &entity.Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		TotalAmount:     decimal.Zero,
		Status:          entity.OrderStatusPending,
		PaymentStatus:   paymentStatus,
		PaymentMethod:   in.PaymentMethod,
		ShippingAddress: in.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range in.Items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if errors.Is(err, entity.ErrNotFound) {
			err = &entity.ProductUnavailableError{ProductID: item.ProductID}
			s.countPlacementFailure(err)
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up product %s: %w", item.ProductID, err)
		}
		if !product.IsActive {
			err = &entity.ProductUnavailableError{ProductID: item.ProductID}
			s.countPlacementFailure(err)
			return nil, err
		}
		if item.Quantity > product.Inventory {
			err = &entity.InsufficientInventoryError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: product.Inventory,
			}
			s.countPlacementFailure(err)
			return nil, err
		}

		line := entity.OrderLine{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
			Snapshot:  product.Snapshot(),
		}
		order.TotalAmount = order.TotalAmount.Add(line.Subtotal())
		order.Lines = append(order.Lines, line)
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.countPlacementFailure(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersPlaced.Inc()
	}
	slog.Info("Order placed", "order_id", order.ID, "total", order.TotalAmount)

	s.notifyPlaced(ctx, order)
	return order, nil
}

// GetOrder returns one order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

// ListUserOrders returns the user's most recent orders.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string, limit int) ([]entity.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.orderRepo.FindByUser(ctx, userID, limit)
}

// ListRecentOrders returns the latest orders across all users (admin view).
func (s *OrderService) ListRecentOrders(ctx context.Context, limit int) ([]entity.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.orderRepo.FindRecent(ctx, limit)
}

// SetStatus moves the order to the given status. Any member of the status
// set is accepted — sequencing is the route layer's call, with one
// exception: moving to cancelled goes through Cancel so inventory is
// restored.
func (s *OrderService) SetStatus(ctx context.Context, orderID, status string) (*entity.Order, error) {
	newStatus, err := entity.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	if newStatus == entity.OrderStatusCancelled {
		return s.Cancel(ctx, orderID)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status

	if err := s.orderRepo.UpdateStatus(ctx, orderID, newStatus); err != nil {
		return nil, err
	}
	order.Status = newStatus
	order.UpdatedAt = time.Now()
	slog.Info("Order status updated", "order_id", orderID, "from", previous, "to", newStatus)

	if previous != newStatus {
		s.notifyStatusChanged(ctx, order, previous)
	}
	return order, nil
}

// SetPaymentStatus updates the payment axis, independent of fulfillment.
func (s *OrderService) SetPaymentStatus(ctx context.Context, orderID, status string) (*entity.Order, error) {
	newStatus, err := entity.ParsePaymentStatus(status)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdatePaymentStatus(ctx, orderID, newStatus); err != nil {
		return nil, err
	}
	order.PaymentStatus = newStatus
	order.UpdatedAt = time.Now()
	slog.Info("Payment status updated", "order_id", orderID, "payment_status", newStatus)
	return order, nil
}

// AttachTracking sets the shipment tracking number.
func (s *OrderService) AttachTracking(ctx context.Context, orderID, trackingNumber string) (*entity.Order, error) {
	if trackingNumber == "" {
		return nil, &entity.ValidationError{Field: "tracking_number", Reason: "is required"}
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateTracking(ctx, orderID, trackingNumber); err != nil {
		return nil, err
	}
	order.TrackingNumber = trackingNumber
	order.UpdatedAt = time.Now()
	return order, nil
}

// Cancel cancels the order and restores to each product exactly the
// quantity its line originally reserved. Already-cancelled, shipped and
// delivered orders are rejected, so stock is never restored twice.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CanCancel(); err != nil {
		return nil, err
	}
	previous := order.Status

	if err := s.orderRepo.Cancel(ctx, order); err != nil {
		return nil, err
	}
	order.Status = entity.OrderStatusCancelled
	order.UpdatedAt = time.Now()

	if s.metrics != nil {
		s.metrics.OrdersCancelled.Inc()
	}
	slog.Info("Order cancelled", "order_id", orderID, "previous_status", previous)

	s.notifyStatusChanged(ctx, order, previous)
	return order, nil
}

// notifyPlaced invokes the notification hook. Notifier failures are logged
// and swallowed; they never affect the placement outcome.
func (s *OrderService) notifyPlaced(ctx context.Context, order *entity.Order) {
	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil {
		slog.Error("Failed to load order owner for notification", "order_id", order.ID, "err", err)
		return
	}
	if err := s.notifier.OrderPlaced(ctx, user, order); err != nil {
		slog.Error("Failed to send order confirmation", "order_id", order.ID, "err", err)
	}
}

func (s *OrderService) notifyStatusChanged(ctx context.Context, order *entity.Order, previous entity.OrderStatus) {
	if order.UserID == "" {
		return
	}
	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil {
		slog.Error("Failed to load order owner for notification", "order_id", order.ID, "err", err)
		return
	}
	if err := s.notifier.OrderStatusChanged(ctx, user, order, previous); err != nil {
		slog.Error("Failed to send status update", "order_id", order.ID, "err", err)
	}
}

func (s *OrderService) countPlacementFailure(err error) {
	if s.metrics == nil {
		return
	}
	var reason string
	var validationErr *entity.ValidationError
	var unavailableErr *entity.ProductUnavailableError
	var inventoryErr *entity.InsufficientInventoryError
	switch {
	case errors.As(err, &validationErr):
		reason = "validation"
	case errors.As(err, &unavailableErr):
		reason = "product_unavailable"
	case errors.As(err, &inventoryErr):
		reason = "insufficient_inventory"
	default:
		reason = "persistence"
	}
	s.metrics.PlacementFailed.WithLabelValues(reason).Inc()
}
