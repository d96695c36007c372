package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus tracks payment independently of fulfillment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// ParseOrderStatus validates a caller-supplied status value.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	default:
		return "", &InvalidStatusError{Status: s}
	}
}

// ParsePaymentStatus validates a caller-supplied payment status value.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded:
		return st, nil
	default:
		return "", &InvalidStatusError{Status: s}
	}
}

// Address is the structured shipping address, snapshotted at order time.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// OrderLine is a line item within an order. Price is the unit price captured
// at order time; it is decoupled from the live product price so later price
// changes never alter historical orders.
type OrderLine struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Snapshot  ProductSnapshot `json:"product_snapshot"`
}

// Subtotal returns price * quantity for the line.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a customer order: header fields plus an ordered list of lines.
// TotalAmount is computed once at creation and never recomputed.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Lines           []OrderLine     `json:"lines"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress Address         `json:"shipping_address"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CanCancel reports whether the order may still be cancelled. Shipped and
// delivered orders are past the point of no return; a cancelled order must
// not be cancelled twice or its inventory would be restored twice.
func (o *Order) CanCancel() error {
	switch o.Status {
	case OrderStatusCancelled:
		return &CancellationNotAllowedError{OrderID: o.ID, Status: o.Status, Reason: "order is already cancelled"}
	case OrderStatusShipped, OrderStatusDelivered:
		return &CancellationNotAllowedError{OrderID: o.ID, Status: o.Status, Reason: "order has already shipped"}
	default:
		return nil
	}
}
