package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront/internal/entity"
)

// UserRepository handles persistence for Users.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

// ProductRepository handles persistence for Products, including the
// inventory ledger primitives.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	Update(ctx context.Context, product *entity.Product) error
	Deactivate(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]entity.Product, error)
	SetInventory(ctx context.Context, id string, inventory int) error

	// Reserve atomically decrements inventory by quantity only if the
	// current inventory covers it: a single conditional update, never a
	// read followed by a write. Insufficient stock is reported as an
	// *entity.InsufficientInventoryError, a missing product as
	// entity.ErrNotFound.
	Reserve(ctx context.Context, productID string, quantity int) error

	// Release unconditionally increments inventory by quantity. Restoring
	// more than was ever reserved is a caller bug, not guarded here.
	Release(ctx context.Context, productID string, quantity int) error
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// OrderRepository handles persistence for Orders.
//
// Create is the atomic boundary of order placement: within one database
// transaction it reserves inventory for every line first, then inserts the
// header and all lines. Any reservation failure rolls the whole unit back,
// so a failed placement leaves zero order rows and zero inventory change.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]entity.Order, error)
	FindRecent(ctx context.Context, limit int) ([]entity.Order, error)
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error
	UpdateTracking(ctx context.Context, id string, trackingNumber string) error

	// Cancel releases every line's quantity back to inventory and flips the
	// order status to cancelled in one transaction.
	Cancel(ctx context.Context, order *entity.Order) error
}

// CartRepository handles persistence for carts. The Postgres implementation
// backs authenticated carts; the Redis implementation backs guest session
// carts.
type CartRepository interface {
	Get(ctx context.Context, owner string) (*entity.Cart, error)
	Save(ctx context.Context, cart *entity.Cart) error
	Clear(ctx context.Context, owner string) error
}

// SalesSummary is the admin dashboard aggregate.
type SalesSummary struct {
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	OrdersByStatus map[string]int   `json:"orders_by_status"`
	TopProducts    []ProductSales   `json:"top_products"`
	LowStock       []entity.Product `json:"low_stock"`
}

// ProductSales is one row of the top-products report.
type ProductSales struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitsSold int    `json:"units_sold"`
}

// AnalyticsRepository computes the admin dashboard aggregates.
type AnalyticsRepository interface {
	Summary(ctx context.Context, lowStockThreshold int) (*SalesSummary, error)
}
