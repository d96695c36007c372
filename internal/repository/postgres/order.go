package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// Create persists the order header and all lines and reserves inventory for
// every line, in a single transaction. Reservations run first; the moment
// one fails the transaction rolls back, so a failed placement leaves no
// order rows and no inventory change for any product in the request.
func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, line := range order.Lines {
		if err := reserveStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total_amount, status, payment_status, payment_method,
			shipping_street, shipping_city, shipping_state, shipping_zip, shipping_country,
			tracking_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		order.ID, order.UserID, order.TotalAmount, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.ShippingAddress.Street, order.ShippingAddress.City, order.ShippingAddress.State,
		order.ShippingAddress.Zip, order.ShippingAddress.Country,
		order.TrackingNumber, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, line := range order.Lines {
		snapshot, err := json.Marshal(line.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal product snapshot: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_lines (id, order_id, product_id, quantity, price, product_snapshot) VALUES ($1, $2, $3, $4, $5, $6)",
			line.ID, order.ID, line.ProductID, line.Quantity, line.Price, snapshot,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Cancel flips the order to cancelled and restores each line's quantity to
// inventory, atomically. The status flip is conditional on the order still
// being cancellable, so two concurrent cancellations cannot both restore
// stock.
func (r *orderRepository) Cancel(ctx context.Context, order *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('cancelled', 'shipped', 'delivered')`,
		order.ID, entity.OrderStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read cancellation result: %w", err)
	}
	if affected == 0 {
		return &entity.CancellationNotAllowedError{
			OrderID: order.ID, Status: order.Status, Reason: "order is no longer cancellable",
		}
	}

	for _, line := range order.Lines {
		if err := releaseStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, total_amount, status, payment_status, payment_method,
	shipping_street, shipping_city, shipping_state, shipping_zip, shipping_country,
	tracking_number, created_at, updated_at`

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) FindByUser(ctx context.Context, userID string, limit int) ([]entity.Order, error) {
	return r.findMany(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userID, limit)
}

func (r *orderRepository) FindRecent(ctx context.Context, limit int) ([]entity.Order, error) {
	return r.findMany(ctx,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT $1", limit)
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return requireRow(res)
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET payment_status = $2, updated_at = NOW() WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return requireRow(res)
}

func (r *orderRepository) UpdateTracking(ctx context.Context, id string, trackingNumber string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET tracking_number = $2, updated_at = NOW() WHERE id = $1", id, trackingNumber)
	if err != nil {
		return fmt.Errorf("failed to update tracking number: %w", err)
	}
	return requireRow(res)
}

func (r *orderRepository) findMany(ctx context.Context, query string, args ...any) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadLines(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) loadLines(ctx context.Context, o *entity.Order) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, order_id, product_id, quantity, price, product_snapshot FROM order_lines WHERE order_id = $1 ORDER BY id",
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line entity.OrderLine
		var snapshot []byte
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.Price, &snapshot); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		if err := json.Unmarshal(snapshot, &line.Snapshot); err != nil {
			return fmt.Errorf("failed to unmarshal product snapshot: %w", err)
		}
		o.Lines = append(o.Lines, line)
	}
	return rows.Err()
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var o entity.Order
	var userID sql.NullString
	var createdAt, updatedAt time.Time
	err := row.Scan(&o.ID, &userID, &o.TotalAmount, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.Zip, &o.ShippingAddress.Country,
		&o.TrackingNumber, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	o.UserID = userID.String
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	return &o, nil
}
