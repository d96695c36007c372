package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront/internal/repository"
)

type analyticsRepository struct {
	db *sql.DB
}

// NewAnalyticsRepository creates the Postgres-backed analytics reader for
// the admin dashboard.
func NewAnalyticsRepository(db *sql.DB) repository.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Summary(ctx context.Context, lowStockThreshold int) (*repository.SalesSummary, error) {
	summary := &repository.SalesSummary{
		TotalRevenue:   decimal.Zero,
		OrdersByStatus: make(map[string]int),
	}

	// Revenue counts only orders whose payment actually completed.
	var revenue sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE payment_status = 'completed'",
	).Scan(&revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to query total revenue: %w", err)
	}
	if revenue.Valid {
		summary.TotalRevenue, err = decimal.NewFromString(revenue.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total revenue: %w", err)
		}
	}

	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to query order counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		summary.OrdersByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order counts: %w", err)
	}

	topRows, err := r.db.QueryContext(ctx, `
		SELECT l.product_id, COALESCE(p.name, l.product_snapshot->>'name', ''), SUM(l.quantity) AS units
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		LEFT JOIN products p ON p.id = l.product_id
		WHERE o.status <> 'cancelled'
		GROUP BY l.product_id, p.name, l.product_snapshot->>'name'
		ORDER BY units DESC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer topRows.Close()
	for topRows.Next() {
		var ps repository.ProductSales
		if err := topRows.Scan(&ps.ProductID, &ps.Name, &ps.UnitsSold); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		summary.TopProducts = append(summary.TopProducts, ps)
	}
	if err := topRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top products: %w", err)
	}

	lowRows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE is_active = TRUE AND inventory < $1 ORDER BY inventory ASC",
		lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock products: %w", err)
	}
	defer lowRows.Close()
	for lowRows.Next() {
		p, err := scanProduct(lowRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan low stock product: %w", err)
		}
		summary.LowStock = append(summary.LowStock, *p)
	}
	return summary, lowRows.Err()
}
