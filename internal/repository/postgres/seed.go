package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront/internal/entity"
)

// SeedProducts inserts a starter catalog if the products table is empty.
// Useful for local development; a no-op on an already-populated database.
func SeedProducts(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil // already seeded
	}

	now := time.Now()
	products := []entity.Product{
		{
			ID: "prod-keyboard", Name: "Mechanical Keyboard", Category: "peripherals",
			Description: "Hot-swappable 87-key board with PBT caps.",
			Price:       decimal.NewFromFloat(89.99), Inventory: 40, IsActive: true,
			Specification: map[string]string{"layout": "TKL", "switches": "brown"},
		},
		{
			ID: "prod-mouse", Name: "Wireless Mouse", Category: "peripherals",
			Description: "Lightweight 2.4GHz mouse, 70h battery.",
			Price:       decimal.NewFromFloat(39.50), Inventory: 120, IsActive: true,
			Specification: map[string]string{"dpi": "16000"},
		},
		{
			ID: "prod-monitor", Name: "27in 4K Monitor", Category: "displays",
			Description: "IPS panel, 144Hz, USB-C power delivery.",
			Price:       decimal.NewFromFloat(429.00), Inventory: 15, IsActive: true,
			Specification: map[string]string{"panel": "IPS", "refresh": "144Hz"},
		},
	}

	repo := NewProductRepository(db)
	for i := range products {
		products[i].CreatedAt = now
		products[i].UpdatedAt = now
		if err := repo.Create(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].ID, err)
		}
	}
	return nil
}
