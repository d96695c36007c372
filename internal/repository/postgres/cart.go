package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/repository"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates the Postgres-backed cart store used for
// authenticated carts. Guest carts live in Redis.
func NewCartRepository(db *sql.DB) repository.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Get(ctx context.Context, owner string) (*entity.Cart, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, quantity, price FROM cart_items WHERE user_id = $1", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	cart := entity.NewCart(owner)
	for rows.Next() {
		var item entity.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items[item.ProductID] = &item
	}
	return cart, rows.Err()
}

// Save replaces the stored cart with the given one. Delete-then-insert in a
// transaction keeps removals and quantity edits from needing separate paths.
func (r *cartRepository) Save(ctx context.Context, cart *entity.Cart) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", cart.Owner); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	for _, item := range cart.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO cart_items (user_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)",
			cart.Owner, item.ProductID, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cart item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", owner); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
