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

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = "id, name, description, category, price, icon, images, specification, inventory, is_active, created_at, updated_at"

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	images, spec, err := marshalProductJSON(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Icon, images, spec, p.Inventory, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	images, spec, err := marshalProductJSON(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = $2, description = $3, category = $4, price = $5, icon = $6,
			images = $7, specification = $8, is_active = $9, updated_at = $10 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Icon, images, spec, p.IsActive, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireRow(res)
}

func (r *productRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	return requireRow(res)
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (r *productRepository) FindAll(ctx context.Context, filter repository.ProductFilter) ([]entity.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE 1=1"
	var args []any
	if filter.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	query += " ORDER BY name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *productRepository) SetInventory(ctx context.Context, id string, inventory int) error {
	if inventory < 0 {
		return &entity.ValidationError{Field: "inventory", Reason: "must not be negative"}
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET inventory = $2, updated_at = NOW() WHERE id = $1", id, inventory)
	if err != nil {
		return fmt.Errorf("failed to set inventory: %w", err)
	}
	return requireRow(res)
}

func (r *productRepository) Reserve(ctx context.Context, productID string, quantity int) error {
	return reserveStock(ctx, r.db, productID, quantity)
}

func (r *productRepository) Release(ctx context.Context, productID string, quantity int) error {
	return releaseStock(ctx, r.db, productID, quantity)
}

// execer lets the reservation primitives run against either the pool or an
// open transaction, so order creation and cancellation share the exact same
// statements.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reserveStock decrements inventory only if the current count covers the
// request. The guard lives in the WHERE clause so concurrent reservations
// for the same product cannot interleave a stale read with the write.
func reserveStock(ctx context.Context, q execer, productID string, quantity int) error {
	if quantity <= 0 {
		return &entity.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	res, err := q.ExecContext(ctx,
		"UPDATE products SET inventory = inventory - $1, updated_at = NOW() WHERE id = $2 AND inventory >= $1",
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read reservation result: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing updated: either the product is gone or the stock is short.
	var available int
	err = q.QueryRowContext(ctx, "SELECT inventory FROM products WHERE id = $1", productID).Scan(&available)
	if err == sql.ErrNoRows {
		return entity.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query inventory: %w", err)
	}
	return &entity.InsufficientInventoryError{ProductID: productID, Requested: quantity, Available: available}
}

func releaseStock(ctx context.Context, q execer, productID string, quantity int) error {
	if quantity <= 0 {
		return &entity.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	res, err := q.ExecContext(ctx,
		"UPDATE products SET inventory = inventory + $1, updated_at = NOW() WHERE id = $2",
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func marshalProductJSON(p *entity.Product) (images, spec []byte, err error) {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Specification == nil {
		p.Specification = map[string]string{}
	}
	images, err = json.Marshal(p.Images)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal product images: %w", err)
	}
	spec, err = json.Marshal(p.Specification)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal product specification: %w", err)
	}
	return images, spec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	var images, spec []byte
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Icon,
		&images, &spec, &p.Inventory, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product images: %w", err)
	}
	if err := json.Unmarshal(spec, &p.Specification); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product specification: %w", err)
	}
	return &p, nil
}
