package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/repository"
)

// CatalogService manages the product catalog and admin inventory
// adjustments.
type CatalogService struct {
	productRepo repository.ProductRepository
}

func NewCatalogService(productRepo repository.ProductRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo}
}

// ListProducts returns catalog entries matching the filter. Storefront
// callers see active products only; admin callers may include inactive ones.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]entity.Product, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.productRepo.FindAll(ctx, filter)
}

// GetProduct returns one product by ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	Price         decimal.Decimal   `json:"price"`
	Icon          string            `json:"icon"`
	Images        []string          `json:"images"`
	Specification map[string]string `json:"specification"`
	Inventory     int               `json:"inventory"`
	IsActive      *bool             `json:"is_active,omitempty"`
}

func (in *ProductInput) validate() error {
	if in.Name == "" {
		return &entity.ValidationError{Field: "name", Reason: "is required"}
	}
	if in.Price.IsNegative() {
		return &entity.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if in.Inventory < 0 {
		return &entity.ValidationError{Field: "inventory", Reason: "must not be negative"}
	}
	return nil
}

// CreateProduct adds a product to the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*entity.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	product := &entity.Product{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Description:   in.Description,
		Category:      in.Category,
		Price:         in.Price,
		Icon:          in.Icon,
		Images:        in.Images,
		Specification: in.Specification,
		Inventory:     in.Inventory,
		IsActive:      active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	slog.Info("Product created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

// UpdateProduct edits the product's display fields. Inventory is not
// touched here; it moves only through SetInventory and the order workflows.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*entity.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Name = in.Name
	product.Description = in.Description
	product.Category = in.Category
	product.Price = in.Price
	product.Icon = in.Icon
	product.Images = in.Images
	product.Specification = in.Specification
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeactivateProduct hides a product from the storefront. Existing orders
// keep their snapshots; the row is never deleted.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id string) error {
	if err := s.productRepo.Deactivate(ctx, id); err != nil {
		return err
	}
	slog.Info("Product deactivated", "product_id", id)
	return nil
}

// SetInventory replaces the absolute stock count (admin restock/correction).
func (s *CatalogService) SetInventory(ctx context.Context, id string, inventory int) (*entity.Product, error) {
	if err := s.productRepo.SetInventory(ctx, id, inventory); err != nil {
		return nil, err
	}
	slog.Info("Inventory set", "product_id", id, "inventory", inventory)
	return s.productRepo.FindByID(ctx, id)
}

// AdjustInventory applies a relative stock change through the ledger
// primitives: negative deltas go through the conditional reservation so the
// count can never be driven below zero.
func (s *CatalogService) AdjustInventory(ctx context.Context, id string, delta int) (*entity.Product, error) {
	switch {
	case delta == 0:
		return nil, &entity.ValidationError{Field: "delta", Reason: "must not be zero"}
	case delta > 0:
		if err := s.productRepo.Release(ctx, id, delta); err != nil {
			return nil, err
		}
	default:
		if err := s.productRepo.Reserve(ctx, id, -delta); err != nil {
			return nil, err
		}
	}
	return s.productRepo.FindByID(ctx, id)
}
