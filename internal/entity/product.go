package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the store catalog.
//
// Inventory is the authoritative stock count and is never negative: it is
// only decremented through the conditional reservation in the repository
// layer, and incremented back when an order is cancelled.
type Product struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	Price         decimal.Decimal   `json:"price"`
	Icon          string            `json:"icon"`
	Images        []string          `json:"images"`
	Specification map[string]string `json:"specification"`
	Inventory     int               `json:"inventory"`
	IsActive      bool              `json:"is_active"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// SnapshotVersion identifies the layout of ProductSnapshot so historical
// snapshots stay readable if the Product schema evolves.
const SnapshotVersion = 1

// ProductSnapshot is a frozen copy of a product's public fields taken at the
// moment of purchase. Order lines keep it for audit and display even if the
// product is later edited or deactivated.
type ProductSnapshot struct {
	Version       int               `json:"version"`
	ProductID     string            `json:"product_id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	Price         decimal.Decimal   `json:"price"`
	Icon          string            `json:"icon"`
	Images        []string          `json:"images"`
	Specification map[string]string `json:"specification"`
}

// Snapshot captures the product's current public fields. Slices and maps
// are copied so later catalog edits cannot reach into the frozen record.
func (p *Product) Snapshot() ProductSnapshot {
	images := make([]string, len(p.Images))
	copy(images, p.Images)
	spec := make(map[string]string, len(p.Specification))
	for k, v := range p.Specification {
		spec[k] = v
	}
	return ProductSnapshot{
		Version:       SnapshotVersion,
		ProductID:     p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		Icon:          p.Icon,
		Images:        images,
		Specification: spec,
	}
}
