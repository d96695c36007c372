package entity

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a referenced row does not exist. Repositories
// return it for missing users, products, orders and carts; callers
// distinguish it from "insufficient stock" with errors.Is.
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed request. It is the caller's fault and
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// ProductUnavailableError reports that a requested product is missing from
// the catalog or no longer active.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is unavailable", e.ProductID)
}

// InsufficientInventoryError names the product whose stock could not cover
// the requested quantity. Recoverable by the caller: adjust the request and
// retry.
type InsufficientInventoryError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for product %s (requested %d, available %d)",
		e.ProductID, e.Requested, e.Available)
}

// InvalidStatusError reports a status value outside the known set.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Status)
}

// CancellationNotAllowedError reports an attempt to cancel an order in a
// terminal or shipped state.
type CancellationNotAllowedError struct {
	OrderID string
	Status  OrderStatus
	Reason  string
}

func (e *CancellationNotAllowedError) Error() string {
	return fmt.Sprintf("order %s cannot be cancelled: %s", e.OrderID, e.Reason)
}
