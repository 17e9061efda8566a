// Package inventory defines the per-product available-quantity ledger.
package inventory

import (
	"context"
	"fmt"
	"time"
)

// ErrNotFound indicates no inventory entry exists for the product.
var ErrNotFound = fmt.Errorf("inventory entry not found")

// OutOfStockError indicates a reservation larger than the available quantity.
type OutOfStockError struct {
	ProductID string
	Requested int64
	Available int64
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Entry is the available quantity of one product. Quantity never goes below
// zero; any decrement that would violate this is rejected before commit.
type Entry struct {
	ProductID string
	Quantity  int64
	UpdatedAt time.Time
}

// Ledger provides atomic reserve and release of product stock. Reserve must
// be safe under concurrent callers targeting the same product: two
// simultaneous reservations of the last unit must not both succeed. Release
// always succeeds: restoring stock is not rejectable.
type Ledger interface {
	Reserve(ctx context.Context, productID string, qty int64) error
	Release(ctx context.Context, productID string, qty int64) error
	Get(ctx context.Context, productID string) (*Entry, error)
}
