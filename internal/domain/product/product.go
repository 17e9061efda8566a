// Package product holds the catalog read model used when placing orders.
package product

import (
	"context"
	"fmt"
	"time"
)

// ErrNotFound indicates no product exists with the given identifier.
var ErrNotFound = fmt.Errorf("product not found")

// Product is a catalog entry. Price is in integer minor-currency units.
type Product struct {
	ID        string
	Name      string
	Price     int64
	CreatedAt time.Time
}

// Repository defines read access to the catalog.
type Repository interface {
	// GetByIDs fetches products in a single batch. Missing IDs are simply
	// absent from the result; callers decide whether that is an error.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
}
