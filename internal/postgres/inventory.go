package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/kartelle/storefront/internal/domain/inventory"
)

const (
	// reserveSQL decrements stock only when enough is available. The single
	// conditional UPDATE serializes concurrent reservations on the row lock,
	// so quantity can never go negative.
	reserveSQL = `UPDATE inventory
		SET quantity = quantity - $2, updated_at = now()
		WHERE product_id = $1 AND quantity >= $2`

	releaseSQL = `UPDATE inventory
		SET quantity = quantity + $2, updated_at = now()
		WHERE product_id = $1`

	selectInventorySQL = `SELECT product_id, quantity, updated_at
		FROM inventory WHERE product_id = $1`
)

var _ inventory.Ledger = (*InventoryLedger)(nil)

// InventoryLedger implements inventory.Ledger backed by PostgreSQL.
type InventoryLedger struct {
	q querier
}

// Reserve atomically decrements available stock. It returns OutOfStockError
// when the product has insufficient quantity and inventory.ErrNotFound when
// no entry exists at all.
func (r *InventoryLedger) Reserve(ctx context.Context, productID string, qty int64) error {
	tag, err := r.q.Exec(ctx, reserveSQL, productID, qty)
	if err != nil {
		return errors.Wrapf(err, "reserve %d of product %q", qty, productID)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The conditional update matched nothing: either the row is missing or
	// the stock is short. Distinguish for the error report.
	entry, err := r.Get(ctx, productID)
	if err != nil {
		return err
	}
	return &inventory.OutOfStockError{
		ProductID: productID,
		Requested: qty,
		Available: entry.Quantity,
	}
}

// Release increments available stock. Restoring stock is never rejected.
func (r *InventoryLedger) Release(ctx context.Context, productID string, qty int64) error {
	tag, err := r.q.Exec(ctx, releaseSQL, productID, qty)
	if err != nil {
		return errors.Wrapf(err, "release %d of product %q", qty, productID)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

// Get returns the inventory entry for a product.
func (r *InventoryLedger) Get(ctx context.Context, productID string) (*inventory.Entry, error) {
	var e inventory.Entry
	err := r.q.QueryRow(ctx, selectInventorySQL, productID).Scan(&e.ProductID, &e.Quantity, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get inventory for product %q", productID)
	}
	return &e, nil
}
