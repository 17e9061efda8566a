package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartelle/storefront/internal/domain/inventory"
	"github.com/kartelle/storefront/internal/domain/loyalty"
	"github.com/kartelle/storefront/internal/domain/order"
	"github.com/kartelle/storefront/internal/domain/product"
)

var _ order.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs lifecycle operations inside a single PostgreSQL
// transaction. Each transaction is bounded by a timeout so no operation can
// hold row locks indefinitely.
type UnitOfWork struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewUnitOfWork creates a UnitOfWork on the given pool. A non-positive
// timeout disables the per-transaction deadline.
func NewUnitOfWork(pool *pgxpool.Pool, timeout time.Duration) *UnitOfWork {
	return &UnitOfWork{pool: pool, timeout: timeout}
}

// Do begins a transaction, runs fn with repositories bound to it, and commits
// if fn returns nil. Any error rolls the whole transaction back, so aborting
// a request never leaves partially-applied state.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx order.Tx) error) error {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	return pgx.BeginTxFunc(ctx, u.pool, pgx.TxOptions{}, func(ptx pgx.Tx) error {
		return fn(&boundTx{q: ptx})
	})
}

// boundTx hands out repositories all bound to the same pgx.Tx.
type boundTx struct {
	q pgx.Tx
}

func (t *boundTx) Orders() order.Repository            { return &OrderRepository{q: t.q} }
func (t *boundTx) Payments() order.PaymentRepository   { return &PaymentRepository{q: t.q} }
func (t *boundTx) Shipments() order.ShipmentRepository { return &ShipmentRepository{q: t.q} }
func (t *boundTx) Inventory() inventory.Ledger         { return &InventoryLedger{q: t.q} }
func (t *boundTx) Loyalty() loyalty.Ledger             { return &LoyaltyLedger{q: t.q} }
func (t *boundTx) Products() product.Repository        { return &ProductRepository{q: t.q} }
