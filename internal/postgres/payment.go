package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kartelle/storefront/internal/domain/order"
)

const (
	insertPaymentSQL = `INSERT INTO payments
		(id, order_id, provider, external_txn_id, amount, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectPaymentByOrderSQL = `SELECT id, order_id, provider, external_txn_id, amount, status, paid_at
		FROM payments WHERE order_id = $1`
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

var _ order.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository implements order.PaymentRepository backed by PostgreSQL.
type PaymentRepository struct {
	q querier
}

// Create persists a payment record. The unique constraints on order_id and
// external_txn_id back the duplicate-payment rule at the storage level.
func (r *PaymentRepository) Create(ctx context.Context, p *order.Payment) error {
	_, err := r.q.Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.Provider, p.ExternalTxnID, p.Amount, p.Status, p.PaidAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.ErrDuplicatePayment
		}
		return errors.Wrapf(err, "insert payment for order %q", p.OrderID)
	}
	return nil
}

// GetByOrderID returns the payment of an order, or (nil, nil) when none
// exists.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*order.Payment, error) {
	var p order.Payment
	err := r.q.QueryRow(ctx, selectPaymentByOrderSQL, orderID).Scan(
		&p.ID, &p.OrderID, &p.Provider, &p.ExternalTxnID, &p.Amount, &p.Status, &p.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get payment for order %q", orderID)
	}
	return &p, nil
}
