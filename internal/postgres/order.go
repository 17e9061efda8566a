package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartelle/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, account_id, status, subtotal, shipping_fee, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertOrderItemSQL = `INSERT INTO order_items
		(id, order_id, product_id, name_snapshot, price_snapshot, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectOrderSQL = `SELECT id, account_id, status, subtotal, shipping_fee, payment_method,
		COALESCE(cancel_reason, ''), canceled_at, created_at, updated_at
		FROM orders WHERE id = $1`

	selectOrderItemsSQL = `SELECT id, order_id, product_id, name_snapshot, price_snapshot, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders
		SET status = $2, cancel_reason = $3, canceled_at = $4, updated_at = $5
		WHERE id = $1`

	listOrdersSQL = `SELECT id, account_id, status, subtotal, shipping_fee, payment_method,
		COALESCE(cancel_reason, ''), canceled_at, created_at, updated_at
		FROM orders ORDER BY created_at DESC`

	listOrdersByAccountSQL = `SELECT id, account_id, status, subtotal, shipping_fee, payment_method,
		COALESCE(cancel_reason, ''), canceled_at, created_at, updated_at
		FROM orders WHERE account_id = $1 ORDER BY created_at DESC`

	findExpiredPendingSQL = `SELECT id FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at LIMIT $3`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	q querier
}

// NewOrderRepository returns an OrderRepository running directly on the pool.
// Lifecycle mutations go through the unit of work instead; this constructor
// serves callers that only read, such as the expiry scheduler.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{q: pool}
}

// Create persists an order and all its line items.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.q.Exec(ctx, insertOrderSQL,
		o.ID, o.AccountID, o.Status, o.Subtotal, o.ShippingFee, o.PaymentMethod,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}

	for _, item := range o.Items {
		_, err := r.q.Exec(ctx, insertOrderItemSQL,
			item.ID, item.OrderID, item.ProductID,
			item.NameSnapshot, item.PriceSnapshot, item.Quantity,
		)
		if err != nil {
			return errors.Wrapf(err, "insert order item for product %q", item.ProductID)
		}
	}
	return nil
}

// Get loads an order with its line items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, selectOrderSQL, id)
}

// GetForUpdate loads an order with its line items, taking a row-level lock on
// the order row for the remainder of the transaction.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, selectOrderSQL+" FOR UPDATE", id)
}

func (r *OrderRepository) get(ctx context.Context, sql, id string) (*order.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	rows, err := r.q.Query(ctx, selectOrderItemsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order items for %q", id)
	}
	defer rows.Close()

	for rows.Next() {
		var item order.LineItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.NameSnapshot, &item.PriceSnapshot, &item.Quantity); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order items")
	}
	return o, nil
}

// UpdateStatus persists the order status together with the cancellation
// fields and the updated timestamp.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	var reason *string
	if o.CancelReason != "" {
		reason = &o.CancelReason
	}
	tag, err := r.q.Exec(ctx, updateOrderStatusSQL,
		o.ID, o.Status, reason, o.CanceledAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update order %q status", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// List returns all orders, newest first, without line items.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL)
}

// ListByAccount returns one account's orders, newest first, without line
// items.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByAccountSQL, accountID)
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return out, nil
}

// FindExpiredPending returns IDs of orders still PENDING created before
// olderThan, oldest first.
func (r *OrderRepository) FindExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	rows, err := r.q.Query(ctx, findExpiredPendingSQL, order.StatusPending, olderThan, limit)
	if err != nil {
		return nil, errors.Wrap(err, "find expired pending orders")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan order id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate expired orders")
	}
	return ids, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.AccountID, &o.Status, &o.Subtotal, &o.ShippingFee,
		&o.PaymentMethod, &o.CancelReason, &o.CanceledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
