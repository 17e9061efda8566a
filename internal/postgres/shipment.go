package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kartelle/storefront/internal/domain/order"
)

const (
	insertShipmentSQL = `INSERT INTO shipments
		(id, order_id, courier, tracking_number, status, shipped_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectShipmentByOrderSQL = `SELECT id, order_id, courier, tracking_number, status, shipped_at, delivered_at
		FROM shipments WHERE order_id = $1`

	updateShipmentSQL = `UPDATE shipments
		SET status = $2, delivered_at = $3 WHERE id = $1`
)

var _ order.ShipmentRepository = (*ShipmentRepository)(nil)

// ShipmentRepository implements order.ShipmentRepository backed by
// PostgreSQL.
type ShipmentRepository struct {
	q querier
}

// Create persists a shipment record. The unique constraints on order_id and
// tracking_number back the duplicate-shipment and global tracking-number
// rules at the storage level.
func (r *ShipmentRepository) Create(ctx context.Context, s *order.Shipment) error {
	_, err := r.q.Exec(ctx, insertShipmentSQL,
		s.ID, s.OrderID, s.Courier, s.TrackingNumber, s.Status, s.ShippedAt, s.DeliveredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.ErrDuplicateShipment
		}
		return errors.Wrapf(err, "insert shipment for order %q", s.OrderID)
	}
	return nil
}

// GetByOrderID returns the shipment of an order, or (nil, nil) when none
// exists.
func (r *ShipmentRepository) GetByOrderID(ctx context.Context, orderID string) (*order.Shipment, error) {
	var s order.Shipment
	err := r.q.QueryRow(ctx, selectShipmentByOrderSQL, orderID).Scan(
		&s.ID, &s.OrderID, &s.Courier, &s.TrackingNumber, &s.Status, &s.ShippedAt, &s.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get shipment for order %q", orderID)
	}
	return &s, nil
}

// Update persists the shipment status and delivery timestamp.
func (r *ShipmentRepository) Update(ctx context.Context, s *order.Shipment) error {
	tag, err := r.q.Exec(ctx, updateShipmentSQL, s.ID, s.Status, s.DeliveredAt)
	if err != nil {
		return errors.Wrapf(err, "update shipment %q", s.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrShipmentNotFound
	}
	return nil
}
