package order

import (
	"context"
	"time"

	"github.com/kartelle/storefront/internal/domain/inventory"
	"github.com/kartelle/storefront/internal/domain/loyalty"
	"github.com/kartelle/storefront/internal/domain/product"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	// Create persists a new order together with all its line items.
	Create(ctx context.Context, o *Order) error
	// Get loads an order with its line items.
	Get(ctx context.Context, id string) (*Order, error)
	// GetForUpdate loads an order with its line items and takes a row-level
	// lock so concurrent lifecycle operations on the same order serialize.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	// UpdateStatus persists status, cancellation fields, and updated_at.
	UpdateStatus(ctx context.Context, o *Order) error
	List(ctx context.Context) ([]Order, error)
	ListByAccount(ctx context.Context, accountID string) ([]Order, error)
	// FindExpiredPending returns IDs of orders still PENDING whose creation
	// time is older than the given instant, oldest first.
	FindExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// PaymentRepository persists payment sub-records. GetByOrderID returns
// (nil, nil) when the order has no payment.
type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
}

// ShipmentRepository persists shipment sub-records. GetByOrderID returns
// (nil, nil) when the order has no shipment.
type ShipmentRepository interface {
	Create(ctx context.Context, s *Shipment) error
	GetByOrderID(ctx context.Context, orderID string) (*Shipment, error)
	Update(ctx context.Context, s *Shipment) error
}

// Tx bundles the repositories bound to a single database transaction. Every
// mutation performed through one Tx commits or rolls back as a unit.
type Tx interface {
	Orders() Repository
	Payments() PaymentRepository
	Shipments() ShipmentRepository
	Inventory() inventory.Ledger
	Loyalty() loyalty.Ledger
	Products() product.Repository
}

// UnitOfWork runs a function inside one database transaction. If fn returns
// an error the transaction rolls back and the error is returned unchanged.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}
