package order

import (
	"time"
)

// Status is the lifecycle state of an order.
type Status string

// Order lifecycle states. An order is created PENDING and moves strictly
// forward through the transition table below; COMPLETED and CANCELED are
// terminal.
const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// transitions is the authoritative state machine. Any (from, to) pair not
// listed here is rejected.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCanceled},
	StatusPaid:      {StatusShipped, StatusCanceled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {StatusCompleted},
	StatusCompleted: {},
	StatusCanceled:  {},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine allows moving from s to
// target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Order represents one checkout together with its immutable line items.
// Subtotal is the sum of line item price snapshots times quantities, fixed at
// creation time. All monetary amounts are integer minor-currency units.
type Order struct {
	ID            string
	AccountID     string
	Status        Status
	Subtotal      int64
	ShippingFee   int64
	PaymentMethod string
	Items         []LineItem
	CancelReason  string
	CanceledAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Total is the amount a payment must match: subtotal plus shipping fee.
func (o *Order) Total() int64 {
	return o.Subtotal + o.ShippingFee
}

// LineItem is a single position of an order. Name and unit price are
// snapshotted at order creation so later catalog edits cannot alter a placed
// order.
type LineItem struct {
	ID            string
	OrderID       string
	ProductID     string
	NameSnapshot  string
	PriceSnapshot int64
	Quantity      int64
}

// Actor identifies who is requesting a lifecycle operation.
type Actor struct {
	AccountID string
	Admin     bool
	// System marks internal callers such as the expiry scheduler. System
	// actors bypass ownership checks.
	System bool
}

// SystemActor is the actor used by background processes.
var SystemActor = Actor{System: true}

// canAccess reports whether the actor may read or mutate an order owned by
// accountID.
func (a Actor) canAccess(accountID string) bool {
	return a.System || a.Admin || a.AccountID == accountID
}
