package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/kartelle/storefront/internal/domain/loyalty"
	"github.com/kartelle/storefront/internal/domain/product"
)

// ExpiryReason is the cancellation reason recorded when the expiry scheduler
// force-cancels a stale PENDING order.
const ExpiryReason = "payment not received within window"

// ItemRequest is one requested line item when creating an order.
type ItemRequest struct {
	ProductID string
	Quantity  int64
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	AccountID     string
	Items         []ItemRequest
	PaymentMethod string
	ShippingFee   int64
}

// RecordPaymentRequest holds the input for recording a payment confirmation.
type RecordPaymentRequest struct {
	OrderID       string
	Provider      string
	ExternalTxnID string
	Amount        int64
}

// CreateShipmentRequest holds the input for creating a shipment.
type CreateShipmentRequest struct {
	OrderID        string
	Courier        string
	TrackingNumber string
}

// Detail is an order aggregate together with its optional sub-records.
type Detail struct {
	Order    *Order
	Payment  *Payment
	Shipment *Shipment
}

// Service is the order lifecycle service: the sole entry point for order
// state changes. Every operation runs as a single transaction through the
// unit of work, so an aborted request leaves no partial effects.
type Service struct {
	uow UnitOfWork
	now func() time.Time
}

// NewService creates a lifecycle Service on top of the given unit of work.
func NewService(uow UnitOfWork) *Service {
	return &Service{
		uow: uow,
		now: time.Now,
	}
}

// CreateOrder reserves inventory for every requested line item, snapshots
// product names and prices, and persists the order in PENDING status. The
// inventory decrements and the order insert commit together or not at all.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	var created *Order
	err := s.uow.Do(ctx, func(tx Tx) error {
		fetched, err := tx.Products().GetByIDs(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "get products")
		}
		byID := make(map[string]product.Product, len(fetched))
		for _, p := range fetched {
			byID[p.ID] = p
		}

		now := s.now()
		o := &Order{
			ID:            uuid.New().String(),
			AccountID:     req.AccountID,
			Status:        StatusPending,
			ShippingFee:   req.ShippingFee,
			PaymentMethod: req.PaymentMethod,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		for _, item := range req.Items {
			p, ok := byID[item.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: item.ProductID}
			}
			if err := tx.Inventory().Reserve(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			o.Items = append(o.Items, LineItem{
				ID:            uuid.New().String(),
				OrderID:       o.ID,
				ProductID:     item.ProductID,
				NameSnapshot:  p.Name,
				PriceSnapshot: p.Price,
				Quantity:      item.Quantity,
			})
			o.Subtotal += p.Price * item.Quantity
		}

		if err := tx.Orders().Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RecordPayment records a confirmed payment for a PENDING order, flips the
// order to PAID, and accrues loyalty points on the owning account. All three
// mutations commit together.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*Payment, error) {
	var created *Payment
	err := s.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return &InvalidStateError{Current: o.Status, Expected: []Status{StatusPending}}
		}
		existing, err := tx.Payments().GetByOrderID(ctx, req.OrderID)
		if err != nil {
			return errors.Wrap(err, "get payment")
		}
		if existing != nil {
			return ErrDuplicatePayment
		}
		if req.Amount != o.Total() {
			return &AmountMismatchError{Expected: o.Total(), Got: req.Amount}
		}

		p := &Payment{
			ID:            uuid.New().String(),
			OrderID:       o.ID,
			Provider:      req.Provider,
			ExternalTxnID: req.ExternalTxnID,
			Amount:        req.Amount,
			Status:        PaymentConfirmed,
			PaidAt:        s.now(),
		}
		if err := tx.Payments().Create(ctx, p); err != nil {
			return errors.Wrap(err, "create payment")
		}
		if pts := loyalty.PointsFor(o.Subtotal); pts > 0 {
			if err := tx.Loyalty().Accrue(ctx, o.AccountID, pts); err != nil {
				return errors.Wrap(err, "accrue points")
			}
		}

		o.Status = StatusPaid
		o.UpdatedAt = s.now()
		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return errors.Wrap(err, "update order status")
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateShipment assigns a courier to a PAID order and flips it to SHIPPED.
// Tracking numbers are unique across all shipments.
func (s *Service) CreateShipment(ctx context.Context, req CreateShipmentRequest) (*Shipment, error) {
	var created *Shipment
	err := s.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if o.Status != StatusPaid {
			return &InvalidStateError{Current: o.Status, Expected: []Status{StatusPaid}}
		}
		existing, err := tx.Shipments().GetByOrderID(ctx, req.OrderID)
		if err != nil {
			return errors.Wrap(err, "get shipment")
		}
		if existing != nil {
			return ErrDuplicateShipment
		}

		sh := &Shipment{
			ID:             uuid.New().String(),
			OrderID:        o.ID,
			Courier:        req.Courier,
			TrackingNumber: req.TrackingNumber,
			Status:         ShipmentWaitingPickup,
			ShippedAt:      s.now(),
		}
		if err := tx.Shipments().Create(ctx, sh); err != nil {
			return errors.Wrap(err, "create shipment")
		}

		o.Status = StatusShipped
		o.UpdatedAt = s.now()
		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return errors.Wrap(err, "update order status")
		}
		created = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AdvanceShipment moves a shipment forward through its delivery states.
// Reaching DELIVERED also flips the order to DELIVERED and stamps the
// delivery time.
func (s *Service) AdvanceShipment(ctx context.Context, orderID string, target ShipmentStatus) (*Shipment, error) {
	if !target.Valid() {
		return nil, &InvalidShipmentTransitionError{To: target}
	}

	var updated *Shipment
	err := s.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		sh, err := tx.Shipments().GetByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if sh == nil {
			return ErrShipmentNotFound
		}
		if !sh.Status.CanAdvanceTo(target) {
			return &InvalidShipmentTransitionError{From: sh.Status, To: target}
		}

		sh.Status = target
		if target == ShipmentDelivered {
			now := s.now()
			sh.DeliveredAt = &now

			if o.Status != StatusShipped {
				return &InvalidStateError{Current: o.Status, Expected: []Status{StatusShipped}}
			}
			o.Status = StatusDelivered
			o.UpdatedAt = now
			if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
				return errors.Wrap(err, "update order status")
			}
		}
		if err := tx.Shipments().Update(ctx, sh); err != nil {
			return errors.Wrap(err, "update shipment")
		}
		updated = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CompleteOrder closes a DELIVERED order. Only the order owner or an
// administrator may complete it. COMPLETED is terminal.
func (s *Service) CompleteOrder(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	var completed *Order
	err := s.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.canAccess(o.AccountID) {
			return ErrForbidden
		}
		if o.Status != StatusDelivered {
			return &InvalidStateError{Current: o.Status, Expected: []Status{StatusDelivered}}
		}

		o.Status = StatusCompleted
		o.UpdatedAt = s.now()
		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return errors.Wrap(err, "update order status")
		}
		completed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// CancelOrder cancels a PENDING or PAID order: it restores inventory for
// every line item, reverses loyalty points when the order was PAID, and
// records the cancellation reason and time. Interactive requests and the
// expiry scheduler share this single path, so the invariants hold for both.
func (s *Service) CancelOrder(ctx context.Context, orderID string, actor Actor, reason string) (*Order, error) {
	var canceled *Order
	err := s.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.canAccess(o.AccountID) {
			return ErrForbidden
		}
		// The status re-check inside the transaction makes cancellation
		// idempotent at the invariant level: a second cancel, or a cancel
		// racing a payment, fails here without touching inventory or points.
		if o.Status != StatusPending && o.Status != StatusPaid {
			return &InvalidStateError{Current: o.Status, Expected: []Status{StatusPending, StatusPaid}}
		}

		if o.Status == StatusPaid {
			if pts := loyalty.PointsFor(o.Subtotal); pts > 0 {
				if err := tx.Loyalty().Reverse(ctx, o.AccountID, pts); err != nil {
					return errors.Wrap(err, "reverse points")
				}
			}
		}
		for _, item := range o.Items {
			if err := tx.Inventory().Release(ctx, item.ProductID, item.Quantity); err != nil {
				return errors.Wrapf(err, "release inventory for product %s", item.ProductID)
			}
		}

		now := s.now()
		o.Status = StatusCanceled
		o.CancelReason = reason
		o.CanceledAt = &now
		o.UpdatedAt = now
		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return errors.Wrap(err, "update order status")
		}
		canceled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

// UpdateStatus handles the generic status-change endpoint. Only COMPLETED and
// CANCELED are reachable by a direct client request; PAID, SHIPPED, and
// DELIVERED are driven by payment and shipment records. Any pair outside the
// transition table is rejected without mutation.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target Status, actor Actor, reason string) (*Order, error) {
	if !target.Valid() {
		return nil, &InvalidTransitionError{To: target}
	}

	var current Status
	err := s.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.canAccess(o.AccountID) {
			return ErrForbidden
		}
		current = o.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !current.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: current, To: target}
	}

	switch target {
	case StatusCompleted:
		return s.CompleteOrder(ctx, orderID, actor)
	case StatusCanceled:
		return s.CancelOrder(ctx, orderID, actor, reason)
	default:
		return nil, &InvalidTransitionError{From: current, To: target}
	}
}

// GetOrder loads an order with its payment and shipment sub-records. Callers
// other than administrators see only their own orders.
func (s *Service) GetOrder(ctx context.Context, orderID string, actor Actor) (*Detail, error) {
	var d Detail
	err := s.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.canAccess(o.AccountID) {
			// Hide existence of other accounts' orders.
			return ErrNotFound
		}
		d.Order = o
		if d.Payment, err = tx.Payments().GetByOrderID(ctx, orderID); err != nil {
			return errors.Wrap(err, "get payment")
		}
		if d.Shipment, err = tx.Shipments().GetByOrderID(ctx, orderID); err != nil {
			return errors.Wrap(err, "get shipment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListOrders returns all orders for administrators and only the actor's own
// orders otherwise.
func (s *Service) ListOrders(ctx context.Context, actor Actor) ([]Order, error) {
	var out []Order
	err := s.uow.Do(ctx, func(tx Tx) error {
		var err error
		if actor.Admin || actor.System {
			out, err = tx.Orders().List(ctx)
		} else {
			out, err = tx.Orders().ListByAccount(ctx, actor.AccountID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
