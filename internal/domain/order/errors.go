package order

import "fmt"

// Sentinel errors reported by the lifecycle service. All of them describe
// client mistakes; unexpected persistence failures are wrapped and passed
// through opaque.
var (
	ErrNotFound          = fmt.Errorf("order not found")
	ErrShipmentNotFound  = fmt.Errorf("shipment not found")
	ErrEmptyOrder        = fmt.Errorf("order must contain at least one item")
	ErrDuplicatePayment  = fmt.Errorf("payment already recorded for this order")
	ErrDuplicateShipment = fmt.Errorf("shipment already exists for this order")
	ErrForbidden         = fmt.Errorf("not allowed to act on this order")
)

// InvalidTransitionError indicates a requested status change that the state
// machine does not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// InvalidStateError indicates an operation attempted while the order is in a
// status that does not permit it.
type InvalidStateError struct {
	Current  Status
	Expected []Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("order is %s, operation requires one of %v", e.Current, e.Expected)
}

// InvalidShipmentTransitionError indicates a non-forward shipment status
// change.
type InvalidShipmentTransitionError struct {
	From ShipmentStatus
	To   ShipmentStatus
}

func (e *InvalidShipmentTransitionError) Error() string {
	return fmt.Sprintf("invalid shipment transition from %s to %s", e.From, e.To)
}

// AmountMismatchError indicates a payment whose amount does not equal the
// order subtotal plus shipping fee. The mismatch is reported back to the
// caller, never silently corrected.
type AmountMismatchError struct {
	Expected int64
	Got      int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount %d does not match order total %d", e.Got, e.Expected)
}

// ProductNotFoundError indicates a requested product does not exist in the
// catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}
