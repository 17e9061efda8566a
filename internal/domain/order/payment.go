package order

import "time"

// PaymentStatus is the state of a recorded payment. The system records
// confirmations coming from an external provider, it does not process cards,
// so every stored payment is confirmed.
type PaymentStatus string

const (
	PaymentConfirmed PaymentStatus = "CONFIRMED"
)

// Payment is the one-to-one payment sub-record of an order. Creating it is
// the trigger that flips the order from PENDING to PAID and accrues loyalty
// points.
type Payment struct {
	ID            string
	OrderID       string
	Provider      string
	ExternalTxnID string
	Amount        int64
	Status        PaymentStatus
	PaidAt        time.Time
}
