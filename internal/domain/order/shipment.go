package order

import "time"

// ShipmentStatus is the delivery progress of a shipment.
type ShipmentStatus string

const (
	ShipmentWaitingPickup ShipmentStatus = "WAITING_PICKUP"
	ShipmentPickedUp      ShipmentStatus = "PICKED_UP"
	ShipmentInTransit     ShipmentStatus = "IN_TRANSIT"
	ShipmentDelivered     ShipmentStatus = "DELIVERED"
)

// shipmentRank orders shipment statuses for the monotonic-progress check.
var shipmentRank = map[ShipmentStatus]int{
	ShipmentWaitingPickup: 0,
	ShipmentPickedUp:      1,
	ShipmentInTransit:     2,
	ShipmentDelivered:     3,
}

// Valid reports whether s is a known shipment status.
func (s ShipmentStatus) Valid() bool {
	_, ok := shipmentRank[s]
	return ok
}

// CanAdvanceTo reports whether moving from s to target is a forward step.
// Shipment progress is monotonic: backward moves and no-op repeats are
// rejected, skipping intermediate states is allowed.
func (s ShipmentStatus) CanAdvanceTo(target ShipmentStatus) bool {
	if !s.Valid() || !target.Valid() {
		return false
	}
	return shipmentRank[target] > shipmentRank[s]
}

// Shipment is the one-to-one shipment sub-record of an order. Creating it
// flips the order from PAID to SHIPPED; its status reaching DELIVERED flips
// the order to DELIVERED.
type Shipment struct {
	ID             string
	OrderID        string
	Courier        string
	TrackingNumber string
	Status         ShipmentStatus
	ShippedAt      time.Time
	DeliveredAt    *time.Time
}
