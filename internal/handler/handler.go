// Package handler exposes the order lifecycle service over HTTP.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/kartelle/storefront/internal/domain/order"
)

// LifecycleService is the slice of the order lifecycle service the HTTP layer
// consumes.
type LifecycleService interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	RecordPayment(ctx context.Context, req order.RecordPaymentRequest) (*order.Payment, error)
	CreateShipment(ctx context.Context, req order.CreateShipmentRequest) (*order.Shipment, error)
	AdvanceShipment(ctx context.Context, orderID string, target order.ShipmentStatus) (*order.Shipment, error)
	CompleteOrder(ctx context.Context, orderID string, actor order.Actor) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID string, actor order.Actor, reason string) (*order.Order, error)
	UpdateStatus(ctx context.Context, orderID string, target order.Status, actor order.Actor, reason string) (*order.Order, error)
	GetOrder(ctx context.Context, orderID string, actor order.Actor) (*order.Detail, error)
	ListOrders(ctx context.Context, actor order.Actor) ([]order.Order, error)
}

// Handler serves the order endpoints, delegating all business logic to the
// lifecycle service.
type Handler struct {
	orders LifecycleService
}

// NewHandler constructs a Handler.
func NewHandler(orders LifecycleService) *Handler {
	return &Handler{orders: orders}
}

// Routes registers the order endpoints on the given router. Callers mount
// the authentication middleware around it.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.getOrder)
			r.Patch("/status", h.updateStatus)
			r.Post("/payment", h.recordPayment)
			r.Post("/shipment", h.createShipment)
			r.Patch("/shipment/status", h.advanceShipment)
			r.Patch("/complete", h.completeOrder)
			r.Patch("/cancel", h.cancelOrder)
		})
	})
}
