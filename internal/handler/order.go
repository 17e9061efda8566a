package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kartelle/storefront/internal/domain/order"
)

// --- Request bodies ---

type createOrderRequest struct {
	Items         []orderItemRequest `json:"items"`
	PaymentMethod string             `json:"payment_method"`
	ShippingCost  int64              `json:"shipping_cost"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type recordPaymentRequest struct {
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
}

type createShipmentRequest struct {
	Courier        string `json:"courier"`
	TrackingNumber string `json:"tracking_number"`
}

type advanceShipmentRequest struct {
	Status string `json:"status"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// --- Response bodies ---

type orderResponse struct {
	ID            string              `json:"id"`
	AccountID     string              `json:"account_id"`
	Status        string              `json:"status"`
	Subtotal      int64               `json:"subtotal"`
	ShippingFee   int64               `json:"shipping_fee"`
	PaymentMethod string              `json:"payment_method"`
	Items         []orderItemResponse `json:"items,omitempty"`
	CancelReason  string              `json:"cancel_reason,omitempty"`
	CanceledAt    *time.Time          `json:"canceled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Payment       *paymentResponse    `json:"payment,omitempty"`
	Shipment      *shipmentResponse   `json:"shipment,omitempty"`
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type paymentResponse struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	PaidAt        time.Time `json:"paid_at"`
}

type shipmentResponse struct {
	ID             string     `json:"id"`
	OrderID        string     `json:"order_id"`
	Courier        string     `json:"courier"`
	TrackingNumber string     `json:"tracking_number"`
	Status         string     `json:"status"`
	ShippedAt      time.Time  `json:"shipped_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		AccountID:     o.AccountID,
		Status:        string(o.Status),
		Subtotal:      o.Subtotal,
		ShippingFee:   o.ShippingFee,
		PaymentMethod: o.PaymentMethod,
		CancelReason:  o.CancelReason,
		CanceledAt:    o.CanceledAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.NameSnapshot,
			UnitPrice: item.PriceSnapshot,
			Quantity:  item.Quantity,
		})
	}
	return resp
}

func toPaymentResponse(p *order.Payment) *paymentResponse {
	if p == nil {
		return nil
	}
	return &paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Provider:      p.Provider,
		TransactionID: p.ExternalTxnID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		PaidAt:        p.PaidAt,
	}
}

func toShipmentResponse(s *order.Shipment) *shipmentResponse {
	if s == nil {
		return nil
	}
	return &shipmentResponse{
		ID:             s.ID,
		OrderID:        s.OrderID,
		Courier:        s.Courier,
		TrackingNumber: s.TrackingNumber,
		Status:         string(s.Status),
		ShippedAt:      s.ShippedAt,
		DeliveredAt:    s.DeliveredAt,
	}
}

// --- Endpoints ---

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		AccountID:     identity.AccountID,
		Items:         items,
		PaymentMethod: req.PaymentMethod,
		ShippingFee:   req.ShippingCost,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	list, err := h.orders.ListOrders(r.Context(), identity.Actor())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(list))
	for i := range list {
		resp[i] = toOrderResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	d, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"), identity.Actor())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := toOrderResponse(d.Order)
	resp.Payment = toPaymentResponse(d.Payment)
	resp.Shipment = toShipmentResponse(d.Shipment)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"),
		order.Status(req.Status), identity.Actor(), req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Provider == "" || req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "provider and transaction_id are required")
		return
	}

	p, err := h.orders.RecordPayment(r.Context(), order.RecordPaymentRequest{
		OrderID:       chi.URLParam(r, "orderID"),
		Provider:      req.Provider,
		ExternalTxnID: req.TransactionID,
		Amount:        req.Amount,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) createShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Courier == "" || req.TrackingNumber == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "courier and tracking_number are required")
		return
	}

	s, err := h.orders.CreateShipment(r.Context(), order.CreateShipmentRequest{
		OrderID:        chi.URLParam(r, "orderID"),
		Courier:        req.Courier,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentResponse(s))
}

func (h *Handler) advanceShipment(w http.ResponseWriter, r *http.Request) {
	var req advanceShipmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := h.orders.AdvanceShipment(r.Context(), chi.URLParam(r, "orderID"),
		order.ShipmentStatus(req.Status))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentResponse(s))
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	o, err := h.orders.CompleteOrder(r.Context(), chi.URLParam(r, "orderID"), identity.Actor())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req cancelOrderRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "canceled by customer"
	}

	o, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "orderID"), identity.Actor(), reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
