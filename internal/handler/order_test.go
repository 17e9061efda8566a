package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartelle/storefront/internal/domain/inventory"
	"github.com/kartelle/storefront/internal/domain/order"
)

// --- Stub service ---

type stubService struct {
	createOrder     func(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	recordPayment   func(ctx context.Context, req order.RecordPaymentRequest) (*order.Payment, error)
	createShipment  func(ctx context.Context, req order.CreateShipmentRequest) (*order.Shipment, error)
	advanceShipment func(ctx context.Context, orderID string, target order.ShipmentStatus) (*order.Shipment, error)
	completeOrder   func(ctx context.Context, orderID string, actor order.Actor) (*order.Order, error)
	cancelOrder     func(ctx context.Context, orderID string, actor order.Actor, reason string) (*order.Order, error)
	updateStatus    func(ctx context.Context, orderID string, target order.Status, actor order.Actor, reason string) (*order.Order, error)
	getOrder        func(ctx context.Context, orderID string, actor order.Actor) (*order.Detail, error)
	listOrders      func(ctx context.Context, actor order.Actor) ([]order.Order, error)
}

func (s *stubService) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	return s.createOrder(ctx, req)
}

func (s *stubService) RecordPayment(ctx context.Context, req order.RecordPaymentRequest) (*order.Payment, error) {
	return s.recordPayment(ctx, req)
}

func (s *stubService) CreateShipment(ctx context.Context, req order.CreateShipmentRequest) (*order.Shipment, error) {
	return s.createShipment(ctx, req)
}

func (s *stubService) AdvanceShipment(ctx context.Context, orderID string, target order.ShipmentStatus) (*order.Shipment, error) {
	return s.advanceShipment(ctx, orderID, target)
}

func (s *stubService) CompleteOrder(ctx context.Context, orderID string, actor order.Actor) (*order.Order, error) {
	return s.completeOrder(ctx, orderID, actor)
}

func (s *stubService) CancelOrder(ctx context.Context, orderID string, actor order.Actor, reason string) (*order.Order, error) {
	return s.cancelOrder(ctx, orderID, actor, reason)
}

func (s *stubService) UpdateStatus(ctx context.Context, orderID string, target order.Status, actor order.Actor, reason string) (*order.Order, error) {
	return s.updateStatus(ctx, orderID, target, actor, reason)
}

func (s *stubService) GetOrder(ctx context.Context, orderID string, actor order.Actor) (*order.Detail, error) {
	return s.getOrder(ctx, orderID, actor)
}

func (s *stubService) ListOrders(ctx context.Context, actor order.Actor) ([]order.Order, error) {
	return s.listOrders(ctx, actor)
}

// --- Helpers ---

var testIdentity = Identity{AccountID: "acc-1"}

func newRouter(svc LifecycleService) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc).Routes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, identity *Identity) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if identity != nil {
		req = req.WithContext(context.WithValue(req.Context(), identityKey{}, *identity))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func sampleOrder() *order.Order {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:            "o1",
		AccountID:     "acc-1",
		Status:        order.StatusPending,
		Subtotal:      240_000,
		ShippingFee:   20_000,
		PaymentMethod: "card",
		Items: []order.LineItem{
			{ProductID: "p1", NameSnapshot: "Espresso Machine", PriceSnapshot: 120_000, Quantity: 2},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- Tests ---

func TestCreateOrder_Created(t *testing.T) {
	var got order.CreateOrderRequest
	h := newRouter(&stubService{
		createOrder: func(_ context.Context, req order.CreateOrderRequest) (*order.Order, error) {
			got = req
			return sampleOrder(), nil
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/orders", createOrderRequest{
		Items:         []orderItemRequest{{ProductID: "p1", Quantity: 2}},
		PaymentMethod: "card",
		ShippingCost:  20_000,
	}, &testIdentity)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "acc-1", got.AccountID, "account comes from the API key, not the body")
	assert.Equal(t, int64(20_000), got.ShippingFee)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "o1", resp.ID)
	assert.Equal(t, "PENDING", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(120_000), resp.Items[0].UnitPrice)
}

func TestCreateOrder_Unauthorized(t *testing.T) {
	h := newRouter(&stubService{})

	rec := doRequest(t, h, http.MethodPost, "/orders", createOrderRequest{}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	h := newRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte("{not json")))
	req = req.WithContext(context.WithValue(req.Context(), identityKey{}, testIdentity))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", decodeError(t, rec).Error)
}

func TestCreateOrder_UnknownFieldRejected(t *testing.T) {
	h := newRouter(&stubService{})

	rec := doRequest(t, h, http.MethodPost, "/orders", map[string]any{
		"items":    []any{},
		"surprise": true,
	}, &testIdentity)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_OutOfStock(t *testing.T) {
	h := newRouter(&stubService{
		createOrder: func(_ context.Context, _ order.CreateOrderRequest) (*order.Order, error) {
			return nil, &inventory.OutOfStockError{ProductID: "p1", Requested: 3, Available: 1}
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/orders", createOrderRequest{
		Items: []orderItemRequest{{ProductID: "p1", Quantity: 3}},
	}, &testIdentity)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "out_of_stock", e.Error)
	assert.Contains(t, e.Message, "p1")
}

func TestGetOrder_NotFound(t *testing.T) {
	h := newRouter(&stubService{
		getOrder: func(_ context.Context, _ string, _ order.Actor) (*order.Detail, error) {
			return nil, order.ErrNotFound
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/orders/o1", nil, &testIdentity)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error)
}

func TestGetOrder_WithSubRecords(t *testing.T) {
	paidAt := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	h := newRouter(&stubService{
		getOrder: func(_ context.Context, orderID string, _ order.Actor) (*order.Detail, error) {
			o := sampleOrder()
			o.Status = order.StatusShipped
			return &order.Detail{
				Order:    o,
				Payment:  &order.Payment{ID: "pay-1", OrderID: orderID, Amount: 260_000, Status: order.PaymentConfirmed, PaidAt: paidAt},
				Shipment: &order.Shipment{ID: "shp-1", OrderID: orderID, Courier: "dhl", TrackingNumber: "TN1", Status: order.ShipmentInTransit},
			}, nil
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/orders/o1", nil, &testIdentity)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Payment)
	assert.Equal(t, int64(260_000), resp.Payment.Amount)
	require.NotNil(t, resp.Shipment)
	assert.Equal(t, "IN_TRANSIT", resp.Shipment.Status)
}

func TestListOrders_OK(t *testing.T) {
	h := newRouter(&stubService{
		listOrders: func(_ context.Context, actor order.Actor) ([]order.Order, error) {
			assert.Equal(t, "acc-1", actor.AccountID)
			return []order.Order{*sampleOrder()}, nil
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/orders", nil, &testIdentity)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	h := newRouter(&stubService{
		updateStatus: func(_ context.Context, _ string, _ order.Status, _ order.Actor, _ string) (*order.Order, error) {
			return nil, &order.InvalidTransitionError{From: order.StatusPending, To: order.StatusCompleted}
		},
	})

	rec := doRequest(t, h, http.MethodPatch, "/orders/o1/status",
		updateStatusRequest{Status: "COMPLETED"}, &testIdentity)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "invalid_transition", e.Error)
	assert.Contains(t, e.Message, "PENDING")
	assert.Contains(t, e.Message, "COMPLETED")
}

func TestRecordPayment_Created(t *testing.T) {
	var got order.RecordPaymentRequest
	h := newRouter(&stubService{
		recordPayment: func(_ context.Context, req order.RecordPaymentRequest) (*order.Payment, error) {
			got = req
			return &order.Payment{ID: "pay-1", OrderID: req.OrderID, Amount: req.Amount, Status: order.PaymentConfirmed}, nil
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/orders/o1/payment", recordPaymentRequest{
		Provider:      "stripe",
		TransactionID: "txn-9",
		Amount:        260_000,
	}, &testIdentity)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, "txn-9", got.ExternalTxnID)
}

func TestRecordPayment_MissingFields(t *testing.T) {
	h := newRouter(&stubService{})

	rec := doRequest(t, h, http.MethodPost, "/orders/o1/payment",
		recordPaymentRequest{Amount: 100}, &testIdentity)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", decodeError(t, rec).Error)
}

func TestRecordPayment_AmountMismatch(t *testing.T) {
	h := newRouter(&stubService{
		recordPayment: func(_ context.Context, _ order.RecordPaymentRequest) (*order.Payment, error) {
			return nil, &order.AmountMismatchError{Expected: 260_000, Got: 100}
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/orders/o1/payment", recordPaymentRequest{
		Provider:      "stripe",
		TransactionID: "txn-9",
		Amount:        100,
	}, &testIdentity)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "amount_mismatch", decodeError(t, rec).Error)
}

func TestCreateShipment_Duplicate(t *testing.T) {
	h := newRouter(&stubService{
		createShipment: func(_ context.Context, _ order.CreateShipmentRequest) (*order.Shipment, error) {
			return nil, order.ErrDuplicateShipment
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/orders/o1/shipment", createShipmentRequest{
		Courier:        "dhl",
		TrackingNumber: "TN1",
	}, &testIdentity)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duplicate_shipment", decodeError(t, rec).Error)
}

func TestAdvanceShipment_OK(t *testing.T) {
	h := newRouter(&stubService{
		advanceShipment: func(_ context.Context, orderID string, target order.ShipmentStatus) (*order.Shipment, error) {
			assert.Equal(t, order.ShipmentInTransit, target)
			return &order.Shipment{ID: "shp-1", OrderID: orderID, Status: target}, nil
		},
	})

	rec := doRequest(t, h, http.MethodPatch, "/orders/o1/shipment/status",
		advanceShipmentRequest{Status: "IN_TRANSIT"}, &testIdentity)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp shipmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "IN_TRANSIT", resp.Status)
}

func TestCompleteOrder_Forbidden(t *testing.T) {
	h := newRouter(&stubService{
		completeOrder: func(_ context.Context, _ string, _ order.Actor) (*order.Order, error) {
			return nil, order.ErrForbidden
		},
	})

	rec := doRequest(t, h, http.MethodPatch, "/orders/o1/complete", nil, &testIdentity)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Error)
}

func TestCancelOrder_DefaultReason(t *testing.T) {
	var gotReason string
	h := newRouter(&stubService{
		cancelOrder: func(_ context.Context, _ string, _ order.Actor, reason string) (*order.Order, error) {
			gotReason = reason
			o := sampleOrder()
			o.Status = order.StatusCanceled
			o.CancelReason = reason
			return o, nil
		},
	})

	rec := doRequest(t, h, http.MethodPatch, "/orders/o1/cancel", nil, &testIdentity)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "canceled by customer", gotReason)
}

func TestCancelOrder_CustomReason(t *testing.T) {
	var gotReason string
	h := newRouter(&stubService{
		cancelOrder: func(_ context.Context, _ string, _ order.Actor, reason string) (*order.Order, error) {
			gotReason = reason
			o := sampleOrder()
			o.Status = order.StatusCanceled
			return o, nil
		},
	})

	rec := doRequest(t, h, http.MethodPatch, "/orders/o1/cancel",
		cancelOrderRequest{Reason: "wrong size"}, &testIdentity)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wrong size", gotReason)
}

func TestInternalErrorIsOpaque(t *testing.T) {
	h := newRouter(&stubService{
		listOrders: func(_ context.Context, _ order.Actor) ([]order.Order, error) {
			return nil, errors.New("pgx: connection refused")
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/orders", nil, &testIdentity)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "internal", e.Error)
	assert.NotContains(t, e.Message, "pgx", "driver details must not leak")
}
