package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kartelle/storefront/internal/domain/account"
	"github.com/kartelle/storefront/internal/domain/inventory"
	"github.com/kartelle/storefront/internal/domain/order"
)

// errorResponse is the canonical JSON error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message, Status: status})
}

// writeDomainError maps a lifecycle service error to the HTTP error envelope.
// State machine violations and validation errors carry the specific
// current/attempted state in the message so clients can refresh and retry;
// anything unrecognized is an opaque 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		transitionErr *order.InvalidTransitionError
		stateErr      *order.InvalidStateError
		shipmentErr   *order.InvalidShipmentTransitionError
		amountErr     *order.AmountMismatchError
		productErr    *order.ProductNotFoundError
		quantityErr   *order.InvalidQuantityError
		outOfStockErr *inventory.OutOfStockError
	)

	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, order.ErrShipmentNotFound):
		writeError(w, http.StatusNotFound, "shipment_not_found", err.Error())
	case errors.Is(err, order.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, order.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, "empty_order", err.Error())
	case errors.Is(err, order.ErrDuplicatePayment):
		writeError(w, http.StatusBadRequest, "duplicate_payment", err.Error())
	case errors.Is(err, order.ErrDuplicateShipment):
		writeError(w, http.StatusBadRequest, "duplicate_shipment", err.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusBadRequest, "invalid_transition", transitionErr.Error())
	case errors.As(err, &stateErr):
		writeError(w, http.StatusBadRequest, "invalid_state", stateErr.Error())
	case errors.As(err, &shipmentErr):
		writeError(w, http.StatusBadRequest, "invalid_shipment_transition", shipmentErr.Error())
	case errors.As(err, &amountErr):
		writeError(w, http.StatusBadRequest, "amount_mismatch", amountErr.Error())
	case errors.As(err, &productErr):
		writeError(w, http.StatusBadRequest, "product_not_found", productErr.Error())
	case errors.As(err, &quantityErr):
		writeError(w, http.StatusBadRequest, "invalid_quantity", quantityErr.Error())
	case errors.As(err, &outOfStockErr):
		writeError(w, http.StatusBadRequest, "out_of_stock", outOfStockErr.Error())
	case errors.Is(err, account.ErrNotFound):
		writeError(w, http.StatusBadRequest, "account_not_found", err.Error())
	default:
		zctx.From(r.Context()).Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed request body")
		return false
	}
	return true
}
