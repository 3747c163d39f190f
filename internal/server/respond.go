package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	r "github.com/chanhduy633/checkout-service/internal/repository"
	"github.com/chanhduy633/checkout-service/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleServiceError maps the service's typed errors to HTTP statuses.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		respondError(w, http.StatusBadRequest, "invalid_email", "email address is not valid")
	case errors.Is(err, service.ErrInvalidPhone):
		respondError(w, http.StatusBadRequest, "invalid_phone", "phone number is not a valid 10-digit mobile number")
	case errors.Is(err, service.ErrIncompleteAddress):
		respondError(w, http.StatusBadRequest, "incomplete_address", "street, province and district are required")
	case errors.Is(err, service.ErrUnknownDivision):
		respondError(w, http.StatusBadRequest, "unknown_division", "province or district code is not recognized")
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "payment method must be COD or BANK_TRANSFER")
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", "no cart snapshot to check out")
	case errors.Is(err, service.ErrNoPendingPayment):
		respondError(w, http.StatusConflict, "no_pending_payment", "checkout is not awaiting payment")
	case errors.Is(err, r.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "checkout not found")
	default:
		slog.Error("Unhandled service error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
