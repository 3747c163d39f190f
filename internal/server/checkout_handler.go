package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chanhduy633/checkout-service/domain"
)

type ContactDTO struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,checkout_email"`
	Phone    string `json:"phone" validate:"required,carrier_phone"`
}

type AddressDTO struct {
	Street       string `json:"street" validate:"required"`
	WardCode     string `json:"ward_code"`
	DistrictCode string `json:"district_code" validate:"required"`
	ProvinceCode string `json:"province_code" validate:"required"`
}

type BeginCheckoutDTO struct {
	Contact       ContactDTO `json:"contact" validate:"required"`
	Address       AddressDTO `json:"address" validate:"required"`
	PaymentMethod string     `json:"payment_method" validate:"required,oneof=COD BANK_TRANSFER"`
	Notes         string     `json:"notes"`
}

// POST /api/v1/checkout
func (s *Server) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var dto BeginCheckoutDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	resp, err := s.service.BeginCheckout(ctx, &domain.CheckoutRequest{
		UserID:         uid,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Contact: domain.ContactInfo{
			FullName: dto.Contact.FullName,
			Email:    dto.Contact.Email,
			Phone:    dto.Contact.Phone,
		},
		Address: domain.AddressInput{
			Street:       dto.Address.Street,
			WardCode:     dto.Address.WardCode,
			DistrictCode: dto.Address.DistrictCode,
			ProvinceCode: dto.Address.ProvinceCode,
		},
		PaymentMethod: domain.PaymentMethod(dto.PaymentMethod),
		Notes:         dto.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, beginStatusCode(resp.Status), resp)
}

// beginStatusCode maps the checkout outcome to the response code: a commit
// is 201, a parked bank transfer is 202, and a failed commit surfaces the
// collaborator failure as 502.
func beginStatusCode(status domain.CheckoutStatus) int {
	switch status {
	case domain.CheckoutStatusAwaitingPayment:
		return http.StatusAccepted
	case domain.CheckoutStatusFailed:
		return http.StatusBadGateway
	default:
		return http.StatusCreated
	}
}

// GET /api/v1/checkout/{checkoutID}
func (s *Server) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	checkoutID := chi.URLParam(r, "checkoutID")
	resp, err := s.service.GetCheckout(ctx, checkoutID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/checkout/{checkoutID}/cancel
func (s *Server) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	checkoutID := chi.URLParam(r, "checkoutID")
	resp, err := s.service.CancelPayment(ctx, checkoutID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
