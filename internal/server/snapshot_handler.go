package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chanhduy633/checkout-service/domain"
)

type SnapshotLineDTO struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Name      string  `json:"name" validate:"required"`
	Image     string  `json:"image"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int32   `json:"quantity" validate:"required,gt=0"`
}

type SaveSnapshotDTO struct {
	Items []SnapshotLineDTO `json:"items" validate:"required,min=1,dive"`
}

// PUT /api/v1/checkout/snapshot
//
// The cart page calls this when the user proceeds to checkout; the stored
// copy is what the whole flow works from, so a cart edited in another tab
// cannot change an attempt already in flight.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var dto SaveSnapshotDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	snap := &domain.CartSnapshot{Items: make([]domain.CartLine, 0, len(dto.Items))}
	for _, line := range dto.Items {
		snap.Items = append(snap.Items, domain.CartLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}

	if err := s.snapshots.Save(ctx, uid, snap); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// GET /api/v1/checkout/snapshot
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	snap, err := s.snapshots.Load(ctx, uid)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
