// Package snapshot persists the checkout-scoped cart snapshot: one entry per
// user, written when the user proceeds from cart to checkout and deleted
// when the order that consumed it commits.
package snapshot

import (
	"context"
	"time"

	"github.com/chanhduy633/checkout-service/domain"
)

type Store interface {
	// Load returns the stored snapshot with its total recomputed from the
	// items. Absent or malformed data yields an empty snapshot, never an
	// error the checkout flow has to handle.
	Load(ctx context.Context, userID string) (*domain.CartSnapshot, error)
	Save(ctx context.Context, userID string, snap *domain.CartSnapshot) error
	// Clear is idempotent: clearing an absent snapshot is a no-op.
	Clear(ctx context.Context, userID string) error
}

// normalize recomputes the total and stamps CapturedAt on save-bound
// snapshots. The stored total is advisory; Load always overwrites it.
func normalize(snap *domain.CartSnapshot) {
	if snap.Items == nil {
		snap.Items = []domain.CartLine{}
	}
	snap.TotalAmount = snap.ComputeTotal()
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}
}
