package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chanhduy633/checkout-service/domain"
	r "github.com/chanhduy633/checkout-service/internal/repository"
)

// commitCOD creates the order synchronously. A commit failure is a
// retryable outcome, not an error: the snapshot is retained so the user can
// resubmit without re-entering the form.
func (s *CheckoutServiceImpl) commitCOD(
	ctx context.Context,
	session *r.CheckoutSession,
	draft *domain.OrderDraft) (*domain.CheckoutResponse, error) {

	if !domain.CanTransitionTo(session.Status, domain.CheckoutStatusCommittingCOD) {
		return nil, IllegalTransitionError
	}
	if err := s.repo.UpdateCheckoutSessionStatus(ctx, session.ID, domain.CheckoutStatusCommittingCOD); err != nil {
		return nil, err
	}
	session.Status = domain.CheckoutStatusCommittingCOD

	orderNumber, err := s.orders.CreateOrder(ctx, draft)
	if err != nil {
		reason := fmt.Sprintf("order creation failed: %v", err)
		if failErr := s.repo.FailCheckoutSession(ctx, session.ID, reason, false); failErr != nil {
			slog.Error("Failed to record checkout failure", "checkout_id", session.ID, "error", failErr)
		}
		s.metrics.CheckoutsFailed.Inc()
		return &domain.CheckoutResponse{
			CheckoutID:    session.ID,
			Status:        domain.CheckoutStatusFailed,
			FailureReason: reason,
		}, nil
	}

	return s.finalizeCommit(ctx, session, draft, orderNumber)
}

// finalizeCommit records the order number (with its outbox event) and clears
// the consumed snapshot. Both paths, COD and transfer, end here.
func (s *CheckoutServiceImpl) finalizeCommit(
	ctx context.Context,
	session *r.CheckoutSession,
	draft *domain.OrderDraft,
	orderNumber string) (*domain.CheckoutResponse, error) {

	payload, err := commitEventPayload(session, draft, orderNumber)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CompleteCheckoutSession(ctx, session.ID, orderNumber, payload); err != nil {
		// The order exists at the order service; only our bookkeeping is
		// behind. Surface the order number anyway and leave a loud trace.
		slog.Error("Order created but checkout session not marked committed",
			"checkout_id", session.ID, "order_number", orderNumber, "error", err)
	}

	if err := s.snapshots.Clear(ctx, session.UserID); err != nil {
		slog.Error("Failed to clear cart snapshot after commit",
			"checkout_id", session.ID, "user_id", session.UserID, "error", err)
	}

	s.metrics.OrdersCommitted.Inc()
	slog.Info("Checkout committed",
		"checkout_id", session.ID,
		"order_number", orderNumber,
		"payment_method", session.PaymentMethod,
		"total_amount", draft.TotalAmount)

	return &domain.CheckoutResponse{
		CheckoutID:  session.ID,
		Status:      domain.CheckoutStatusCommitted,
		OrderNumber: orderNumber,
	}, nil
}
