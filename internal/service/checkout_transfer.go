package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chanhduy633/checkout-service/domain"
	r "github.com/chanhduy633/checkout-service/internal/repository"
)

// beginTransfer parks the checkout behind a payment confirmation session.
// No order is created yet; the poller's outcome decides.
func (s *CheckoutServiceImpl) beginTransfer(
	ctx context.Context,
	session *r.CheckoutSession,
	draft *domain.OrderDraft) (*domain.CheckoutResponse, error) {

	if !domain.CanTransitionTo(session.Status, domain.CheckoutStatusAwaitingPayment) {
		return nil, IllegalTransitionError
	}

	reference := newPaymentReference()
	if err := s.repo.SetPaymentReference(ctx, session.ID, reference); err != nil {
		// The session row exists; it must not linger as an in-flight attempt.
		if failErr := s.repo.FailCheckoutSession(ctx, session.ID,
			"failed to assign payment reference", false); failErr != nil {
			slog.Error("Failed to settle broken transfer setup", "checkout_id", session.ID, "error", failErr)
		}
		return nil, err
	}
	session.Status = domain.CheckoutStatusAwaitingPayment

	// The poller receives the pending transaction by value; it never holds
	// anything of this checkout beyond its own session.
	pending := domain.PendingTransaction{
		Reference:      reference,
		ExpectedAmount: draft.TotalAmount,
		Draft:          *draft,
		CreatedAt:      time.Now(),
	}

	s.mu.Lock()
	entry := &pendingPayment{checkoutID: session.ID}
	s.active[session.UserID] = entry
	entry.cancel = s.poller.Start(reference, pending.ExpectedAmount,
		func() { s.onPaymentConfirmed(session.UserID, session.ID, pending) },
		func() { s.onPaymentTimedOut(session.UserID, session.ID, reference) },
	)
	s.mu.Unlock()

	slog.Info("Awaiting bank transfer",
		"checkout_id", session.ID,
		"reference", reference,
		"expected_amount", pending.ExpectedAmount)

	return &domain.CheckoutResponse{
		CheckoutID: session.ID,
		Status:     domain.CheckoutStatusAwaitingPayment,
		Payment:    s.paymentInstructions(reference, pending.ExpectedAmount),
	}, nil
}

// onPaymentConfirmed commits the held draft. If the order write fails after
// the money moved, the checkout is failed with the reconciliation flag set;
// it is never retried automatically, since a retry after an ambiguous
// failure risks duplicate or lost orders.
func (s *CheckoutServiceImpl) onPaymentConfirmed(userID, checkoutID string, pending domain.PendingTransaction) {
	ctx, cancel := context.WithTimeout(context.Background(), s.callbackTimeout)
	defer cancel()

	s.clearActive(userID, checkoutID)

	session, err := s.repo.GetCheckoutSession(ctx, checkoutID)
	if err != nil {
		slog.Error("Payment confirmed but checkout session unreadable",
			"checkout_id", checkoutID, "reference", pending.Reference, "error", err)
		return
	}
	if session.Status != domain.CheckoutStatusAwaitingPayment {
		// A cancel or a competing commit won; this confirmation is stale.
		slog.Warn("Ignoring payment confirmation for settled checkout",
			"checkout_id", checkoutID, "status", session.Status)
		return
	}

	orderNumber, err := s.orders.CreateOrder(ctx, &pending.Draft)
	if err != nil {
		reason := fmt.Sprintf(
			"payment received for reference %s but order was not recorded; manual reconciliation required",
			pending.Reference)
		if failErr := s.repo.FailCheckoutSession(ctx, checkoutID, reason, true); failErr != nil {
			slog.Error("Failed to record reconciliation failure", "checkout_id", checkoutID, "error", failErr)
		}
		s.metrics.ReconciliationAlerts.Inc()
		slog.Error("Payment received but order not recorded",
			"checkout_id", checkoutID,
			"reference", pending.Reference,
			"expected_amount", pending.ExpectedAmount,
			"error", err)
		return
	}

	if _, err := s.finalizeCommit(ctx, session, &pending.Draft, orderNumber); err != nil {
		slog.Error("Failed to finalize transfer commit", "checkout_id", checkoutID, "error", err)
	}
}

func (s *CheckoutServiceImpl) onPaymentTimedOut(userID, checkoutID, reference string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.callbackTimeout)
	defer cancel()

	s.clearActive(userID, checkoutID)

	if err := s.repo.FailCheckoutSession(ctx, checkoutID,
		"no payment detected within the polling window", false); err != nil {
		if errors.Is(err, r.ErrSessionNotFound) {
			// A concurrent cancel or commit already settled this checkout.
			slog.Warn("Timeout lost the race to a settled checkout", "checkout_id", checkoutID)
			return
		}
		slog.Error("Failed to record payment timeout", "checkout_id", checkoutID, "error", err)
	}
	s.metrics.PaymentTimeouts.Inc()
	slog.Warn("Payment polling timed out", "checkout_id", checkoutID, "reference", reference)
}

// CancelPayment is the user closing the payment dialog: the poller stops,
// no order is created, the snapshot is retained for a retry.
func (s *CheckoutServiceImpl) CancelPayment(ctx context.Context, checkoutID string) (*domain.CheckoutResponse, error) {
	s.mu.Lock()
	for userID, pending := range s.active {
		if pending.checkoutID == checkoutID {
			pending.cancel()
			delete(s.active, userID)
			break
		}
	}
	s.mu.Unlock()

	if err := s.repo.CancelCheckoutSession(ctx, checkoutID); err != nil {
		if errors.Is(err, r.ErrSessionNotFound) {
			return nil, ErrNoPendingPayment
		}
		return nil, err
	}

	slog.Info("Pending payment cancelled", "checkout_id", checkoutID)
	return s.GetCheckout(ctx, checkoutID)
}

// cancelActiveForUser stops a leftover polling session from an earlier
// attempt and marks its checkout cancelled.
func (s *CheckoutServiceImpl) cancelActiveForUser(ctx context.Context, userID string) {
	s.mu.Lock()
	pending, ok := s.active[userID]
	if ok {
		pending.cancel()
		delete(s.active, userID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	slog.Info("Cancelled stale payment polling before new attempt",
		"user_id", userID, "checkout_id", pending.checkoutID)
	if err := s.repo.CancelCheckoutSession(ctx, pending.checkoutID); err != nil {
		slog.Warn("Failed to cancel stale checkout session",
			"checkout_id", pending.checkoutID, "error", err)
	}
}

func (s *CheckoutServiceImpl) clearActive(userID, checkoutID string) {
	s.mu.Lock()
	if pending, ok := s.active[userID]; ok && pending.checkoutID == checkoutID {
		delete(s.active, userID)
	}
	s.mu.Unlock()
}

func newPaymentReference() string {
	return "PAY-" + strings.ToUpper(uuid.NewString()[:8])
}

func commitEventPayload(session *r.CheckoutSession, draft *domain.OrderDraft, orderNumber string) ([]byte, error) {
	payload := map[string]interface{}{
		"checkout_id":    session.ID,
		"user_id":        session.UserID,
		"order_number":   orderNumber,
		"payment_method": session.PaymentMethod,
		"items":          draft.Items,
		"total_amount":   draft.TotalAmount,
		"committed_at":   time.Now(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout payload: %w", err)
	}
	return data, nil
}
