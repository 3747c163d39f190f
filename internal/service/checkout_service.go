package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chanhduy633/checkout-service/domain"
	"github.com/chanhduy633/checkout-service/internal/metrics"
	"github.com/chanhduy633/checkout-service/internal/poller"
	r "github.com/chanhduy633/checkout-service/internal/repository"
	"github.com/chanhduy633/checkout-service/internal/snapshot"
	"github.com/chanhduy633/checkout-service/internal/validate"
)

// OrdersClient creates the order at the external order service.
type OrdersClient interface {
	CreateOrder(ctx context.Context, draft *domain.OrderDraft) (string, error)
}

// PaymentPoller starts one payment confirmation session per bank-transfer
// checkout.
type PaymentPoller interface {
	Start(reference string, expectedAmount float64, onSuccess, onTimeout func()) poller.CancelFunc
}

// BankAccount is the receiving account shown in the transfer QR code.
type BankAccount struct {
	BankCode      string
	AccountNumber string
	AccountName   string
}

type CheckoutService interface {
	BeginCheckout(ctx context.Context, req *domain.CheckoutRequest) (*domain.CheckoutResponse, error)
	CancelPayment(ctx context.Context, checkoutID string) (*domain.CheckoutResponse, error)
	GetCheckout(ctx context.Context, checkoutID string) (*domain.CheckoutResponse, error)
}

// pendingPayment is one live polling session, owned by the orchestrator.
// There is at most one per user: starting a new attempt cancels the old one.
type pendingPayment struct {
	checkoutID string
	cancel     poller.CancelFunc
}

type CheckoutServiceImpl struct {
	repo            r.RepoInterface
	snapshots       snapshot.Store
	orders          OrdersClient
	poller          PaymentPoller
	divisions       DivisionResolver
	metrics         *metrics.Metrics
	bank            BankAccount
	callbackTimeout time.Duration

	mu     sync.Mutex
	active map[string]*pendingPayment // userID -> live polling session
}

func NewCheckoutService(
	repo r.RepoInterface,
	snapshots snapshot.Store,
	orders OrdersClient,
	paymentPoller PaymentPoller,
	divisions DivisionResolver,
	m *metrics.Metrics,
	bank BankAccount,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		repo:            repo,
		snapshots:       snapshots,
		orders:          orders,
		poller:          paymentPoller,
		divisions:       divisions,
		metrics:         m,
		bank:            bank,
		callbackTimeout: 10 * time.Second,
		active:          make(map[string]*pendingPayment),
	}
}

func (s *CheckoutServiceImpl) BeginCheckout(
	ctx context.Context,
	req *domain.CheckoutRequest) (*domain.CheckoutResponse, error) {

	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil && !errors.Is(err, r.ErrIdempotencyKeyNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			// This checkout already exists; return the cached result instead
			// of starting a second one.
			slog.Info("Duplicate checkout request",
				"idempotency_key", req.IdempotencyKey,
				"checkout_id", existing.ID,
				"status", existing.Status)
			return s.toResponse(existing), nil
		}
	}

	normalizedPhone, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}
	req.Contact.Phone = normalizedPhone

	// Read the snapshot exactly once at entry; the flow never re-reads it,
	// so a live cart changing mid-payment cannot alter this attempt.
	snap, err := s.snapshots.Load(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	if snap.IsEmpty() {
		return nil, ErrEmptyCart
	}

	draft, err := BuildOrderDraft(req.Contact, req.Address, req.PaymentMethod, req.Notes, snap, s.divisions)
	if err != nil {
		return nil, err
	}

	// A user retrying after a failed or abandoned attempt may still have a
	// poller running; it must be cancelled before the new attempt starts.
	s.cancelActiveForUser(context.WithoutCancel(ctx), req.UserID)

	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order draft: %w", err)
	}

	session := &r.CheckoutSession{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
		Status:         domain.CheckoutStatusValidating,
		PaymentMethod:  req.PaymentMethod,
		Draft:          draftJSON,
	}
	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		// Two requests with the same key can both miss the lookup above; the
		// loser of the insert race returns the winner's session.
		if errors.Is(err, r.ErrDuplicateIdempotencyKey) && req.IdempotencyKey != "" {
			existing, getErr := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, req.IdempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("failed to resolve duplicate checkout: %w", getErr)
			}
			slog.Info("Lost idempotent insert race, returning existing checkout",
				"idempotency_key", req.IdempotencyKey, "checkout_id", existing.ID)
			return s.toResponse(existing), nil
		}
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	s.metrics.CheckoutsStarted.Inc()

	switch req.PaymentMethod {
	case domain.PaymentMethodCOD:
		return s.commitCOD(ctx, session, draft)
	default:
		return s.beginTransfer(ctx, session, draft)
	}
}

// validateRequest runs the checkout gate. Nothing is persisted when any
// check fails; the caller surfaces the typed error and the flow stays idle.
func (s *CheckoutServiceImpl) validateRequest(req *domain.CheckoutRequest) (string, error) {
	if !req.PaymentMethod.Valid() {
		return "", ErrInvalidPaymentMethod
	}
	if !validate.Email(req.Contact.Email) {
		return "", ErrInvalidEmail
	}
	normalized, ok := validate.Phone(req.Contact.Phone)
	if !ok {
		return "", ErrInvalidPhone
	}
	if !validate.ShippingAddress(req.Address.Street, req.Address.ProvinceCode, req.Address.DistrictCode) {
		return "", ErrIncompleteAddress
	}
	return normalized, nil
}

func (s *CheckoutServiceImpl) GetCheckout(ctx context.Context, checkoutID string) (*domain.CheckoutResponse, error) {
	session, err := s.repo.GetCheckoutSession(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(session), nil
}

func (s *CheckoutServiceImpl) toResponse(session *r.CheckoutSession) *domain.CheckoutResponse {
	resp := &domain.CheckoutResponse{
		CheckoutID:          session.ID,
		Status:              session.Status,
		OrderNumber:         session.OrderNumber,
		FailureReason:       session.FailureReason,
		NeedsReconciliation: session.NeedsReconciliation,
	}

	if session.Status == domain.CheckoutStatusAwaitingPayment && session.PaymentReference != "" {
		var draft domain.OrderDraft
		if err := json.Unmarshal(session.Draft, &draft); err == nil {
			resp.Payment = s.paymentInstructions(session.PaymentReference, draft.TotalAmount)
		}
	}
	return resp
}

func (s *CheckoutServiceImpl) paymentInstructions(reference string, amount float64) *domain.PaymentInstructions {
	return &domain.PaymentInstructions{
		Reference:     reference,
		Amount:        amount,
		BankCode:      s.bank.BankCode,
		AccountNumber: s.bank.AccountNumber,
		AccountName:   s.bank.AccountName,
	}
}

// Shutdown cancels every live polling session.
func (s *CheckoutServiceImpl) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, pending := range s.active {
		pending.cancel()
		delete(s.active, userID)
	}
}
