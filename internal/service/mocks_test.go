package service

import (
	"context"
	"sync"
	"time"

	"github.com/chanhduy633/checkout-service/domain"
	"github.com/chanhduy633/checkout-service/internal/metrics"
	"github.com/chanhduy633/checkout-service/internal/poller"
	r "github.com/chanhduy633/checkout-service/internal/repository"
)

// One metrics instance per test binary; promauto registers globally.
var testMetrics = metrics.NewMetrics()

// MockRepository implements r.RepoInterface with an in-memory session map.
type MockRepository struct {
	mu       sync.Mutex
	sessions map[string]*r.CheckoutSession
	byKey    map[string]string
	events   []*r.OutboxEvent

	CreateErr    error
	CompleteErr  error
	SetRefErr    error
	LookupMisses int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		sessions: make(map[string]*r.CheckoutSession),
		byKey:    make(map[string]string),
	}
}

func (m *MockRepository) Close() error                       { return nil }
func (m *MockRepository) RunMigrations(*r.Credentials) error { return nil }

func (m *MockRepository) CreateCheckoutSession(_ context.Context, session *r.CheckoutSession) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.IdempotencyKey != "" {
		if _, exists := m.byKey[session.IdempotencyKey]; exists {
			return r.ErrDuplicateIdempotencyKey
		}
		m.byKey[session.IdempotencyKey] = session.ID
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *MockRepository) GetCheckoutSession(_ context.Context, id string) (*r.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, r.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *MockRepository) GetCheckoutSessionByIdempotencyKey(_ context.Context, key string) (*r.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LookupMisses > 0 {
		m.LookupMisses--
		return nil, r.ErrIdempotencyKeyNotFound
	}
	id, ok := m.byKey[key]
	if !ok {
		return nil, r.ErrIdempotencyKeyNotFound
	}
	copied := *m.sessions[id]
	return &copied, nil
}

func (m *MockRepository) UpdateCheckoutSessionStatus(_ context.Context, id string, status domain.CheckoutStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	session.Status = status
	return nil
}

func (m *MockRepository) SetPaymentReference(_ context.Context, id string, reference string) error {
	if m.SetRefErr != nil {
		return m.SetRefErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	session.PaymentReference = reference
	session.Status = domain.CheckoutStatusAwaitingPayment
	return nil
}

func (m *MockRepository) CompleteCheckoutSession(_ context.Context, id string, orderNumber string, eventPayload []byte) error {
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok || session.Status.IsTerminal() {
		return r.ErrSessionNotFound
	}
	session.Status = domain.CheckoutStatusCommitted
	session.OrderNumber = orderNumber
	m.events = append(m.events, &r.OutboxEvent{
		ID:          len(m.events) + 1,
		AggregateID: id,
		EventType:   "checkout.committed",
		Payload:     eventPayload,
	})
	return nil
}

func (m *MockRepository) FailCheckoutSession(_ context.Context, id string, reason string, needsReconciliation bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok || session.Status.IsTerminal() {
		return r.ErrSessionNotFound
	}
	session.Status = domain.CheckoutStatusFailed
	session.FailureReason = reason
	session.NeedsReconciliation = needsReconciliation
	return nil
}

func (m *MockRepository) CancelCheckoutSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok || session.Status != domain.CheckoutStatusAwaitingPayment {
		return r.ErrSessionNotFound
	}
	session.Status = domain.CheckoutStatusCancelled
	return nil
}

func (m *MockRepository) GetStuckSessions(context.Context, time.Duration) ([]*r.CheckoutSession, error) {
	return nil, nil
}

func (m *MockRepository) GetUnprocessedEvents(_ context.Context, limit int) ([]*r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, _ int) error { return nil }

func (m *MockRepository) Events() []*r.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*r.OutboxEvent{}, m.events...)
}

// MockOrdersClient captures order-creation calls.
type MockOrdersClient struct {
	mu          sync.Mutex
	Err         error
	OrderNumber string
	Drafts      []*domain.OrderDraft
}

func (m *MockOrdersClient) CreateOrder(_ context.Context, draft *domain.OrderDraft) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *draft
	m.Drafts = append(m.Drafts, &copied)
	if m.Err != nil {
		return "", m.Err
	}
	return m.OrderNumber, nil
}

func (m *MockOrdersClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Drafts)
}

// FakePoller records Start calls and lets tests fire the outcome by hand.
type FakePoller struct {
	mu        sync.Mutex
	Reference string
	Amount    float64
	onSuccess func()
	onTimeout func()
	Starts    int
	Cancels   int
}

func (f *FakePoller) Start(reference string, amount float64, onSuccess, onTimeout func()) poller.CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Starts++
	f.Reference = reference
	f.Amount = amount
	f.onSuccess = onSuccess
	f.onTimeout = onTimeout
	return func() {
		f.mu.Lock()
		f.Cancels++
		f.mu.Unlock()
	}
}

func (f *FakePoller) FireSuccess() {
	f.mu.Lock()
	cb := f.onSuccess
	f.mu.Unlock()
	cb()
}

func (f *FakePoller) FireTimeout() {
	f.mu.Lock()
	cb := f.onTimeout
	f.mu.Unlock()
	cb()
}
