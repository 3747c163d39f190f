package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanhduy633/checkout-service/domain"
	"github.com/chanhduy633/checkout-service/internal/metrics"
	r "github.com/chanhduy633/checkout-service/internal/repository"
	"github.com/chanhduy633/checkout-service/internal/service"
	"github.com/chanhduy633/checkout-service/internal/snapshot"
)

// One metrics instance per test binary; promauto registers globally.
var testMetrics = metrics.NewMetrics()

type mockCheckoutService struct {
	BeginResp  *domain.CheckoutResponse
	BeginErr   error
	LastReq    *domain.CheckoutRequest
	CancelResp *domain.CheckoutResponse
	CancelErr  error
	GetResp    *domain.CheckoutResponse
	GetErr     error
}

func (m *mockCheckoutService) BeginCheckout(_ context.Context, req *domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	m.LastReq = req
	return m.BeginResp, m.BeginErr
}

func (m *mockCheckoutService) CancelPayment(context.Context, string) (*domain.CheckoutResponse, error) {
	return m.CancelResp, m.CancelErr
}

func (m *mockCheckoutService) GetCheckout(context.Context, string) (*domain.CheckoutResponse, error) {
	return m.GetResp, m.GetErr
}

func newTestServer(t *testing.T, svc service.CheckoutService) (*Server, *snapshot.MemoryStore) {
	t.Helper()
	snapshots := snapshot.NewMemoryStore()
	s, err := NewServer(svc, snapshots, testMetrics)
	require.NoError(t, err)
	return s, snapshots
}

func checkoutBody() []byte {
	body, _ := json.Marshal(BeginCheckoutDTO{
		Contact: ContactDTO{
			FullName: "Nguyễn Văn A",
			Email:    "a@example.com",
			Phone:    "0912345678",
		},
		Address: AddressDTO{
			Street:       "12 Nguyễn Huệ",
			WardCode:     "26734",
			DistrictCode: "760",
			ProvinceCode: "79",
		},
		PaymentMethod: "COD",
	})
	return body
}

func TestBeginCheckoutHandler_Success(t *testing.T) {
	svc := &mockCheckoutService{
		BeginResp: &domain.CheckoutResponse{
			CheckoutID:  "co-1",
			Status:      domain.CheckoutStatusCommitted,
			OrderNumber: "DH-2026-0042",
		},
	}
	s, _ := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody()))
	req.Header.Set("X-User-ID", "user123")
	req.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "co-1", resp.CheckoutID)
	assert.Equal(t, domain.CheckoutStatusCommitted, resp.Status)

	require.NotNil(t, svc.LastReq)
	assert.Equal(t, "user123", svc.LastReq.UserID)
	assert.Equal(t, "key-1", svc.LastReq.IdempotencyKey)
	assert.Equal(t, domain.PaymentMethodCOD, svc.LastReq.PaymentMethod)
}

func TestBeginCheckoutHandler_TransferAccepted(t *testing.T) {
	svc := &mockCheckoutService{
		BeginResp: &domain.CheckoutResponse{
			CheckoutID: "co-1",
			Status:     domain.CheckoutStatusAwaitingPayment,
			Payment: &domain.PaymentInstructions{
				Reference: "PAY-ABC12345",
				Amount:    250,
				BankCode:  "VCB",
			},
		},
	}
	s, _ := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody()))
	req.Header.Set("X-User-ID", "user123")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp domain.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.CheckoutStatusAwaitingPayment, resp.Status)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, "PAY-ABC12345", resp.Payment.Reference)
}

func TestBeginCheckoutHandler_FailedCommitIsBadGateway(t *testing.T) {
	svc := &mockCheckoutService{
		BeginResp: &domain.CheckoutResponse{
			CheckoutID:    "co-1",
			Status:        domain.CheckoutStatusFailed,
			FailureReason: "order creation failed: order service unavailable",
		},
	}
	s, _ := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody()))
	req.Header.Set("X-User-ID", "user123")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp domain.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.CheckoutStatusFailed, resp.Status)
	assert.Contains(t, resp.FailureReason, "order creation failed")
}

func TestBeginCheckoutHandler_MissingUser(t *testing.T) {
	s, _ := newTestServer(t, &mockCheckoutService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody()))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBeginCheckoutHandler_ValidationRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BeginCheckoutDTO)
	}{
		{"bad email", func(d *BeginCheckoutDTO) { d.Contact.Email = "not-an-email" }},
		{"bad phone prefix", func(d *BeginCheckoutDTO) { d.Contact.Phone = "0112345678" }},
		{"missing street", func(d *BeginCheckoutDTO) { d.Address.Street = "" }},
		{"bad method", func(d *BeginCheckoutDTO) { d.PaymentMethod = "CRYPTO" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{}
			s, _ := newTestServer(t, svc)

			var dto BeginCheckoutDTO
			require.NoError(t, json.Unmarshal(checkoutBody(), &dto))
			tt.mutate(&dto)
			body, _ := json.Marshal(dto)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
			req.Header.Set("X-User-ID", "user123")
			rec := httptest.NewRecorder()
			s.Router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.LastReq, "request must not reach the service")
		})
	}
}

func TestBeginCheckoutHandler_EmptyCartConflict(t *testing.T) {
	svc := &mockCheckoutService{BeginErr: service.ErrEmptyCart}
	s, _ := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody()))
	req.Header.Set("X-User-ID", "user123")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "empty_cart", errResp.Code)
}

func TestCancelPaymentHandler(t *testing.T) {
	svc := &mockCheckoutService{
		CancelResp: &domain.CheckoutResponse{
			CheckoutID: "co-1",
			Status:     domain.CheckoutStatusCancelled,
		},
	}
	s, _ := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/co-1/cancel", nil)
	req.Header.Set("X-User-ID", "user123")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.CheckoutStatusCancelled, resp.Status)
}

func TestCancelPaymentHandler_NothingPending(t *testing.T) {
	svc := &mockCheckoutService{CancelErr: service.ErrNoPendingPayment}
	s, _ := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/co-1/cancel", nil)
	req.Header.Set("X-User-ID", "user123")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSnapshotHandlers_SaveThenGet(t *testing.T) {
	s, _ := newTestServer(t, &mockCheckoutService{})

	body, _ := json.Marshal(SaveSnapshotDTO{Items: []SnapshotLineDTO{
		{ProductID: 1, Name: "Áo thun", Price: 100, Quantity: 2},
		{ProductID: 2, Name: "Quần jean", Price: 50, Quantity: 1},
	}})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/snapshot", bytes.NewReader(body))
	req.Header.Set("X-User-ID", "user123")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/checkout/snapshot", nil)
	req.Header.Set("X-User-ID", "user123")
	rec = httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.CartSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, 250.0, snap.TotalAmount, "total is recomputed on load")
}

func TestSnapshotHandler_RejectsEmptyItems(t *testing.T) {
	s, _ := newTestServer(t, &mockCheckoutService{})

	body, _ := json.Marshal(SaveSnapshotDTO{Items: []SnapshotLineDTO{}})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/snapshot", bytes.NewReader(body))
	req.Header.Set("X-User-ID", "user123")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCheckoutHandler_NotFound(t *testing.T) {
	svc := &mockCheckoutService{GetErr: r.ErrSessionNotFound}
	s, _ := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/unknown", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
