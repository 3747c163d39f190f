package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PaymentClient queries the payment-status endpoint. A single check is
// idempotent and side-effect free; the poller calls it repeatedly.
type PaymentClient struct {
	baseURL string
	http    *http.Client
}

func NewPaymentClient(baseURL string, timeout time.Duration) *PaymentClient {
	return &PaymentClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type paymentStatusResponse struct {
	Success bool `json:"success"`
	IsPaid  bool `json:"is_paid"`
}

// CheckPayment reports whether a transfer tagged with reference and matching
// the expected amount has landed. success=false from the endpoint, a non-2xx
// status and a transport failure are all transient errors; "not paid yet" is
// a normal result, not an error.
func (c *PaymentClient) CheckPayment(ctx context.Context, reference string, amount float64) (bool, error) {
	q := url.Values{}
	q.Set("reference", reference)
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/transactions?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("build payment status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("payment status call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("payment status returned status %d", resp.StatusCode)
	}

	var out paymentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode payment status response: %w", err)
	}
	if !out.Success {
		return false, fmt.Errorf("payment status endpoint reported failure")
	}
	return out.IsPaid, nil
}
