// Package client holds the HTTP clients for the two external collaborators:
// the order-creation endpoint and the payment-status endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chanhduy633/checkout-service/domain"
)

// OrdersClient talks to the order-creation endpoint. Any non-2xx response is
// a commit failure; the caller decides what that means for the checkout.
type OrdersClient struct {
	baseURL string
	http    *http.Client
}

func NewOrdersClient(baseURL string, timeout time.Duration) *OrdersClient {
	return &OrdersClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type createOrderResponse struct {
	OrderNumber string `json:"order_number"`
}

func (c *OrdersClient) CreateOrder(ctx context.Context, draft *domain.OrderDraft) (string, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("marshal order draft: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("order creation call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("order creation returned status %d", resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	if out.OrderNumber == "" {
		return "", fmt.Errorf("order creation returned empty order number")
	}
	return out.OrderNumber, nil
}
