// Package payment talks to the external payment gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable is returned when the gateway cannot be reached or answers
// with a server error before a charge was created.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Intent describes the charge to create for a group order.
type Intent struct {
	IntentID     string  `json:"intent_id"`
	GroupOrderID string  `json:"group_order_id"`
	PayerID      string  `json:"payer_id"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// Gateway creates charges against the payment provider.
type Gateway interface {
	// CreateCharge dispatches a charge and returns the provider's
	// transaction id. The returned id may be empty when the request was
	// dispatched but the response never arrived; in that case the charge
	// may or may not exist on the provider side.
	CreateCharge(ctx context.Context, intent Intent) (string, error)
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
}

// HTTPGateway is the production Gateway, a thin client for the campus
// payment provider's REST API.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPGateway) CreateCharge(ctx context.Context, intent Intent) (string, error) {
	body, err := json.Marshal(intent)
	if err != nil {
		return "", fmt.Errorf("failed to encode charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// The request left the building; the charge may exist.
			return "", context.DeadlineExceeded
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("gateway rejected charge: status %d", resp.StatusCode)
	}

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode charge response: %w", err)
	}
	return out.TransactionID, nil
}
