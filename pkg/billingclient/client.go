/**
 * @description
 * This package provides a client for the payment provider's billing API. It
 * encapsulates checkout session creation, post-redirect session status lookup,
 * and subscription cancellation. All calls are authenticated with a token
 * supplied per call; the client never stores credentials.
 *
 * Key features:
 * - Manages the API base URL and a shared timeout HTTP client.
 * - Serializes requests and deserializes responses with wrapped errors.
 * - Treats any non-2xx status as an error so callers can degrade gracefully.
 */
package billingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/myscrollr/uplink-service/pkg/identity"
)

// CheckoutParams describes the checkout session to open.
type CheckoutParams struct {
	PriceID   string `json:"price_id"`
	Lifetime  bool   `json:"lifetime"`
	Unlimited bool   `json:"unlimited"`
}

// CheckoutIntent is the provider's handle for an opened checkout session.
type CheckoutIntent struct {
	SessionID      string `json:"session_id"`
	ClientSecret   string `json:"client_secret"`
	PublishableKey string `json:"publishable_key"`
}

// CheckoutReturn is the status of a checkout session after redirect.
type CheckoutReturn struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// CancelResult reports a cancel-at-period-end request.
type CancelResult struct {
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// Client is a client for the billing API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new billing API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckoutSession opens a checkout session for the given price. An empty
// price ID is rejected here as a last line of defense — a malformed purchase
// request must never reach the provider.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams, token identity.TokenSupplier) (*CheckoutIntent, error) {
	if params.PriceID == "" {
		return nil, fmt.Errorf("billing: refusing checkout with empty price ID")
	}

	var intent CheckoutIntent
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/billing/checkout", params, &intent, token); err != nil {
		return nil, err
	}
	return &intent, nil
}

// GetCheckoutReturn looks up the status of a checkout session after the user
// returns from the payment redirect.
func (c *Client) GetCheckoutReturn(ctx context.Context, sessionID string, token identity.TokenSupplier) (*CheckoutReturn, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("billing: session ID is required")
	}

	ret := CheckoutReturn{}
	endpoint := c.baseURL + "/billing/checkout/return?session_id=" + url.QueryEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &ret, token); err != nil {
		return nil, err
	}
	return &ret, nil
}

// CancelSubscription asks the provider to cancel the caller's subscription at
// the end of the current billing period.
func (c *Client) CancelSubscription(ctx context.Context, token identity.TokenSupplier) (*CancelResult, error) {
	var result CancelResult
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/billing/subscription/cancel", nil, &result, token); err != nil {
		return nil, err
	}
	return &result, nil
}

// do is a helper function to make authenticated HTTP requests to the billing API.
func (c *Client) do(ctx context.Context, method, endpoint string, body, target interface{}, token identity.TokenSupplier) error {
	if c.baseURL == "" {
		return fmt.Errorf("billing API base URL is not configured")
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	accessToken, err := token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("billing API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to unmarshal response body: %w", err)
		}
	}

	return nil
}
