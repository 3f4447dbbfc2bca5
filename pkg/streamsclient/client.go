/**
 * @description
 * Client for the streams API. The uplink service only reads the caller's
 * stream list to compute usage counters; stream CRUD stays with the streams
 * service itself.
 */
package streamsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/myscrollr/uplink-service/internal/domain"
	"github.com/myscrollr/uplink-service/pkg/identity"
)

// Client is a client for the streams API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new streams API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetAll fetches every stream belonging to the authenticated caller.
func (c *Client) GetAll(ctx context.Context, token identity.TokenSupplier) ([]domain.StreamItem, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("streams API base URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me/streams", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	accessToken, err := token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("streams API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("streams API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var payload struct {
		Streams []domain.StreamItem `json:"streams"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal streams response: %w", err)
	}

	return payload.Streams, nil
}
