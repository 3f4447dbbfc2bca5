/**
 * @description
 * Client for the identity provider's management API (machine-to-machine).
 * The uplink service uses it to grant or revoke the "uplink" role when a
 * subscription is activated or ends, and as the token supplier for background
 * jobs that run without a user request.
 *
 * Key features:
 * - Caches the client-credentials token and refreshes it shortly before expiry.
 * - Treats "already assigned" / "not assigned" provider responses as success.
 */
package logtoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpiryBuffer is subtracted from the provider's expires_in so a token is
// never used in its final seconds.
const tokenExpiryBuffer = 60 * time.Second

// Config holds the management API credentials and targets.
type Config struct {
	Endpoint  string // e.g. https://auth.myscrollr.relentnet.dev
	AppID     string
	AppSecret string
	Resource  string // e.g. https://default.logto.app/api
	RoleID    string // role granted to paying users
}

// Client is a management API client with a cached M2M token.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new management API client.
func NewClient(cfg Config) *Client {
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Token returns a valid management API access token, refreshing the cached one
// if it has expired. Satisfies identity.TokenSupplier for background jobs.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	if c.cfg.AppID == "" || c.cfg.AppSecret == "" {
		return "", fmt.Errorf("logto M2M app ID and secret must be configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("resource", c.cfg.Resource)
	form.Set("scope", "all")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/oidc/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.AppID, c.cfg.AppSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("M2M token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("M2M token request returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse M2M token response: %w", err)
	}

	c.token = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenExpiryBuffer)
	return c.token, nil
}

// AssignUplinkRole grants the paying-user role to a subject.
func (c *Client) AssignUplinkRole(ctx context.Context, subject string) error {
	if c.cfg.RoleID == "" {
		return fmt.Errorf("uplink role ID is not configured")
	}

	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string][]string{"roleIds": {c.cfg.RoleID}})
	endpoint := fmt.Sprintf("%s/api/users/%s/roles", c.cfg.Endpoint, url.PathEscape(subject))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create assign role request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("assign role request failed: %w", err)
	}
	defer resp.Body.Close()

	// 201 = assigned, 422 = already assigned (both are fine)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusUnprocessableEntity {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("assign role returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// RemoveUplinkRole revokes the paying-user role from a subject.
func (c *Client) RemoveUplinkRole(ctx context.Context, subject string) error {
	if c.cfg.RoleID == "" {
		return fmt.Errorf("uplink role ID is not configured")
	}

	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/users/%s/roles/%s", c.cfg.Endpoint, url.PathEscape(subject), url.PathEscape(c.cfg.RoleID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create remove role request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remove role request failed: %w", err)
	}
	defer resp.Body.Close()

	// 204 = removed, 404 = not assigned (both are fine)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remove role returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
