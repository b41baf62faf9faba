// Package profile is the HTTP client for the external profile service,
// consumed only to prefill and persist the contact phone number used in
// the payment step.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// API is the profile contract the wizard consumes.
type API interface {
	GetPhone(ctx context.Context, userID uuid.UUID) (string, error)
	UpdatePhone(ctx context.Context, userID uuid.UUID, phone string) error
}

// Client is a profile service client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a profile client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type phonePayload struct {
	Phone string `json:"phone"`
}

// GetPhone returns the user's contact phone number, empty when none is on
// file.
func (c *Client) GetPhone(ctx context.Context, userID uuid.UUID) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/phone", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload phonePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return payload.Phone, nil
}

// UpdatePhone stores a new contact phone number on the user's profile.
func (c *Client) UpdatePhone(ctx context.Context, userID uuid.UUID, phone string) error {
	body, err := json.Marshal(phonePayload{Phone: phone})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/phone", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
