// Package reservation is the HTTP client for the external
// reservation-creation endpoint, which replies with a payment gateway
// redirect URL on success.
package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/busline/booking-backend/internal/models"
)

// API is the reservation-creation contract the wizard consumes.
type API interface {
	Create(ctx context.Context, req *models.CreateReservationRequest) (*CreateResult, error)
}

// CreateResult is the normalized outcome of a reservation call.
// RedirectURL is empty when the backend accepted the request but supplied
// no recognizable redirect field; the wizard treats that as a failure.
type CreateResult struct {
	RedirectURL string
	Message     string
}

// createResponse captures every redirect-URL alias the backend has been
// observed to use, plus its error shapes.
type createResponse struct {
	RedirectURL      string `json:"redirectUrl"`
	RedirectURLSnake string `json:"redirect_url"`
	PaymentURL       string `json:"paymentUrl"`
	PaymentURLSnake  string `json:"payment_url"`
	URL              string `json:"url"`
	Message          string `json:"message"`
	Error            string `json:"error"`
}

func (r *createResponse) redirect() string {
	for _, u := range []string{r.RedirectURL, r.RedirectURLSnake, r.PaymentURL, r.PaymentURLSnake, r.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// Client is a reservation endpoint client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a reservation client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// Create submits the reservation and returns the gateway redirect URL.
func (c *Client) Create(ctx context.Context, payload *models.CreateReservationRequest) (*CreateResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	endpoint := c.baseURL + "/reservations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var decoded createResponse
	if len(raw) > 0 {
		// A body we cannot decode is reported alongside the status code.
		if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		msg := decoded.Error
		if msg == "" {
			msg = decoded.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("reservation rejected: %s", msg)
	}

	return &CreateResult{
		RedirectURL: decoded.redirect(),
		Message:     decoded.Message,
	}, nil
}
