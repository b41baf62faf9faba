// Package trips is the HTTP client for the trip-search and
// seat-availability backend.
package trips

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/busline/booking-backend/internal/models"
)

// API is the subset of the trip backend the booking core consumes.
type API interface {
	Search(ctx context.Context, criteria models.SearchCriteria) (*models.RawSearchResponse, error)
	SeatAvailability(ctx context.Context, legID, fromStationID, toStationID int) ([]models.RawSeat, error)
}

// Client is a trip-search backend client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a trip backend client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

const dateLayout = "2006-01-02"

// Search runs a trip search. One-way responses carry a single flat bucket
// of direct/transfer/triple candidates; round-trip responses carry a
// bucket per direction.
func (c *Client) Search(ctx context.Context, criteria models.SearchCriteria) (*models.RawSearchResponse, error) {
	q := url.Values{}
	q.Set("fromLocationId", strconv.Itoa(criteria.FromLocationID))
	q.Set("toLocationId", strconv.Itoa(criteria.ToLocationID))
	q.Set("fromStationId", strconv.Itoa(criteria.FromStationID))
	q.Set("toStationId", strconv.Itoa(criteria.ToStationID))
	q.Set("date", criteria.Date.Format(dateLayout))
	if criteria.ReturnDate != nil {
		q.Set("returnDate", criteria.ReturnDate.Format(dateLayout))
	}

	endpoint := fmt.Sprintf("%s/trips/search?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result models.RawSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// SeatAvailability fetches the authoritative seat list for one leg over
// one station pair. For multi-leg itineraries the caller passes the
// itinerary's derived id and the overall station pair; the response then
// mixes seats of every constituent leg, tagged by legId where the backend
// supplies it.
func (c *Client) SeatAvailability(ctx context.Context, legID, fromStationID, toStationID int) ([]models.RawSeat, error) {
	endpoint := fmt.Sprintf("%s/trips/%d/seats?fromStationId=%d&toStationId=%d",
		c.baseURL, legID, fromStationID, toStationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result []models.RawSeat
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return result, nil
}
