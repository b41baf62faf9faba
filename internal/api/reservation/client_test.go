package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busline/booking-backend/internal/models"
)

func testRequest() *models.CreateReservationRequest {
	return &models.CreateReservationRequest{
		CustomerID: "cust-1",
		TripSeats: []models.LegSeatRequest{
			{TripID: 1, FromStationID: 10, ToStationID: 20, SeatIDs: []int{101, 102}},
		},
		ReturnURL: "https://app.example/confirmation?session=abc",
	}
}

func TestCreate_RedirectURLAliases(t *testing.T) {
	aliases := []string{"redirectUrl", "redirect_url", "paymentUrl", "payment_url", "url"}

	for _, alias := range aliases {
		t.Run(alias, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/reservations", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var payload map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "cust-1", payload["customerId"])

				fmt.Fprintf(w, `{"%s": "https://gateway.example/pay/xyz"}`, alias)
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			result, err := client.Create(context.Background(), testRequest())
			require.NoError(t, err)
			assert.Equal(t, "https://gateway.example/pay/xyz", result.RedirectURL)
		})
	}
}

func TestCreate_NoRedirectFieldIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"message": "reservation queued"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.Create(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, result.RedirectURL)
	assert.Equal(t, "reservation queued", result.Message)
}

func TestCreate_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.Create(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, result.RedirectURL)
}

func TestCreate_RejectionSurfacesBackendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error": "seats already booked"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Create(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seats already booked")
}

func TestCreate_RejectionWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Create(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
