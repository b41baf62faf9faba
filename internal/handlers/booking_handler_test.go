package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busline/booking-backend/internal/api/reservation"
	"github.com/busline/booking-backend/internal/api/trips"
	"github.com/busline/booking-backend/internal/models"
	"github.com/busline/booking-backend/internal/realtime"
	"github.com/busline/booking-backend/internal/services"
	"github.com/busline/booking-backend/internal/storage"
	"github.com/busline/booking-backend/pkg/validator"
)

type stubProfileAPI struct{ phone string }

func (s *stubProfileAPI) GetPhone(context.Context, uuid.UUID) (string, error) { return s.phone, nil }
func (s *stubProfileAPI) UpdatePhone(context.Context, uuid.UUID, string) error {
	return nil
}

type nopChannel struct{ events chan models.SeatEvent }

func (n *nopChannel) JoinTripGroup(context.Context, int) error  { return nil }
func (n *nopChannel) LeaveTripGroup(context.Context, int) error { return nil }
func (n *nopChannel) Events() <-chan models.SeatEvent           { return n.events }
func (n *nopChannel) Close() error                              { return nil }

type handlerHarness struct {
	router   *gin.Engine
	sessions *services.SessionManager
}

// newHarness wires the full stack with httptest upstreams: a trip
// backend serving one direct trip with two seats, and a reservation
// backend replying with a gateway redirect.
func newHarness(t *testing.T) *handlerHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	tripServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/trips/search" {
			fmt.Fprint(w, `{"directTrips": [{"id": 1, "tripId": 1, "price": 2500, "fromStationId": 10, "toStationId": 20}]}`)
			return
		}
		fmt.Fprint(w, `[
			{"seatId": 101, "isAvailable": true, "rowIndex": 1, "columnIndex": 1},
			{"seatId": 102, "isAvailable": true, "rowIndex": 1, "columnIndex": 2}
		]`)
	}))
	t.Cleanup(tripServer.Close)

	resvServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"redirectUrl": "https://gateway.example/pay/h1"}`)
	}))
	t.Cleanup(resvServer.Close)

	seatSync := services.NewRealtimeSeatSync(func() realtime.Channel {
		return &nopChannel{events: make(chan models.SeatEvent)}
	}, logger)
	bridge := services.NewPaymentRedirectBridge(storage.NewMemorySnapshotStore(), time.Hour, logger)

	wizard := services.NewBookingWizard(
		trips.NewClient(tripServer.URL, 5*time.Second),
		reservation.NewClient(resvServer.URL, 5*time.Second),
		&stubProfileAPI{},
		services.NewTripComposer(logger),
		bridge,
		seatSync,
		validator.NewPhoneValidator(),
		nil,
		services.WizardConfig{ReturnURL: "https://app.example/confirmation", Currency: "LKR"},
		logger,
	)
	sessions := services.NewSessionManager(time.Hour, seatSync, logger)
	handler := NewBookingHandler(sessions, wizard, logger)

	router := gin.New()
	booking := router.Group("/api/v1/booking")
	{
		booking.POST("/sessions", handler.CreateSession)
		booking.GET("/sessions/:id", handler.GetSession)
		booking.DELETE("/sessions/:id", handler.DeleteSession)
		booking.POST("/sessions/:id/search", handler.Search)
		booking.POST("/sessions/:id/itinerary", handler.ChooseItinerary)
		booking.POST("/sessions/:id/next", handler.Next)
		booking.POST("/sessions/:id/back", handler.Back)
		booking.GET("/sessions/:id/seats", handler.GetSeats)
		booking.POST("/sessions/:id/seats/toggle", handler.ToggleSeat)
		booking.POST("/sessions/:id/seats/retry", handler.RetryAvailability)
		booking.POST("/sessions/:id/payment", handler.SubmitPayment)
		booking.GET("/confirmation", handler.Confirmation)
	}
	return &handlerHarness{router: router, sessions: sessions}
}

func (h *handlerHarness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func searchBody() map[string]any {
	return map[string]any{
		"from_location_id": 1,
		"to_location_id":   2,
		"from_station_id":  10,
		"to_station_id":    20,
		"date":             "2026-10-01T00:00:00Z",
	}
}

func TestBookingFlow_EndToEnd(t *testing.T) {
	h := newHarness(t)

	w, view := h.do(t, "POST", "/api/v1/booking/sessions", searchBody())
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := view["id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, "search", view["step"])
	require.Len(t, view["departure_options"], 1)

	base := "/api/v1/booking/sessions/" + sessionID

	w, _ = h.do(t, "POST", base+"/itinerary", map[string]any{
		"direction": "departure", "itinerary_id": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Advancing without a seat selection is blocked later; entering the
	// seats step itself only requires the itinerary choice.
	w, view = h.do(t, "POST", base+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "seats", view["step"])

	w, _ = h.do(t, "POST", base+"/next", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(t, "POST", base+"/seats/toggle", map[string]any{
		"role": "departure", "seat_id": 101,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, view = h.do(t, "POST", base+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "payment", view["step"])
	pricing := view["pricing"].(map[string]any)
	assert.Equal(t, 2500.0, pricing["total"])

	w, body := h.do(t, "POST", base+"/payment", map[string]any{
		"method": "card", "phone": "0771234567",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://gateway.example/pay/h1", body["redirect_url"])

	w, view = h.do(t, "GET", "/api/v1/booking/confirmation?session="+sessionID+"&status=success", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "result", view["step"])
	outcome := view["outcome"].(map[string]any)
	assert.Equal(t, "success", outcome["status"])
	assert.Equal(t, true, outcome["restored"])
}

func TestCreateSession_InvalidCriteria(t *testing.T) {
	h := newHarness(t)

	body := searchBody()
	body["to_station_id"] = 10
	w, _ := h.do(t, "POST", "/api/v1/booking/sessions", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSession_NotFound(t *testing.T) {
	h := newHarness(t)

	w, _ := h.do(t, "GET", "/api/v1/booking/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSession_OwnedByAnotherUser(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	session := h.sessions.Create(models.SearchCriteria{
		FromLocationID: 1, ToLocationID: 2, FromStationID: 10, ToStationID: 20,
		Date: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}, &owner)

	// No bearer token on the request; the owned session must not leak.
	w, _ := h.do(t, "GET", "/api/v1/booking/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteSession(t *testing.T) {
	h := newHarness(t)

	w, view := h.do(t, "POST", "/api/v1/booking/sessions", searchBody())
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := view["id"].(string)

	w, _ = h.do(t, "DELETE", "/api/v1/booking/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = h.do(t, "GET", "/api/v1/booking/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmation_RequiresSessionParam(t *testing.T) {
	h := newHarness(t)

	w, _ := h.do(t, "GET", "/api/v1/booking/confirmation", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
