package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/api/reservation"
	"github.com/busline/booking-backend/internal/models"
	"github.com/busline/booking-backend/internal/realtime"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func dateCriteria(roundTrip bool) models.SearchCriteria {
	criteria := models.SearchCriteria{
		FromLocationID: 1,
		ToLocationID:   2,
		FromStationID:  10,
		ToStationID:    20,
		Date:           time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	if roundTrip {
		ret := criteria.Date.AddDate(0, 0, 3)
		criteria.ReturnDate = &ret
	}
	return criteria
}

func directItinerary(legID int, price float64, direction models.Direction) *models.Itinerary {
	leg := models.Leg{
		ID:            legID,
		TripID:        legID,
		FromStationID: 10,
		ToStationID:   20,
		Price:         price,
	}
	if direction == models.DirectionReturn {
		leg.FromStationID, leg.ToStationID = 20, 10
	}
	return &models.Itinerary{
		ID:         legID,
		Kind:       models.ItineraryDirect,
		Direction:  direction,
		Legs:       []models.Leg{leg},
		TotalPrice: price,
	}
}

func transferItinerary(firstID, secondID int, firstPrice, secondPrice float64, direction models.Direction) *models.Itinerary {
	from, to := 10, 20
	if direction == models.DirectionReturn {
		from, to = 20, 10
	}
	return &models.Itinerary{
		ID:        firstID*100 + secondID,
		Kind:      models.ItineraryTransfer,
		Direction: direction,
		Legs: []models.Leg{
			{ID: firstID, TripID: firstID, FromStationID: from, ToStationID: 15, Price: firstPrice},
			{ID: secondID, TripID: secondID, FromStationID: 15, ToStationID: to, Price: secondPrice},
		},
		TotalPrice: firstPrice + secondPrice,
	}
}

func seatsFor(legID int, price float64, ids ...int) []models.Seat {
	seats := make([]models.Seat, 0, len(ids))
	for i, id := range ids {
		seats = append(seats, models.Seat{
			ID:         id,
			LegID:      legID,
			Row:        "A",
			Column:     i + 1,
			SeatNumber: "A" + string(rune('0'+i+1)),
			Price:      price,
		})
	}
	return seats
}

// fakeTripsAPI serves canned search and availability responses.
type fakeTripsAPI struct {
	mu             sync.Mutex
	searchResponse *models.RawSearchResponse
	searchErr      error
	seats          map[int][]models.RawSeat
	seatErr        error
	seatCalls      []int
}

func (f *fakeTripsAPI) Search(_ context.Context, _ models.SearchCriteria) (*models.RawSearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResponse, nil
}

func (f *fakeTripsAPI) SeatAvailability(_ context.Context, legID, _, _ int) ([]models.RawSeat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seatCalls = append(f.seatCalls, legID)
	if f.seatErr != nil {
		return nil, f.seatErr
	}
	return f.seats[legID], nil
}

// fakeReservationAPI records the payload it was called with and replies
// with a canned result.
type fakeReservationAPI struct {
	mu      sync.Mutex
	result  *reservation.CreateResult
	err     error
	lastReq *models.CreateReservationRequest
}

func (f *fakeReservationAPI) Create(_ context.Context, req *models.CreateReservationRequest) (*reservation.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &reservation.CreateResult{}, nil
	}
	return f.result, nil
}

// fakeProfileAPI serves a canned phone number.
type fakeProfileAPI struct {
	mu           sync.Mutex
	phone        string
	getErr       error
	updatedPhone string
}

func (f *fakeProfileAPI) GetPhone(_ context.Context, _ uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phone, f.getErr
}

func (f *fakeProfileAPI) UpdatePhone(_ context.Context, _ uuid.UUID, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedPhone = phone
	return nil
}

// recordingAuditor collects audit entries in memory.
type recordingAuditor struct {
	mu      sync.Mutex
	entries []models.PaymentAudit
}

func (r *recordingAuditor) Log(_ context.Context, entry *models.PaymentAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *recordingAuditor) eventTypes() []models.PaymentAuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]models.PaymentAuditEvent, 0, len(r.entries))
	for _, entry := range r.entries {
		types = append(types, entry.EventType)
	}
	return types
}

// fakeChannel is an in-process seat event channel.
type fakeChannel struct {
	mu     sync.Mutex
	joined map[int]bool
	left   []int
	events chan models.SeatEvent
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		joined: make(map[int]bool),
		events: make(chan models.SeatEvent, 16),
	}
}

func (f *fakeChannel) JoinTripGroup(_ context.Context, legID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined[legID] = true
	return nil
}

func (f *fakeChannel) LeaveTripGroup(_ context.Context, legID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.joined, legID)
	f.left = append(f.left, legID)
	return nil
}

func (f *fakeChannel) Events() <-chan models.SeatEvent { return f.events }

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeChannel) joinedLegs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	legs := make([]int, 0, len(f.joined))
	for id := range f.joined {
		legs = append(legs, id)
	}
	return legs
}

// channelRecorder hands out fake channels and remembers the latest one.
type channelRecorder struct {
	mu   sync.Mutex
	last *fakeChannel
}

func (r *channelRecorder) factory() realtime.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = newFakeChannel()
	return r.last
}

func (r *channelRecorder) latest() *fakeChannel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
