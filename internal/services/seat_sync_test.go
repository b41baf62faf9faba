package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busline/booking-backend/internal/models"
)

func seatsSession(itinerary *models.Itinerary, seats map[int][]models.Seat) *BookingSession {
	session := newBookingSession(dateCriteria(false), nil)
	session.Departure = itinerary
	session.Step = models.StepSeats
	for role, state := range NewSeatStates(itinerary) {
		state.Leg.Seats = seats[state.Leg.ID]
		session.Legs[role] = state
	}
	return session
}

func TestSeatSync_JoinsActiveLegs(t *testing.T) {
	recorder := &channelRecorder{}
	sync := NewRealtimeSeatSync(recorder.factory, testLogger())
	session := seatsSession(transferItinerary(1, 2, 800, 900, models.DirectionDeparture), nil)

	session.mu.Lock()
	err := sync.Start(context.Background(), session)
	session.mu.Unlock()
	require.NoError(t, err)

	channel := recorder.latest()
	assert.ElementsMatch(t, []int{1, 2}, channel.joinedLegs())

	sync.Stop(session)
	assert.Empty(t, channel.joinedLegs())
	assert.True(t, channel.isClosed())
}

func TestSeatSync_EventsReachSeatState(t *testing.T) {
	recorder := &channelRecorder{}
	sync := NewRealtimeSeatSync(recorder.factory, testLogger())
	itinerary := directItinerary(1, 500, models.DirectionDeparture)
	session := seatsSession(itinerary, map[int][]models.Seat{1: seatsFor(1, 500, 11)})

	session.mu.Lock()
	require.NoError(t, sync.Start(context.Background(), session))
	session.mu.Unlock()
	defer sync.Stop(session)

	recorder.latest().events <- models.SeatEvent{
		Type: models.SeatEventLocked, LegID: 1, SeatID: 11, FromStationID: 10, ToStationID: 20,
	}

	assert.Eventually(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.Legs[models.RoleDeparture].Leg.Seats[0].IsBooked
	}, time.Second, 5*time.Millisecond)
}

func TestSeatSync_EventForLeftLegIsIgnored(t *testing.T) {
	recorder := &channelRecorder{}
	sync := NewRealtimeSeatSync(recorder.factory, testLogger())
	itinerary := directItinerary(1, 500, models.DirectionDeparture)
	session := seatsSession(itinerary, map[int][]models.Seat{1: seatsFor(1, 500, 11)})

	session.mu.Lock()
	require.NoError(t, sync.Start(context.Background(), session))
	session.mu.Unlock()
	defer sync.Stop(session)

	// An event for a leg the session never joined touches nothing, even
	// though it arrives on the same connection.
	recorder.latest().events <- models.SeatEvent{
		Type: models.SeatEventLocked, LegID: 99, SeatID: 11, FromStationID: 10, ToStationID: 20,
	}
	// A follow-up event for the active leg proves the first one has been
	// processed by the time we assert.
	recorder.latest().events <- models.SeatEvent{
		Type: models.SeatEventLocked, LegID: 1, SeatID: 11, FromStationID: 10, ToStationID: 20,
	}

	require.Eventually(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.Legs[models.RoleDeparture].Leg.Seats[0].IsBooked
	}, time.Second, 5*time.Millisecond)
}

func TestSeatSync_EventAfterStopIsIgnored(t *testing.T) {
	recorder := &channelRecorder{}
	sync := NewRealtimeSeatSync(recorder.factory, testLogger())
	itinerary := directItinerary(1, 500, models.DirectionDeparture)
	session := seatsSession(itinerary, map[int][]models.Seat{1: seatsFor(1, 500, 11)})

	session.mu.Lock()
	require.NoError(t, sync.Start(context.Background(), session))
	session.mu.Unlock()
	channel := recorder.latest()

	sync.Stop(session)

	// The subscription is gone; a straggler event must not mutate the
	// seat list.
	session.applySeatEvent(models.SeatEvent{
		Type: models.SeatEventLocked, LegID: 1, SeatID: 11, FromStationID: 10, ToStationID: 20,
	})

	session.mu.Lock()
	booked := session.Legs[models.RoleDeparture].Leg.Seats[0].IsBooked
	session.mu.Unlock()
	assert.False(t, booked)
	assert.True(t, channel.isClosed())
}

func TestSeatSync_RestartReplacesSubscription(t *testing.T) {
	recorder := &channelRecorder{}
	sync := NewRealtimeSeatSync(recorder.factory, testLogger())
	session := seatsSession(directItinerary(1, 500, models.DirectionDeparture), nil)

	session.mu.Lock()
	require.NoError(t, sync.Start(context.Background(), session))
	session.mu.Unlock()
	first := recorder.latest()

	session.mu.Lock()
	require.NoError(t, sync.Start(context.Background(), session))
	session.mu.Unlock()
	second := recorder.latest()

	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())
	assert.ElementsMatch(t, []int{1}, second.joinedLegs())

	sync.Stop(session)
}
