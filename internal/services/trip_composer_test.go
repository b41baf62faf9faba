package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busline/booking-backend/internal/models"
)

func rawTrip(id int, price float64, start, end time.Time) models.RawTrip {
	return models.RawTrip{
		ID:            &id,
		TripID:        id,
		FromLocation:  "Colombo",
		EndLocation:   "Kandy",
		TimeStart:     models.JSONTime{Time: start},
		TimeEnd:       models.JSONTime{Time: end},
		Price:         price,
		BusName:       "Express",
		FromStationID: 10,
		ToStationID:   20,
	}
}

func TestCompose_NilResponse(t *testing.T) {
	composer := NewTripComposer(testLogger())

	result := composer.Compose(nil)

	assert.Empty(t, result.Departure)
	assert.Empty(t, result.Return)
}

func TestCompose_FlatBucketIsDeparture(t *testing.T) {
	composer := NewTripComposer(testLogger())
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	result := composer.Compose(&models.RawSearchResponse{
		RawTripBucket: models.RawTripBucket{
			DirectTrips: []models.RawTrip{rawTrip(7, 1500, start, start.Add(3*time.Hour))},
		},
	})

	require.Len(t, result.Departure, 1)
	assert.Empty(t, result.Return)

	itin := result.Departure[0]
	assert.Equal(t, 7, itin.ID)
	assert.Equal(t, models.ItineraryDirect, itin.Kind)
	assert.Equal(t, models.DirectionDeparture, itin.Direction)
	assert.Equal(t, 1500.0, itin.TotalPrice)
	assert.Equal(t, 3*time.Hour, itin.TotalDuration)
}

func TestCompose_RoundTripBuckets(t *testing.T) {
	composer := NewTripComposer(testLogger())
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	result := composer.Compose(&models.RawSearchResponse{
		Departure: &models.RawTripBucket{
			DirectTrips: []models.RawTrip{rawTrip(1, 1000, start, start.Add(time.Hour))},
		},
		Return: &models.RawTripBucket{
			DirectTrips: []models.RawTrip{rawTrip(2, 1200, start.AddDate(0, 0, 3), start.AddDate(0, 0, 3).Add(time.Hour))},
		},
	})

	require.Len(t, result.Departure, 1)
	require.Len(t, result.Return, 1)
	assert.Equal(t, models.DirectionReturn, result.Return[0].Direction)
}

func TestCompose_TransferIDConcatenation(t *testing.T) {
	composer := NewTripComposer(testLogger())
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	first := rawTrip(12, 800, start, start.Add(time.Hour))
	second := rawTrip(34, 900, start.Add(90*time.Minute), start.Add(3*time.Hour))

	result := composer.Compose(&models.RawSearchResponse{
		RawTripBucket: models.RawTripBucket{
			TransferTrips: []models.RawTransferTrip{{FirstTrip: &first, SecondTrip: &second}},
		},
	})

	require.Len(t, result.Departure, 1)
	itin := result.Departure[0]
	// 12 and 34 concatenate to 1234, not sum to 46.
	assert.Equal(t, 1234, itin.ID)
	assert.Equal(t, models.ItineraryTransfer, itin.Kind)
	assert.Equal(t, 1700.0, itin.TotalPrice)
	// Duration spans first departure to second arrival, layover included.
	assert.Equal(t, 3*time.Hour, itin.TotalDuration)
}

func TestCompose_TripleTrips(t *testing.T) {
	composer := NewTripComposer(testLogger())
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	first := rawTrip(1, 100, start, start.Add(time.Hour))
	second := rawTrip(2, 200, start.Add(time.Hour), start.Add(2*time.Hour))
	third := rawTrip(3, 300, start.Add(2*time.Hour), start.Add(4*time.Hour))

	result := composer.Compose(&models.RawSearchResponse{
		RawTripBucket: models.RawTripBucket{
			TripleTrips: []models.RawTripleTrip{{FirstTrip: &first, SecondTrip: &second, ThirdTrip: &third}},
		},
	})

	require.Len(t, result.Departure, 1)
	itin := result.Departure[0]
	assert.Equal(t, 123, itin.ID)
	assert.Equal(t, models.ItineraryTriple, itin.Kind)
	require.Len(t, itin.Legs, 3)
	assert.Equal(t, 600.0, itin.TotalPrice)
	assert.Equal(t, 4*time.Hour, itin.TotalDuration)
}

func TestCompose_DropsIncompleteEntries(t *testing.T) {
	composer := NewTripComposer(testLogger())
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	only := rawTrip(5, 500, start, start.Add(time.Hour))

	result := composer.Compose(&models.RawSearchResponse{
		RawTripBucket: models.RawTripBucket{
			TransferTrips: []models.RawTransferTrip{{FirstTrip: &only}},
			TripleTrips:   []models.RawTripleTrip{{FirstTrip: &only, SecondTrip: &only}},
		},
	})

	assert.Empty(t, result.Departure)
	assert.Equal(t, 2, result.Dropped)
}

func TestCompose_ExcludesEntriesWithoutID(t *testing.T) {
	composer := NewTripComposer(testLogger())
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	noID := rawTrip(0, 500, start, start.Add(time.Hour))
	noID.ID = nil

	result := composer.Compose(&models.RawSearchResponse{
		RawTripBucket: models.RawTripBucket{DirectTrips: []models.RawTrip{noID}},
	})

	assert.Empty(t, result.Departure)
	assert.Equal(t, 1, result.Excluded)
}

func TestCompose_ZeroIDIsValid(t *testing.T) {
	composer := NewTripComposer(testLogger())
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	result := composer.Compose(&models.RawSearchResponse{
		RawTripBucket: models.RawTripBucket{
			DirectTrips: []models.RawTrip{rawTrip(0, 500, start, start.Add(time.Hour))},
		},
	})

	require.Len(t, result.Departure, 1)
	assert.Equal(t, 0, result.Departure[0].ID)
	assert.Zero(t, result.Excluded)
}
