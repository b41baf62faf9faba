package services

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/models"
)

// TripComposer normalizes raw search responses into uniform itinerary
// lists per direction. Malformed entries are dropped, never surfaced: a
// partial result list is still useful to the traveler.
type TripComposer struct {
	logger *logrus.Logger
}

// NewTripComposer creates a trip composer.
func NewTripComposer(logger *logrus.Logger) *TripComposer {
	return &TripComposer{logger: logger}
}

// ComposedTrips is the composer's output: itineraries per direction plus
// drop counters for observability.
type ComposedTrips struct {
	Departure []models.Itinerary
	Return    []models.Itinerary
	// Dropped counts transfer/triple entries missing a constituent leg.
	Dropped int
	// Excluded counts candidates without a numeric identity id.
	Excluded int
}

// Compose turns a raw search response into itineraries. A nil response
// yields empty lists; the composer never returns an error.
func (c *TripComposer) Compose(resp *models.RawSearchResponse) *ComposedTrips {
	result := &ComposedTrips{
		Departure: []models.Itinerary{},
		Return:    []models.Itinerary{},
	}
	if resp == nil {
		return result
	}

	if resp.Departure != nil || resp.Return != nil {
		if resp.Departure != nil {
			result.Departure = c.composeBucket(resp.Departure, models.DirectionDeparture, result)
		}
		if resp.Return != nil {
			result.Return = c.composeBucket(resp.Return, models.DirectionReturn, result)
		}
	} else {
		result.Departure = c.composeBucket(&resp.RawTripBucket, models.DirectionDeparture, result)
	}

	if result.Dropped > 0 || result.Excluded > 0 {
		c.logger.WithFields(logrus.Fields{
			"dropped_incomplete": result.Dropped,
			"excluded_no_id":     result.Excluded,
		}).Warn("Search results contained malformed trip entries")
	}

	return result
}

func (c *TripComposer) composeBucket(bucket *models.RawTripBucket, direction models.Direction, result *ComposedTrips) []models.Itinerary {
	itineraries := make([]models.Itinerary, 0,
		len(bucket.DirectTrips)+len(bucket.TransferTrips)+len(bucket.TripleTrips))

	for _, raw := range bucket.DirectTrips {
		if raw.ID == nil {
			result.Excluded++
			continue
		}
		leg := legFromRaw(raw)
		itineraries = append(itineraries, models.Itinerary{
			ID:            leg.ID,
			Kind:          models.ItineraryDirect,
			Direction:     direction,
			Legs:          []models.Leg{leg},
			TotalPrice:    leg.Price,
			TotalDuration: leg.Duration(),
			RouteNote:     raw.RouteNote,
		})
	}

	for _, raw := range bucket.TransferTrips {
		if raw.FirstTrip == nil || raw.SecondTrip == nil {
			result.Dropped++
			continue
		}
		if itin, ok := c.composeMultiLeg(direction, models.ItineraryTransfer, result,
			*raw.FirstTrip, *raw.SecondTrip); ok {
			itineraries = append(itineraries, itin)
		}
	}

	for _, raw := range bucket.TripleTrips {
		if raw.FirstTrip == nil || raw.SecondTrip == nil || raw.ThirdTrip == nil {
			result.Dropped++
			continue
		}
		if itin, ok := c.composeMultiLeg(direction, models.ItineraryTriple, result,
			*raw.FirstTrip, *raw.SecondTrip, *raw.ThirdTrip); ok {
			itineraries = append(itineraries, itin)
		}
	}

	return itineraries
}

func (c *TripComposer) composeMultiLeg(direction models.Direction, kind models.ItineraryKind, result *ComposedTrips, rawLegs ...models.RawTrip) (models.Itinerary, bool) {
	legs := make([]models.Leg, 0, len(rawLegs))
	var total float64
	for _, raw := range rawLegs {
		if raw.ID == nil {
			result.Excluded++
			return models.Itinerary{}, false
		}
		leg := legFromRaw(raw)
		legs = append(legs, leg)
		total += leg.Price
	}

	id, ok := concatLegIDs(legs)
	if !ok {
		result.Excluded++
		return models.Itinerary{}, false
	}

	first, last := legs[0], legs[len(legs)-1]
	return models.Itinerary{
		ID:            id,
		Kind:          kind,
		Direction:     direction,
		Legs:          legs,
		TotalPrice:    total,
		TotalDuration: last.TimeEnd.Sub(first.TimeStart),
	}, true
}

// concatLegIDs derives a multi-leg itinerary's identity id by
// concatenating the decimal leg ids. Concatenation rather than summation
// keeps distinct leg pairs from colliding.
func concatLegIDs(legs []models.Leg) (int, bool) {
	s := ""
	for _, leg := range legs {
		s += strconv.Itoa(leg.ID)
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}

func legFromRaw(raw models.RawTrip) models.Leg {
	return models.Leg{
		ID:            *raw.ID,
		TripID:        raw.TripID,
		FromStationID: raw.FromStationID,
		ToStationID:   raw.ToStationID,
		FromLocation:  raw.FromLocation,
		EndLocation:   raw.EndLocation,
		TimeStart:     raw.TimeStart.Time,
		TimeEnd:       raw.TimeEnd.Time,
		Price:         raw.Price,
		BusName:       raw.BusName,
	}
}
