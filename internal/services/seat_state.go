package services

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/models"
)

// SeatSelectionState is one leg role's seat-selection surface: the
// authoritative availability snapshot for the leg plus the set of seats
// the user has chosen on it. One instance exists per leg of the active
// itinerary choice(s).
type SeatSelectionState struct {
	Role     models.LegRole
	Leg      models.Leg
	Selected models.SelectionSet

	// FetchError holds the last availability-fetch failure, surfaced as a
	// retryable inline error. It never blocks navigation away.
	FetchError string
}

// NewSeatStates builds the empty selection surfaces for an itinerary, one
// per required leg role in leg order.
func NewSeatStates(itinerary *models.Itinerary) map[models.LegRole]*SeatSelectionState {
	states := make(map[models.LegRole]*SeatSelectionState)
	roles := models.RequiredLegRoles(itinerary.Kind, itinerary.Direction)
	for i, role := range roles {
		states[role] = &SeatSelectionState{
			Role:     role,
			Leg:      itinerary.Legs[i],
			Selected: models.NewSelectionSet(),
		}
	}
	return states
}

// FetchStations returns the station pair to fetch availability with.
// A return leg travels the opposite direction over the same station pair
// as the original search, so the pair is swapped.
func FetchStations(criteria models.SearchCriteria, direction models.Direction) (fromStationID, toStationID int) {
	if direction == models.DirectionReturn {
		return criteria.ToStationID, criteria.FromStationID
	}
	return criteria.FromStationID, criteria.ToStationID
}

// Toggle flips membership of the seat in the role's selection set.
// Toggling a booked seat is a no-op. Returns whether the selection
// changed and whether the seat is selected afterwards.
func (s *SeatSelectionState) Toggle(seatID int) (changed, selected bool) {
	for _, seat := range s.Leg.Seats {
		if seat.ID != seatID {
			continue
		}
		if seat.IsBooked {
			return false, s.Selected.Has(seatID)
		}
		return true, s.Selected.Toggle(seatID)
	}
	return false, false
}

// ApplyEvent applies one lock/unlock notification to the availability
// snapshot. The event must name this leg and carry the leg's own station
// pair; anything else is ignored. A lock never removes the seat from the
// local selection; that conflict is surfaced at payment submission.
func (s *SeatSelectionState) ApplyEvent(event models.SeatEvent) bool {
	if event.LegID != s.Leg.ID {
		return false
	}
	if event.FromStationID != s.Leg.FromStationID || event.ToStationID != s.Leg.ToStationID {
		return false
	}
	for i := range s.Leg.Seats {
		if s.Leg.Seats[i].ID == event.SeatID {
			s.Leg.Seats[i].IsBooked = event.Type == models.SeatEventLocked
			return true
		}
	}
	return false
}

// Conflicts returns the selected seat ids whose seats are now booked.
// Checked at payment submission, not when the lock event arrives.
func (s *SeatSelectionState) Conflicts() []int {
	var conflicts []int
	for _, seat := range s.Leg.Seats {
		if seat.IsBooked && s.Selected.Has(seat.ID) {
			conflicts = append(conflicts, seat.ID)
		}
	}
	return conflicts
}

// PartitionSeats distributes one availability payload across the
// itinerary's legs. Seats tagged with a legId go to the matching leg;
// seats the backend left untagged fall back to a contiguous even split in
// payload order. Tagged seats naming an unknown leg are dropped.
func PartitionSeats(itinerary *models.Itinerary, raw []models.RawSeat, logger *logrus.Logger) map[int][]models.Seat {
	byLeg := make(map[int][]models.Seat, len(itinerary.Legs))
	legPrice := make(map[int]float64, len(itinerary.Legs))
	for _, leg := range itinerary.Legs {
		byLeg[leg.ID] = nil
		legPrice[leg.ID] = leg.Price
	}

	var untagged []models.RawSeat
	dropped := 0
	for _, rawSeat := range raw {
		if rawSeat.LegID == 0 {
			untagged = append(untagged, rawSeat)
			continue
		}
		if _, ok := byLeg[rawSeat.LegID]; !ok {
			dropped++
			continue
		}
		byLeg[rawSeat.LegID] = append(byLeg[rawSeat.LegID], seatFromRaw(rawSeat, rawSeat.LegID, legPrice[rawSeat.LegID]))
	}

	// Best-effort split for untagged seats: contiguous chunks in payload
	// order, one per leg. The correct contract (legId on every seat) is
	// still an open item with the backend.
	if len(untagged) > 0 {
		if len(itinerary.Legs) > 1 {
			logger.WithFields(logrus.Fields{
				"itinerary_id": itinerary.ID,
				"untagged":     len(untagged),
			}).Warn("Availability payload omitted legId on seats of a multi-leg itinerary")
		}
		chunk := (len(untagged) + len(itinerary.Legs) - 1) / len(itinerary.Legs)
		for i, rawSeat := range untagged {
			leg := itinerary.Legs[min(i/chunk, len(itinerary.Legs)-1)]
			byLeg[leg.ID] = append(byLeg[leg.ID], seatFromRaw(rawSeat, leg.ID, leg.Price))
		}
	}

	if dropped > 0 {
		logger.WithFields(logrus.Fields{
			"itinerary_id": itinerary.ID,
			"dropped":      dropped,
		}).Warn("Availability payload referenced legs outside the itinerary")
	}

	return byLeg
}

func seatFromRaw(raw models.RawSeat, legID int, legPrice float64) models.Seat {
	id := raw.SeatID
	if id == 0 {
		id = raw.ID
	}
	price := raw.Price
	if price == 0 {
		price = legPrice
	}
	row := models.RowLetter(raw.RowIndex)
	return models.Seat{
		ID:         id,
		LegID:      legID,
		Row:        row,
		Column:     raw.ColumnIndex,
		SeatNumber: row + strconv.Itoa(raw.ColumnIndex),
		Price:      price,
		IsBooked:   !raw.IsAvailable,
	}
}
