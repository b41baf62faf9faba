package models

import "sort"

// Seat is one seat on one leg, as rendered on the selection surface.
// SeatNumber is the display label, row letter plus column.
type Seat struct {
	ID         int     `json:"id"`
	LegID      int     `json:"leg_id"`
	Row        string  `json:"row"`
	Column     int     `json:"column"`
	SeatNumber string  `json:"seat_number"`
	Price      float64 `json:"price"`
	IsBooked   bool    `json:"is_booked"`
}

// RowLetter converts a 1-based row index to its letter label: 1 is "A",
// 26 is "Z", 27 wraps to "AA".
func RowLetter(rowIndex int) string {
	if rowIndex < 1 {
		return ""
	}
	letters := ""
	for rowIndex > 0 {
		rowIndex--
		letters = string(rune('A'+rowIndex%26)) + letters
		rowIndex /= 26
	}
	return letters
}

// SelectionSet is the set of seat ids selected on one leg role. Toggling
// the same seat twice restores the set exactly.
type SelectionSet map[int]struct{}

// NewSelectionSet creates an empty selection.
func NewSelectionSet() SelectionSet {
	return make(SelectionSet)
}

// Toggle flips the seat's membership and reports whether it is selected
// afterwards.
func (s SelectionSet) Toggle(seatID int) bool {
	if _, ok := s[seatID]; ok {
		delete(s, seatID)
		return false
	}
	s[seatID] = struct{}{}
	return true
}

// Has reports whether the seat is selected.
func (s SelectionSet) Has(seatID int) bool {
	_, ok := s[seatID]
	return ok
}

// Len returns the number of selected seats.
func (s SelectionSet) Len() int { return len(s) }

// IDs returns the selected seat ids in ascending order.
func (s SelectionSet) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clear empties the selection.
func (s SelectionSet) Clear() {
	for id := range s {
		delete(s, id)
	}
}

// SeatEventType is the kind of a realtime seat notification.
type SeatEventType string

const (
	SeatEventLocked   SeatEventType = "seat_locked"
	SeatEventUnlocked SeatEventType = "seat_unlocked"
)

// SeatEvent is one push notification from the seat-availability channel.
// The station pair scopes the event to a leg's travelled segment.
type SeatEvent struct {
	Type          SeatEventType `json:"type"`
	LegID         int           `json:"legId"`
	SeatID        int           `json:"seatId"`
	FromStationID int           `json:"fromStationId"`
	ToStationID   int           `json:"toStationId"`
}
