package models

import (
	"fmt"
	"time"
)

// BookingSnapshot is the durable record persisted immediately before the
// browser leaves for the external payment gateway, and consumed exactly
// once when the gateway redirects back. It carries everything needed to
// rebuild the wizard's state for the Result step.
type BookingSnapshot struct {
	SessionID     string            `json:"session_id"`
	Criteria      SearchCriteria    `json:"criteria"`
	Departure     *Itinerary        `json:"departure,omitempty"`
	Return        *Itinerary        `json:"return,omitempty"`
	Selections    map[LegRole][]int `json:"selections"`
	Phone         string            `json:"phone,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	Total         float64           `json:"total"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Validate checks that the snapshot is fit for persistence: an itinerary
// must be chosen for every travelled direction, and every leg role those
// itineraries require must have a non-empty selection.
func (s *BookingSnapshot) Validate() error {
	if s.Departure == nil {
		return fmt.Errorf("snapshot has no departure itinerary")
	}
	if s.Criteria.IsRoundTrip() && s.Return == nil {
		return fmt.Errorf("round-trip snapshot has no return itinerary")
	}
	check := func(it *Itinerary) error {
		for _, role := range RequiredLegRoles(it.Kind, it.Direction) {
			if len(s.Selections[role]) == 0 {
				return fmt.Errorf("snapshot is missing a selection for %s", role)
			}
		}
		return nil
	}
	if err := check(s.Departure); err != nil {
		return err
	}
	if s.Return != nil {
		if err := check(s.Return); err != nil {
			return err
		}
	}
	return nil
}
