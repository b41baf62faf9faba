package services

import (
	"sort"

	"github.com/busline/booking-backend/internal/models"
)

// LegView is one leg role's seat surface as rendered to the client.
type LegView struct {
	Role       models.LegRole `json:"role"`
	Leg        models.Leg     `json:"leg"`
	Selected   []int          `json:"selected"`
	FetchError string         `json:"fetch_error,omitempty"`
}

// SessionView is a consistent read of a booking session, taken under the
// session mutex so a concurrent seat event never tears the picture.
type SessionView struct {
	ID               string                 `json:"id"`
	Step             models.Step            `json:"step"`
	Criteria         models.SearchCriteria  `json:"criteria"`
	DepartureOptions []models.Itinerary     `json:"departure_options"`
	ReturnOptions    []models.Itinerary     `json:"return_options,omitempty"`
	Departure        *models.Itinerary      `json:"departure,omitempty"`
	Return           *models.Itinerary      `json:"return,omitempty"`
	Legs             []LegView              `json:"legs,omitempty"`
	Pricing          models.PriceBreakdown  `json:"pricing"`
	PaymentMethod    string                 `json:"payment_method,omitempty"`
	Phone            string                 `json:"phone,omitempty"`
	Outcome          *models.PaymentOutcome `json:"outcome,omitempty"`
	RedirectURL      string                 `json:"redirect_url,omitempty"`
}

// View renders the session's current state.
func (s *BookingSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		ID:               s.ID,
		Step:             s.Step,
		Criteria:         s.Criteria,
		DepartureOptions: s.DepartureOptions,
		ReturnOptions:    s.ReturnOptions,
		Departure:        s.Departure,
		Return:           s.Return,
		Pricing:          Quote(s.Legs),
		PaymentMethod:    s.PaymentMethod,
		Phone:            s.Phone,
		Outcome:          s.Outcome,
		RedirectURL:      s.RedirectURL,
	}
	for role, state := range s.Legs {
		view.Legs = append(view.Legs, LegView{
			Role:       role,
			Leg:        state.Leg,
			Selected:   state.Selected.IDs(),
			FetchError: state.FetchError,
		})
	}
	sort.Slice(view.Legs, func(i, j int) bool {
		return view.Legs[i].Role < view.Legs[j].Role
	})
	return view
}
