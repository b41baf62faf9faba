package models

import "fmt"

// Step is one stage of the booking wizard. Steps are strictly ordered;
// the wizard holds exactly one current step.
type Step string

const (
	StepSearch  Step = "search"
	StepSeats   Step = "seats"
	StepPayment Step = "payment"
	StepResult  Step = "result"
)

var stepOrder = map[Step]int{
	StepSearch:  0,
	StepSeats:   1,
	StepPayment: 2,
	StepResult:  3,
}

// Ordinal returns the step's position in the wizard, or -1 for an
// unknown step.
func (s Step) Ordinal() int {
	if n, ok := stepOrder[s]; ok {
		return n
	}
	return -1
}

// Next returns the following step. Result has no successor.
func (s Step) Next() (Step, error) {
	switch s {
	case StepSearch:
		return StepSeats, nil
	case StepSeats:
		return StepPayment, nil
	case StepPayment:
		return StepResult, nil
	default:
		return s, fmt.Errorf("no step after %q", s)
	}
}

// Prev returns the preceding step. Search has no predecessor.
func (s Step) Prev() (Step, error) {
	switch s {
	case StepSeats:
		return StepSearch, nil
	case StepPayment:
		return StepSeats, nil
	case StepResult:
		return StepPayment, nil
	default:
		return s, fmt.Errorf("no step before %q", s)
	}
}

// PaymentStatus is the terminal outcome of a payment attempt.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentOutcome is what the Result step renders: a status flag and, on
// failure, the gateway's (or our own) error text.
type PaymentOutcome struct {
	Status  PaymentStatus `json:"status"`
	Message string        `json:"message,omitempty"`
	// Restored is false when the snapshot was missing on payment return
	// and the outcome renders with best-effort empty trip details.
	Restored bool `json:"restored"`
}

// PriceLine is one leg role's share of the total.
type PriceLine struct {
	Role      LegRole `json:"role"`
	LegID     int     `json:"leg_id"`
	SeatCount int     `json:"seat_count"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// PriceBreakdown is the pricing engine's output: one line per active leg
// role plus the grand total.
type PriceBreakdown struct {
	Lines []PriceLine `json:"lines"`
	Total float64     `json:"total"`
}

// LegSeatRequest is one leg's share of the reservation-creation payload.
type LegSeatRequest struct {
	TripID        int   `json:"tripId"`
	FromStationID int   `json:"fromStationId"`
	ToStationID   int   `json:"toStationId"`
	SeatIDs       []int `json:"seatIds"`
}

// CreateReservationRequest is the payload sent to the external
// reservation-creation endpoint.
type CreateReservationRequest struct {
	CustomerID      string           `json:"customerId"`
	IsReturn        bool             `json:"isReturn"`
	TripSeats       []LegSeatRequest `json:"tripSeats"`
	ReturnTripSeats []LegSeatRequest `json:"returnTripSeats"`
	ReturnURL       string           `json:"returnUrl"`
}
