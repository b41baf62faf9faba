package services

import (
	"sort"

	"github.com/busline/booking-backend/internal/models"
)

// Quote computes the per-leg price breakdown from the current selections.
// It is a pure function of selection counts and nominal leg prices; it
// never consults booked or locked state. Each line's subtotal is
// seat count × the leg's nominal price, and the total sums every active
// leg role across both directions.
func Quote(legs map[models.LegRole]*SeatSelectionState) models.PriceBreakdown {
	breakdown := models.PriceBreakdown{Lines: make([]models.PriceLine, 0, len(legs))}
	for role, state := range legs {
		count := state.Selected.Len()
		line := models.PriceLine{
			Role:      role,
			LegID:     state.Leg.ID,
			SeatCount: count,
			UnitPrice: state.Leg.Price,
			Subtotal:  float64(count) * state.Leg.Price,
		}
		breakdown.Lines = append(breakdown.Lines, line)
		breakdown.Total += line.Subtotal
	}
	sort.Slice(breakdown.Lines, func(i, j int) bool {
		return breakdown.Lines[i].Role < breakdown.Lines[j].Role
	})
	return breakdown
}
