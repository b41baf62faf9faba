package models

import (
	"fmt"
	"time"
)

// ItineraryKind distinguishes how many buses an itinerary chains.
type ItineraryKind string

const (
	ItineraryDirect   ItineraryKind = "direct"
	ItineraryTransfer ItineraryKind = "transfer"
	ItineraryTriple   ItineraryKind = "triple"
)

// LegCount returns the number of legs an itinerary of this kind carries.
func (k ItineraryKind) LegCount() int {
	switch k {
	case ItineraryTransfer:
		return 2
	case ItineraryTriple:
		return 3
	default:
		return 1
	}
}

// Direction is the travel direction within a search: the outbound
// departure journey or the return journey of a round trip.
type Direction string

const (
	DirectionDeparture Direction = "departure"
	DirectionReturn    Direction = "return"
)

// Leg is one bus ride: a single trip on a single vehicle between two
// stations. Seats holds the availability snapshot once fetched.
type Leg struct {
	ID            int       `json:"id"`
	TripID        int       `json:"trip_id"`
	FromStationID int       `json:"from_station_id"`
	ToStationID   int       `json:"to_station_id"`
	FromLocation  string    `json:"from_location"`
	EndLocation   string    `json:"end_location"`
	TimeStart     time.Time `json:"time_start"`
	TimeEnd       time.Time `json:"time_end"`
	Price         float64   `json:"price"`
	BusName       string    `json:"bus_name"`
	Seats         []Seat    `json:"seats,omitempty"`
}

// Duration returns the leg's scheduled travel time.
func (l Leg) Duration() time.Duration {
	return l.TimeEnd.Sub(l.TimeStart)
}

// Itinerary is one bookable journey option for a direction: a direct
// trip, or two or three chained legs. The id of a multi-leg itinerary is
// derived from its leg ids and identifies the combination, not a row in
// any backend table.
type Itinerary struct {
	ID            int           `json:"id"`
	Kind          ItineraryKind `json:"kind"`
	Direction     Direction     `json:"direction"`
	Legs          []Leg         `json:"legs"`
	TotalPrice    float64       `json:"total_price"`
	TotalDuration time.Duration `json:"total_duration"`
	RouteNote     string        `json:"route_note,omitempty"`
}

// Validate checks that the itinerary's leg list matches its kind.
func (i *Itinerary) Validate() error {
	if want := i.Kind.LegCount(); len(i.Legs) != want {
		return fmt.Errorf("%s itinerary has %d legs, want %d", i.Kind, len(i.Legs), want)
	}
	return nil
}

// LegRole names one seat-selection surface within a booking. A one-way
// direct booking has a single role; a round trip of two triple
// itineraries has six.
type LegRole string

const (
	RoleDeparture     LegRole = "departure"
	RoleDepartureLeg1 LegRole = "departure.leg1"
	RoleDepartureLeg2 LegRole = "departure.leg2"
	RoleDepartureLeg3 LegRole = "departure.leg3"
	RoleReturn        LegRole = "return"
	RoleReturnLeg1    LegRole = "return.leg1"
	RoleReturnLeg2    LegRole = "return.leg2"
	RoleReturnLeg3    LegRole = "return.leg3"
)

var (
	departureLegRoles = []LegRole{RoleDepartureLeg1, RoleDepartureLeg2, RoleDepartureLeg3}
	returnLegRoles    = []LegRole{RoleReturnLeg1, RoleReturnLeg2, RoleReturnLeg3}
)

// RequiredLegRoles returns the roles an itinerary of the given kind and
// direction occupies, in leg order.
func RequiredLegRoles(kind ItineraryKind, direction Direction) []LegRole {
	if kind == ItineraryDirect {
		if direction == DirectionReturn {
			return []LegRole{RoleReturn}
		}
		return []LegRole{RoleDeparture}
	}
	roles := departureLegRoles
	if direction == DirectionReturn {
		roles = returnLegRoles
	}
	return roles[:kind.LegCount()]
}
