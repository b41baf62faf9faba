package models

import (
	"time"
)

// SearchCriteria is what the traveler asked for: an origin and destination
// (location plus boarding station), a travel date and an optional return
// date. A non-nil ReturnDate makes the search a round trip.
type SearchCriteria struct {
	FromLocationID int        `json:"from_location_id" binding:"required"`
	ToLocationID   int        `json:"to_location_id" binding:"required"`
	FromStationID  int        `json:"from_station_id" binding:"required"`
	ToStationID    int        `json:"to_station_id" binding:"required"`
	Date           time.Time  `json:"date" binding:"required"`
	ReturnDate     *time.Time `json:"return_date,omitempty"`
}

// IsRoundTrip reports whether a return date was requested.
func (c SearchCriteria) IsRoundTrip() bool { return c.ReturnDate != nil }

// Validate validates the search criteria.
func (c SearchCriteria) Validate() error {
	if c.FromLocationID == 0 || c.ToLocationID == 0 {
		return ErrInvalidInput("origin and destination locations are required")
	}
	if c.FromStationID == 0 || c.ToStationID == 0 {
		return ErrInvalidInput("origin and destination stations are required")
	}
	if c.FromStationID == c.ToStationID {
		return ErrInvalidInput("origin and destination cannot be the same station")
	}
	if c.Date.IsZero() {
		return ErrInvalidInput("travel date is required")
	}
	if c.ReturnDate != nil && c.ReturnDate.Before(c.Date) {
		return ErrInvalidInput("return date cannot be before the departure date")
	}
	return nil
}

// RawTrip is one direct trip (or one constituent leg of a transfer/triple
// entry) exactly as the search backend ships it. The id is a pointer so a
// present zero can be told apart from an absent field.
type RawTrip struct {
	ID            *int     `json:"id"`
	TripID        int      `json:"tripId"`
	FromLocation  string   `json:"fromLocation"`
	EndLocation   string   `json:"endLocation"`
	TimeStart     JSONTime `json:"timeStart"`
	TimeEnd       JSONTime `json:"timeEnd"`
	Price         float64  `json:"price"`
	BusName       string   `json:"busName"`
	FromStationID int      `json:"fromStationId"`
	ToStationID   int      `json:"toStationId"`
	RouteNote     string   `json:"routeDescription,omitempty"`
}

// RawTransferTrip is a 2-leg search result entry. Either leg may be
// missing on a malformed entry; the composer drops such entries.
type RawTransferTrip struct {
	FirstTrip  *RawTrip `json:"firstTrip"`
	SecondTrip *RawTrip `json:"secondTrip"`
}

// RawTripleTrip is a 3-leg search result entry.
type RawTripleTrip struct {
	FirstTrip  *RawTrip `json:"firstTrip"`
	SecondTrip *RawTrip `json:"secondTrip"`
	ThirdTrip  *RawTrip `json:"thirdTrip"`
}

// RawTripBucket is one direction's worth of raw search results.
type RawTripBucket struct {
	DirectTrips   []RawTrip         `json:"directTrips"`
	TransferTrips []RawTransferTrip `json:"transferTrips"`
	TripleTrips   []RawTripleTrip   `json:"tripleTrips"`
}

// RawSearchResponse covers both backend response shapes: a one-way search
// returns a single flat bucket, a round-trip search returns separate
// departure and return buckets. When Departure is non-nil the flat fields
// are ignored.
type RawSearchResponse struct {
	RawTripBucket
	Departure *RawTripBucket `json:"departure,omitempty"`
	Return    *RawTripBucket `json:"return,omitempty"`
}

// RawSeat is one seat-availability record as the backend ships it.
// LegID is only populated for multi-leg availability payloads, and not
// reliably even then; zero means the backend omitted it.
type RawSeat struct {
	ID          int     `json:"id"`
	SeatID      int     `json:"seatId"`
	IsAvailable bool    `json:"isAvailable"`
	RowIndex    int     `json:"rowIndex"`
	ColumnIndex int     `json:"columnIndex"`
	LegID       int     `json:"legId,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// JSONTime decodes the backend's timestamps, which arrive either as
// RFC 3339 or as "2006-01-02 15:04:05".
type JSONTime struct {
	time.Time
}

const legacyTimeLayout = "2006-01-02 15:04:05"

// UnmarshalJSON implements json.Unmarshaler.
func (t *JSONTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(legacyTimeLayout, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t JSONTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}
