// Package realtime carries seat lock/unlock notifications between the
// booking backend and the seat-availability push channel.
package realtime

import (
	"context"

	"github.com/busline/booking-backend/internal/models"
)

// Channel is a bidirectional push connection for seat events. Join and
// Leave subscribe to one trip group per leg; Events delivers server-pushed
// lock/unlock notifications in receipt order for as long as the channel is
// open.
type Channel interface {
	JoinTripGroup(ctx context.Context, legID int) error
	LeaveTripGroup(ctx context.Context, legID int) error
	Events() <-chan models.SeatEvent
	Close() error
}
