package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/realtime"
)

// ChannelFactory opens a fresh push-channel connection for one session's
// stay in the Seats step.
type ChannelFactory func() realtime.Channel

// RealtimeSeatSync binds a push-channel subscription to a session's
// occupancy of the Seats step: one trip group is joined per active leg on
// entry, and every group is left and the connection torn down on every
// exit path, forward, backward or error.
type RealtimeSeatSync struct {
	factory ChannelFactory
	logger  *logrus.Logger
}

// NewRealtimeSeatSync creates a seat sync service.
func NewRealtimeSeatSync(factory ChannelFactory, logger *logrus.Logger) *RealtimeSeatSync {
	return &RealtimeSeatSync{factory: factory, logger: logger}
}

type seatSubscription struct {
	channel realtime.Channel
	legIDs  []int
	done    chan struct{}
	once    sync.Once
}

// Start joins the trip groups for the session's active legs and begins
// feeding events into its seat state. Any previous subscription is torn
// down first, so re-entering the Seats step never leaks groups.
// Callers hold the session mutex.
func (r *RealtimeSeatSync) Start(ctx context.Context, session *BookingSession) error {
	r.stopLocked(session)

	channel := r.factory()
	legIDs := session.activeLegIDs()
	for _, legID := range legIDs {
		if err := channel.JoinTripGroup(ctx, legID); err != nil {
			// Roll back the groups joined so far; a half-joined
			// subscription would apply events for legs we never meant
			// to watch.
			for _, joined := range legIDs {
				_ = channel.LeaveTripGroup(ctx, joined)
			}
			_ = channel.Close()
			return err
		}
	}

	sub := &seatSubscription{
		channel: channel,
		legIDs:  legIDs,
		done:    make(chan struct{}),
	}
	session.sub = sub

	go func() {
		for {
			select {
			case event, ok := <-channel.Events():
				if !ok {
					return
				}
				session.applySeatEvent(event)
			case <-sub.done:
				return
			}
		}
	}()

	r.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"legs":       legIDs,
	}).Debug("Joined seat event groups")
	return nil
}

// Stop leaves all joined groups and closes the connection. Safe to call
// on a session that was never subscribed.
func (r *RealtimeSeatSync) Stop(session *BookingSession) {
	session.mu.Lock()
	defer session.mu.Unlock()
	r.stopLocked(session)
}

// stopLocked is Stop for callers already holding the session mutex.
func (r *RealtimeSeatSync) stopLocked(session *BookingSession) {
	sub := session.sub
	if sub == nil {
		return
	}
	session.sub = nil
	sub.once.Do(func() { close(sub.done) })

	ctx := context.Background()
	for _, legID := range sub.legIDs {
		if err := sub.channel.LeaveTripGroup(ctx, legID); err != nil {
			r.logger.WithError(err).WithField("leg_id", legID).Warn("Failed to leave trip group")
		}
	}
	if err := sub.channel.Close(); err != nil {
		r.logger.WithError(err).Warn("Failed to close seat event channel")
	}

	r.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"legs":       sub.legIDs,
	}).Debug("Left seat event groups")
}
