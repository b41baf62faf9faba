package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/models"
	"github.com/busline/booking-backend/internal/storage"
)

// PaymentRedirectBridge carries booking state across the off-site payment
// hop: a snapshot is persisted immediately before the redirect URL is
// handed out, and consumed exactly once when the gateway sends the
// traveler back. Only the bridge touches the snapshot slot, and only
// around the redirect boundary; "write then navigate" and "read then
// clear" are the whole synchronization story.
type PaymentRedirectBridge struct {
	store  storage.SnapshotStore
	ttl    time.Duration
	logger *logrus.Logger
}

// NewPaymentRedirectBridge creates a bridge over the given store.
func NewPaymentRedirectBridge(store storage.SnapshotStore, ttl time.Duration, logger *logrus.Logger) *PaymentRedirectBridge {
	return &PaymentRedirectBridge{store: store, ttl: ttl, logger: logger}
}

// Persist validates and stores the snapshot. A second booking attempt in
// the same session before resolution overwrites the first slot; only one
// booking is ever in flight per session.
func (b *PaymentRedirectBridge) Persist(ctx context.Context, snapshot *models.BookingSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}
	if err := b.store.Put(ctx, snapshot.SessionID, snapshot, b.ttl); err != nil {
		return err
	}
	b.logger.WithFields(logrus.Fields{
		"session_id": snapshot.SessionID,
		"total":      snapshot.Total,
	}).Info("Booking snapshot persisted for payment redirect")
	return nil
}

// Restore takes the snapshot out of the slot. Missing and corrupt slots
// both return nil: the caller renders the Result step with best-effort
// empty details rather than blocking.
func (b *PaymentRedirectBridge) Restore(ctx context.Context, sessionID string) *models.BookingSnapshot {
	snapshot, err := b.store.Take(ctx, sessionID)
	if err != nil {
		b.logger.WithError(err).WithField("session_id", sessionID).
			Warn("Booking snapshot unreadable on payment return")
		return nil
	}
	if snapshot == nil {
		b.logger.WithField("session_id", sessionID).
			Warn("No booking snapshot found on payment return")
		return nil
	}
	return snapshot
}
