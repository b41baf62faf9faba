package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/models"
)

// PaymentAuditRepository persists the payment audit trail.
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
// This should NEVER fail silently - payment events must be logged
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	if audit.ClientBrowser == nil && audit.UserAgent != nil {
		browser := describeBrowser(*audit.UserAgent)
		audit.ClientBrowser = &browser
	}

	query := `
		INSERT INTO payment_audits (
			id, session_id, user_id, event_type,
			amount, currency, payment_status,
			redirect_url, error_message,
			user_agent, client_browser, correlation_id,
			created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9,
			$10, $11, $12,
			$13
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.SessionID, audit.UserID, audit.EventType,
		audit.Amount, audit.Currency, audit.PaymentStatus,
		audit.RedirectURL, audit.ErrorMessage,
		audit.UserAgent, audit.ClientBrowser, audit.CorrelationID,
		audit.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"session_id": audit.SessionID,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"session_id": audit.SessionID,
	}).Debug("Payment audit logged")

	return nil
}

// GetBySessionID returns a session's audit trail, oldest first.
func (r *PaymentAuditRepository) GetBySessionID(ctx context.Context, sessionID string) ([]models.PaymentAudit, error) {
	query := `
		SELECT id, session_id, user_id, event_type,
			   amount, currency, payment_status,
			   redirect_url, error_message,
			   user_agent, client_browser, correlation_id,
			   created_at
		FROM payment_audits
		WHERE session_id = $1
		ORDER BY created_at ASC`

	var audits []models.PaymentAudit
	if err := r.db.SelectContext(ctx, &audits, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to load payment audits: %w", err)
	}
	return audits, nil
}

// describeBrowser condenses a raw User-Agent header to "Name version (OS)".
func describeBrowser(rawUA string) string {
	ua := user_agent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s (%s)", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}
