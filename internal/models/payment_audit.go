package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAuditEvent identifies which boundary the audit entry was taken at.
type PaymentAuditEvent string

const (
	AuditPaymentInitiated PaymentAuditEvent = "payment_initiated"
	AuditGatewayReturn    PaymentAuditEvent = "gateway_return"
	AuditSubmissionFailed PaymentAuditEvent = "submission_failed"
)

// PaymentAudit is one row of the payment audit trail. Every reservation
// submission and every gateway return is recorded; audit failures are
// logged but never fail the booking path.
type PaymentAudit struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	SessionID     string            `json:"session_id" db:"session_id"`
	UserID        *uuid.UUID        `json:"user_id,omitempty" db:"user_id"`
	EventType     PaymentAuditEvent `json:"event_type" db:"event_type"`
	Amount        float64           `json:"amount" db:"amount"`
	Currency      string            `json:"currency" db:"currency"`
	PaymentStatus *string           `json:"payment_status,omitempty" db:"payment_status"`
	RedirectURL   *string           `json:"redirect_url,omitempty" db:"redirect_url"`
	ErrorMessage  *string           `json:"error_message,omitempty" db:"error_message"`
	UserAgent     *string           `json:"user_agent,omitempty" db:"user_agent"`
	ClientBrowser *string           `json:"client_browser,omitempty" db:"client_browser"`
	CorrelationID string            `json:"correlation_id" db:"correlation_id"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}
