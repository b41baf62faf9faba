package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/api/profile"
	"github.com/busline/booking-backend/internal/api/reservation"
	"github.com/busline/booking-backend/internal/api/trips"
	"github.com/busline/booking-backend/internal/models"
	"github.com/busline/booking-backend/pkg/validator"
)

// PaymentAuditor records payment boundary events. Implementations must
// tolerate being called on the hot path; failures are logged by the
// caller and never fail the booking.
type PaymentAuditor interface {
	Log(ctx context.Context, entry *models.PaymentAudit) error
}

// WizardConfig holds the wizard's fixed parameters.
type WizardConfig struct {
	// ReturnURL is the confirmation endpoint the gateway redirects back
	// to; the session id is appended as a query parameter.
	ReturnURL string
	// Currency tags audit entries.
	Currency string
}

// BookingWizard drives a session through Search → Seats → Payment →
// Result. Forward transitions are guarded; backward transitions never
// re-validate. Every operation serializes on the session mutex.
type BookingWizard struct {
	trips        trips.API
	reservations reservation.API
	profiles     profile.API
	composer     *TripComposer
	bridge       *PaymentRedirectBridge
	seatSync     *RealtimeSeatSync
	phones       *validator.PhoneValidator
	audit        PaymentAuditor
	config       WizardConfig
	logger       *logrus.Logger
}

// NewBookingWizard creates a booking wizard.
func NewBookingWizard(
	tripsAPI trips.API,
	reservationsAPI reservation.API,
	profilesAPI profile.API,
	composer *TripComposer,
	bridge *PaymentRedirectBridge,
	seatSync *RealtimeSeatSync,
	phones *validator.PhoneValidator,
	audit PaymentAuditor,
	config WizardConfig,
	logger *logrus.Logger,
) *BookingWizard {
	return &BookingWizard{
		trips:        tripsAPI,
		reservations: reservationsAPI,
		profiles:     profilesAPI,
		composer:     composer,
		bridge:       bridge,
		seatSync:     seatSync,
		phones:       phones,
		audit:        audit,
		config:       config,
		logger:       logger,
	}
}

// UpdateCriteria replaces the session's search criteria ahead of a
// re-search. Only valid on the Search step.
func (w *BookingWizard) UpdateCriteria(session *BookingSession, criteria models.SearchCriteria) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	if session.Step != models.StepSearch {
		return models.ErrInvalidInput("criteria can only change during search")
	}
	if err := criteria.Validate(); err != nil {
		return err
	}
	session.Criteria = criteria
	return nil
}

// Search runs the trip search for the session's criteria and composes the
// itinerary options. A backend failure yields empty option lists, never
// an error: a partial or empty result still renders.
func (w *BookingWizard) Search(ctx context.Context, session *BookingSession) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	if err := session.Criteria.Validate(); err != nil {
		return err
	}

	raw, err := w.trips.Search(ctx, session.Criteria)
	if err != nil {
		w.logger.WithError(err).WithField("session_id", session.ID).
			Error("Trip search failed; composing empty results")
		raw = nil
	}
	composed := w.composer.Compose(raw)

	session.DepartureOptions = composed.Departure
	session.ReturnOptions = composed.Return
	session.Departure = nil
	session.Return = nil
	session.Legs = make(map[models.LegRole]*SeatSelectionState)

	w.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"departure":  len(composed.Departure),
		"return":     len(composed.Return),
	}).Info("Search composed")
	return nil
}

// ChooseItinerary records the traveler's pick for one direction. Picking
// a different itinerary clears that direction's selections; re-picking
// the current one is a no-op.
func (w *BookingWizard) ChooseItinerary(session *BookingSession, direction models.Direction, itineraryID int) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	if session.Step != models.StepSearch {
		return models.ErrInvalidInput("itineraries can only be chosen during search")
	}
	if direction == models.DirectionReturn && !session.Criteria.IsRoundTrip() {
		return models.ErrInvalidInput("this booking has no return direction")
	}

	options := session.DepartureOptions
	if direction == models.DirectionReturn {
		options = session.ReturnOptions
	}
	var chosen *models.Itinerary
	for i := range options {
		if options[i].ID == itineraryID {
			chosen = &options[i]
			break
		}
	}
	if chosen == nil {
		return models.ErrInvalidInput("unknown itinerary for this search")
	}

	current := session.Departure
	if direction == models.DirectionReturn {
		current = session.Return
	}
	if current != nil && current.ID == chosen.ID {
		return nil
	}

	// Changing the choice invalidates that direction's selections.
	for role := range session.Legs {
		if roleDirection(role) == direction {
			delete(session.Legs, role)
		}
	}
	picked := *chosen
	if direction == models.DirectionReturn {
		session.Return = &picked
	} else {
		session.Departure = &picked
	}
	return nil
}

// Next advances the wizard one step, enforcing the step's guard.
func (w *BookingWizard) Next(ctx context.Context, session *BookingSession) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	switch session.Step {
	case models.StepSearch:
		if session.Departure == nil {
			return models.ErrInvalidInput("choose a departure itinerary to continue")
		}
		if session.Criteria.IsRoundTrip() && session.Return == nil {
			return models.ErrInvalidInput("choose a return itinerary to continue")
		}
		w.enterSeats(ctx, session)
		session.Step = models.StepSeats
		return nil

	case models.StepSeats:
		for _, itinerary := range session.chosen() {
			for _, role := range models.RequiredLegRoles(itinerary.Kind, itinerary.Direction) {
				state := session.Legs[role]
				if state == nil || state.Selected.Len() == 0 {
					return models.ErrInvalidInput(fmt.Sprintf("select at least one seat for %s", role))
				}
			}
		}
		w.seatSync.stopLocked(session)
		w.prefillPhone(ctx, session)
		session.Step = models.StepPayment
		return nil

	case models.StepPayment:
		return models.ErrInvalidInput("submit the payment to continue")

	default:
		return models.ErrInvalidInput("the booking has already completed")
	}
}

// Back steps the wizard backward unconditionally, never re-validating.
// Leaving the Seats step releases the realtime subscription; re-entering
// it refetches availability and re-subscribes.
func (w *BookingWizard) Back(ctx context.Context, session *BookingSession) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	prev, err := session.Step.Prev()
	if err != nil {
		return models.ErrInvalidInput("already at the first step")
	}
	if session.Step == models.StepSeats {
		w.seatSync.stopLocked(session)
	}
	session.Step = prev
	if prev == models.StepSeats {
		w.enterSeats(ctx, session)
	}
	return nil
}

// ToggleSeat flips one seat's membership in a leg role's selection.
// Toggling a booked seat changes nothing and is not an error.
func (w *BookingWizard) ToggleSeat(session *BookingSession, role models.LegRole, seatID int) (bool, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	if session.Step != models.StepSeats {
		return false, models.ErrInvalidInput("seats can only be toggled during seat selection")
	}
	state := session.Legs[role]
	if state == nil {
		return false, models.ErrInvalidInput(fmt.Sprintf("no active leg for role %s", role))
	}
	_, selected := state.Toggle(seatID)
	return selected, nil
}

// RetryAvailability re-runs the availability fetch for the direction
// containing the given role, after an inline fetch error.
func (w *BookingWizard) RetryAvailability(ctx context.Context, session *BookingSession, role models.LegRole) error {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	if session.Step != models.StepSeats {
		return models.ErrInvalidInput("availability can only be refreshed during seat selection")
	}
	for _, itinerary := range session.chosen() {
		if itinerary.Direction == roleDirection(role) {
			w.fetchAvailability(ctx, session, itinerary)
			return nil
		}
	}
	return models.ErrInvalidInput(fmt.Sprintf("no active leg for role %s", role))
}

// Pricing returns the current price breakdown.
func (w *BookingWizard) Pricing(session *BookingSession) models.PriceBreakdown {
	session.mu.Lock()
	defer session.mu.Unlock()
	return Quote(session.Legs)
}

// SubmitOutcome is the result of the final forward transition: either a
// gateway redirect URL to navigate to, or an immediate failure outcome
// already routed to the Result step.
type SubmitOutcome struct {
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Outcome     *models.PaymentOutcome `json:"outcome,omitempty"`
}

// SubmitPayment is the Payment → Result transition. It validates the
// payment guard, surfaces seat conflicts accumulated since selection,
// creates the external reservation, persists the booking snapshot and
// hands back the gateway redirect URL. A failed call or a response with
// no redirect alias records a failed outcome and advances to Result
// without leaving the application.
func (w *BookingWizard) SubmitPayment(ctx context.Context, session *BookingSession, method, phone, userAgent string) (*SubmitOutcome, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	if session.Step != models.StepPayment {
		return nil, models.ErrInvalidInput("payment can only be submitted from the payment step")
	}
	if method == "" {
		return nil, models.ErrInvalidInput("choose a payment method")
	}

	if phone != "" {
		sanitized, err := w.phones.Validate(phone)
		if err != nil {
			return nil, models.ErrInvalidInput(err.Error())
		}
		session.Phone = sanitized
		if session.UserID != nil {
			if err := w.profiles.UpdatePhone(ctx, *session.UserID, sanitized); err != nil {
				w.logger.WithError(err).Warn("Failed to store phone on profile")
			}
		}
	} else if session.UserID != nil && session.Phone == "" {
		return nil, models.ErrInvalidInput("a contact phone number is required")
	}

	conflicts := make(map[models.LegRole][]int)
	for role, state := range session.Legs {
		if ids := state.Conflicts(); len(ids) > 0 {
			conflicts[role] = ids
		}
	}
	if len(conflicts) > 0 {
		return nil, &models.SeatConflictError{Conflicts: conflicts}
	}

	session.PaymentMethod = method
	pricing := Quote(session.Legs)
	correlationID := uuid.NewString()

	payload := w.buildReservationRequest(session)
	w.logAudit(ctx, session, models.AuditPaymentInitiated, pricing.Total, nil, nil, userAgent, correlationID)

	result, err := w.reservations.Create(ctx, payload)
	if err != nil || result.RedirectURL == "" {
		message := "payment gateway did not return a redirect URL"
		if err != nil {
			message = err.Error()
		}
		session.Outcome = &models.PaymentOutcome{
			Status:   models.PaymentFailed,
			Message:  message,
			Restored: true,
		}
		session.Step = models.StepResult
		w.logAudit(ctx, session, models.AuditSubmissionFailed, pricing.Total, nil, &message, userAgent, correlationID)
		w.logger.WithField("session_id", session.ID).WithField("reason", message).
			Warn("Reservation submission failed; routed to result")
		return &SubmitOutcome{Outcome: session.Outcome}, nil
	}

	snapshot := w.buildSnapshot(session, pricing.Total)
	if err := w.bridge.Persist(ctx, snapshot); err != nil {
		// The redirect still proceeds; the return path degrades to an
		// empty-detail render.
		w.logger.WithError(err).WithField("session_id", session.ID).
			Warn("Failed to persist booking snapshot before redirect")
	}

	session.RedirectURL = result.RedirectURL
	w.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"total":      pricing.Total,
	}).Info("Reservation created; redirecting to payment gateway")
	return &SubmitOutcome{RedirectURL: result.RedirectURL}, nil
}

// HandleReturn is the gateway's re-entry point. The snapshot is consumed
// exactly once; a reload after the first render finds the outcome already
// recorded and re-renders it without re-interpreting the status token.
func (w *BookingWizard) HandleReturn(ctx context.Context, sessions *SessionManager, sessionID, statusToken, message, userAgent string) *BookingSession {
	session := sessions.Get(sessionID)
	if session == nil {
		// The process may have restarted while the traveler was off-site;
		// rebuild the session shell and let the snapshot fill it.
		session = newBookingSession(models.SearchCriteria{}, nil)
		session.ID = sessionID
		sessions.restore(session)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	if session.Step == models.StepResult && session.Outcome != nil {
		return session
	}

	status := models.PaymentFailed
	if statusToken == string(models.PaymentSuccess) {
		status = models.PaymentSuccess
	}
	outcome := &models.PaymentOutcome{Status: status, Message: message}

	var total float64
	if snapshot := w.bridge.Restore(ctx, sessionID); snapshot != nil {
		w.restoreFromSnapshot(session, snapshot)
		outcome.Restored = true
		total = snapshot.Total
	}

	session.Outcome = outcome
	session.Step = models.StepResult
	session.RedirectURL = ""

	statusText := string(status)
	var errText *string
	if message != "" {
		errText = &message
	}
	w.logAudit(ctx, session, models.AuditGatewayReturn, total, &statusText, errText, userAgent, uuid.NewString())

	w.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"status":     status,
		"restored":   outcome.Restored,
	}).Info("Payment return handled")
	return session
}

func (w *BookingWizard) enterSeats(ctx context.Context, session *BookingSession) {
	for _, itinerary := range session.chosen() {
		for i, role := range models.RequiredLegRoles(itinerary.Kind, itinerary.Direction) {
			if existing := session.Legs[role]; existing != nil && existing.Leg.ID == itinerary.Legs[i].ID {
				continue
			}
			session.Legs[role] = &SeatSelectionState{
				Role:     role,
				Leg:      itinerary.Legs[i],
				Selected: models.NewSelectionSet(),
			}
		}
		w.fetchAvailability(ctx, session, itinerary)
	}
	if err := w.seatSync.Start(ctx, session); err != nil {
		// The lock stream is an optimistic aid, not the source of truth;
		// the reservation call still rejects taken seats.
		w.logger.WithError(err).WithField("session_id", session.ID).
			Warn("Realtime seat sync unavailable")
	}
}

// fetchAvailability loads the authoritative seat list for one itinerary
// and partitions it across its legs. Failures set a retryable inline
// error on the affected roles instead of propagating.
func (w *BookingWizard) fetchAvailability(ctx context.Context, session *BookingSession, itinerary *models.Itinerary) {
	fromStationID, toStationID := FetchStations(session.Criteria, itinerary.Direction)
	roles := models.RequiredLegRoles(itinerary.Kind, itinerary.Direction)

	raw, err := w.trips.SeatAvailability(ctx, itinerary.ID, fromStationID, toStationID)
	if err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"session_id":   session.ID,
			"itinerary_id": itinerary.ID,
		}).Error("Seat availability fetch failed")
		for _, role := range roles {
			if state := session.Legs[role]; state != nil {
				state.FetchError = "seat availability is temporarily unavailable"
			}
		}
		return
	}

	byLeg := PartitionSeats(itinerary, raw, w.logger)
	for i, role := range roles {
		state := session.Legs[role]
		// A response for a leg the session no longer holds is discarded,
		// not applied blindly.
		if state == nil || state.Leg.ID != itinerary.Legs[i].ID {
			continue
		}
		state.Leg.Seats = byLeg[state.Leg.ID]
		state.FetchError = ""
	}
}

func (w *BookingWizard) prefillPhone(ctx context.Context, session *BookingSession) {
	if session.UserID == nil || session.Phone != "" {
		return
	}
	phone, err := w.profiles.GetPhone(ctx, *session.UserID)
	if err != nil {
		w.logger.WithError(err).Warn("Failed to prefill phone from profile")
		return
	}
	session.Phone = phone
}

func (w *BookingWizard) buildReservationRequest(session *BookingSession) *models.CreateReservationRequest {
	request := &models.CreateReservationRequest{
		IsReturn:        session.Criteria.IsRoundTrip(),
		TripSeats:       []models.LegSeatRequest{},
		ReturnTripSeats: []models.LegSeatRequest{},
		ReturnURL:       w.returnURLFor(session.ID),
	}
	if session.UserID != nil {
		request.CustomerID = session.UserID.String()
	}
	for _, itinerary := range session.chosen() {
		legRequests := w.buildLegSeatRequests(session, itinerary)
		if itinerary.Direction == models.DirectionReturn {
			request.ReturnTripSeats = legRequests
		} else {
			request.TripSeats = legRequests
		}
	}
	return request
}

func (w *BookingWizard) buildLegSeatRequests(session *BookingSession, itinerary *models.Itinerary) []models.LegSeatRequest {
	fromStationID, toStationID := FetchStations(session.Criteria, itinerary.Direction)
	roles := models.RequiredLegRoles(itinerary.Kind, itinerary.Direction)
	requests := make([]models.LegSeatRequest, 0, len(roles))
	for _, role := range roles {
		state := session.Legs[role]
		if state == nil {
			continue
		}
		tripID := state.Leg.TripID
		if tripID == 0 {
			tripID = state.Leg.ID
		}
		requests = append(requests, models.LegSeatRequest{
			TripID:        tripID,
			FromStationID: fromStationID,
			ToStationID:   toStationID,
			SeatIDs:       state.Selected.IDs(),
		})
	}
	return requests
}

func (w *BookingWizard) buildSnapshot(session *BookingSession, total float64) *models.BookingSnapshot {
	selections := make(map[models.LegRole][]int, len(session.Legs))
	for role, state := range session.Legs {
		if state.Selected.Len() > 0 {
			selections[role] = state.Selected.IDs()
		}
	}
	return &models.BookingSnapshot{
		SessionID:     session.ID,
		Criteria:      session.Criteria,
		Departure:     session.Departure,
		Return:        session.Return,
		Selections:    selections,
		Phone:         session.Phone,
		PaymentMethod: session.PaymentMethod,
		Total:         total,
	}
}

func (w *BookingWizard) restoreFromSnapshot(session *BookingSession, snapshot *models.BookingSnapshot) {
	session.Criteria = snapshot.Criteria
	session.Departure = snapshot.Departure
	session.Return = snapshot.Return
	session.Phone = snapshot.Phone
	session.PaymentMethod = snapshot.PaymentMethod
	session.Legs = make(map[models.LegRole]*SeatSelectionState)
	for _, itinerary := range session.chosen() {
		for role, state := range NewSeatStates(itinerary) {
			for _, seatID := range snapshot.Selections[role] {
				state.Selected.Toggle(seatID)
			}
			session.Legs[role] = state
		}
	}
}

func (w *BookingWizard) returnURLFor(sessionID string) string {
	return w.config.ReturnURL + "?session=" + url.QueryEscape(sessionID)
}

func (w *BookingWizard) logAudit(ctx context.Context, session *BookingSession, event models.PaymentAuditEvent, amount float64, paymentStatus, errorMessage *string, userAgent, correlationID string) {
	if w.audit == nil {
		return
	}
	entry := &models.PaymentAudit{
		SessionID:     session.ID,
		UserID:        session.UserID,
		EventType:     event,
		Amount:        amount,
		Currency:      w.config.Currency,
		PaymentStatus: paymentStatus,
		ErrorMessage:  errorMessage,
		CorrelationID: correlationID,
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	if err := w.audit.Log(ctx, entry); err != nil {
		w.logger.WithError(err).WithField("event_type", event).
			Error("Failed to record payment audit entry")
	}
}

func roleDirection(role models.LegRole) models.Direction {
	if len(role) >= len(models.RoleReturn) && role[:len(models.RoleReturn)] == models.RoleReturn {
		return models.DirectionReturn
	}
	return models.DirectionDeparture
}
