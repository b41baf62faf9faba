package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/middleware"
	"github.com/busline/booking-backend/internal/models"
	"github.com/busline/booking-backend/internal/services"
)

// BookingHandler exposes the booking wizard over HTTP.
type BookingHandler struct {
	sessions *services.SessionManager
	wizard   *services.BookingWizard
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(sessions *services.SessionManager, wizard *services.BookingWizard, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		sessions: sessions,
		wizard:   wizard,
		logger:   logger,
	}
}

// CreateSession opens a new booking session
// @Summary Open a booking session
// @Description Opens a booking session for the given search criteria. Works for guests; an authenticated user's id is attached when a bearer token is supplied.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body models.SearchCriteria true "Search criteria"
// @Success 201 {object} services.SessionView
// @Failure 400 {object} map[string]interface{} "Invalid criteria"
// @Router /api/v1/booking/sessions [post]
func (h *BookingHandler) CreateSession(c *gin.Context) {
	var criteria models.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := criteria.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := h.sessions.Create(criteria, userID(c))
	if err := h.wizard.Search(c.Request.Context(), session); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session.View())
}

// GetSession returns the session's current state
// @Summary Read a booking session
// @Tags Booking
// @Produce json
// @Success 200 {object} services.SessionView
// @Failure 404 {object} map[string]interface{} "Session not found"
// @Router /api/v1/booking/sessions/{id} [get]
func (h *BookingHandler) GetSession(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// Search re-runs the trip search with updated criteria
// @Summary Re-run the trip search
// @Description Replaces the session's criteria and recomposes the itinerary options. Clears any itinerary choices.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body models.SearchCriteria true "Search criteria"
// @Success 200 {object} services.SessionView
// @Router /api/v1/booking/sessions/{id}/search [post]
func (h *BookingHandler) Search(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	var criteria models.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.wizard.UpdateCriteria(session, criteria); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.wizard.Search(c.Request.Context(), session); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

type chooseItineraryRequest struct {
	Direction   models.Direction `json:"direction" binding:"required"`
	ItineraryID int              `json:"itinerary_id" binding:"required"`
}

// ChooseItinerary records the itinerary choice for one direction
// @Summary Choose an itinerary
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body chooseItineraryRequest true "Direction and itinerary id"
// @Success 200 {object} services.SessionView
// @Router /api/v1/booking/sessions/{id}/itinerary [post]
func (h *BookingHandler) ChooseItinerary(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	var req chooseItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.wizard.ChooseItinerary(session, req.Direction, req.ItineraryID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// Next advances the wizard one step
// @Summary Advance the wizard
// @Tags Booking
// @Produce json
// @Success 200 {object} services.SessionView
// @Failure 400 {object} map[string]interface{} "Step guard failed"
// @Router /api/v1/booking/sessions/{id}/next [post]
func (h *BookingHandler) Next(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	if err := h.wizard.Next(c.Request.Context(), session); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// Back steps the wizard backward
// @Summary Step the wizard backward
// @Tags Booking
// @Produce json
// @Success 200 {object} services.SessionView
// @Router /api/v1/booking/sessions/{id}/back [post]
func (h *BookingHandler) Back(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	if err := h.wizard.Back(c.Request.Context(), session); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// GetSeats returns the seat surfaces and current pricing
// @Summary Read the seat selection surfaces
// @Tags Booking
// @Produce json
// @Success 200 {object} services.SessionView
// @Router /api/v1/booking/sessions/{id}/seats [get]
func (h *BookingHandler) GetSeats(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, session.View())
}

type toggleSeatRequest struct {
	Role   models.LegRole `json:"role" binding:"required"`
	SeatID int            `json:"seat_id" binding:"required"`
}

// ToggleSeat flips a seat's selection on one leg
// @Summary Toggle a seat
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body toggleSeatRequest true "Leg role and seat id"
// @Success 200 {object} services.SessionView
// @Router /api/v1/booking/sessions/{id}/seats/toggle [post]
func (h *BookingHandler) ToggleSeat(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	var req toggleSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if _, err := h.wizard.ToggleSeat(session, req.Role, req.SeatID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

type retryAvailabilityRequest struct {
	Role models.LegRole `json:"role" binding:"required"`
}

// RetryAvailability re-runs a failed availability fetch
// @Summary Retry a failed seat availability fetch
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body retryAvailabilityRequest true "Leg role"
// @Success 200 {object} services.SessionView
// @Router /api/v1/booking/sessions/{id}/seats/retry [post]
func (h *BookingHandler) RetryAvailability(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	var req retryAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.wizard.RetryAvailability(c.Request.Context(), session, req.Role); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

type submitPaymentRequest struct {
	Method string `json:"method" binding:"required"`
	Phone  string `json:"phone"`
}

// SubmitPayment submits the booking for payment
// @Summary Submit the booking for payment
// @Description Creates the external reservation and returns the gateway redirect URL. Seat conflicts respond 409 with the conflicting seats per leg role; an immediate gateway failure responds 200 with a failed outcome.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body submitPaymentRequest true "Payment method and contact phone"
// @Success 200 {object} services.SubmitOutcome
// @Failure 400 {object} map[string]interface{} "Guard failed"
// @Failure 409 {object} map[string]interface{} "Selected seats no longer available"
// @Router /api/v1/booking/sessions/{id}/payment [post]
func (h *BookingHandler) SubmitPayment(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	var req submitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	outcome, err := h.wizard.SubmitPayment(c.Request.Context(), session, req.Method, req.Phone, c.Request.UserAgent())
	if err != nil {
		var conflict *models.SeatConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error":     conflict.Error(),
				"conflicts": conflict.Conflicts,
			})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Confirmation is the payment gateway's return endpoint
// @Summary Handle the payment gateway return
// @Description Consumes the booking snapshot, records the payment outcome and renders the Result step. Reloading re-renders the recorded outcome.
// @Tags Booking
// @Produce json
// @Param session query string true "Session id"
// @Param status query string false "Gateway status token"
// @Param message query string false "Gateway message"
// @Success 200 {object} services.SessionView
// @Router /api/v1/booking/confirmation [get]
func (h *BookingHandler) Confirmation(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session query parameter is required"})
		return
	}
	session := h.wizard.HandleReturn(
		c.Request.Context(),
		h.sessions,
		sessionID,
		c.Query("status"),
		c.Query("message"),
		c.Request.UserAgent(),
	)
	c.JSON(http.StatusOK, session.View())
}

// DeleteSession closes a booking session
// @Summary Close a booking session
// @Tags Booking
// @Success 204 "Session closed"
// @Router /api/v1/booking/sessions/{id} [delete]
func (h *BookingHandler) DeleteSession(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	h.sessions.Delete(session.ID)
	c.Status(http.StatusNoContent)
}

// session loads the session named in the path and checks ownership. On
// failure it writes the response and returns nil.
func (h *BookingHandler) session(c *gin.Context) *services.BookingSession {
	session := h.sessions.Get(c.Param("id"))
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil
	}
	if session.UserID != nil {
		userCtx, ok := middleware.GetUserContext(c)
		if !ok || userCtx.UserID != *session.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Session belongs to another user"})
			return nil
		}
	}
	return session
}

func (h *BookingHandler) respondError(c *gin.Context, err error) {
	if models.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Booking operation failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func userID(c *gin.Context) *uuid.UUID {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		return nil
	}
	id := userCtx.UserID
	return &id
}
