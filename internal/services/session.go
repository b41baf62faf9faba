package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/models"
)

// BookingSession is the single aggregate holding one traveler's booking
// state: chosen itineraries, one seat-selection surface per active leg
// role, the wizard's current step and the payment outcome. All mutation
// goes through the wizard's operations under the session mutex, which
// serializes user actions and realtime events the way a single-threaded
// event loop would.
type BookingSession struct {
	ID         string
	UserID     *uuid.UUID
	CreatedAt  time.Time
	LastActive time.Time

	mu sync.Mutex

	Criteria         models.SearchCriteria
	DepartureOptions []models.Itinerary
	ReturnOptions    []models.Itinerary
	Departure        *models.Itinerary
	Return           *models.Itinerary
	Legs             map[models.LegRole]*SeatSelectionState
	Step             models.Step
	PaymentMethod    string
	Phone            string
	Outcome          *models.PaymentOutcome
	RedirectURL      string

	sub *seatSubscription
}

func newBookingSession(criteria models.SearchCriteria, userID *uuid.UUID) *BookingSession {
	now := time.Now()
	return &BookingSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		CreatedAt:  now,
		LastActive: now,
		Criteria:   criteria,
		Legs:       make(map[models.LegRole]*SeatSelectionState),
		Step:       models.StepSearch,
	}
}

// touch records activity for the idle sweep. Callers hold the mutex.
func (s *BookingSession) touch() {
	s.LastActive = time.Now()
}

// chosen returns the itineraries currently selected, departure first.
// Callers hold the mutex.
func (s *BookingSession) chosen() []*models.Itinerary {
	var itineraries []*models.Itinerary
	if s.Departure != nil {
		itineraries = append(itineraries, s.Departure)
	}
	if s.Return != nil {
		itineraries = append(itineraries, s.Return)
	}
	return itineraries
}

// activeLegIDs returns the ids of every leg with a selection surface.
// Callers hold the mutex.
func (s *BookingSession) activeLegIDs() []int {
	ids := make([]int, 0, len(s.Legs))
	seen := make(map[int]struct{}, len(s.Legs))
	for _, state := range s.Legs {
		if _, ok := seen[state.Leg.ID]; ok {
			continue
		}
		seen[state.Leg.ID] = struct{}{}
		ids = append(ids, state.Leg.ID)
	}
	return ids
}

// applySeatEvent feeds one realtime event into the selection surfaces.
// Events are applied in receipt order under the session mutex.
func (s *BookingSession) applySeatEvent(event models.SeatEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Step != models.StepSeats || s.sub == nil {
		return
	}
	for _, state := range s.Legs {
		state.ApplyEvent(event)
	}
}

// SessionManager is the in-memory registry of live booking sessions.
// A janitor goroutine expires sessions idle past the TTL.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*BookingSession

	ttl    time.Duration
	sync   *RealtimeSeatSync
	logger *logrus.Logger
	stop   chan struct{}
	once   sync.Once
}

// NewSessionManager creates a session registry. Call StartJanitor to
// enable idle expiry.
func NewSessionManager(ttl time.Duration, seatSync *RealtimeSeatSync, logger *logrus.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*BookingSession),
		ttl:      ttl,
		sync:     seatSync,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Create opens a new booking session.
func (m *SessionManager) Create(criteria models.SearchCriteria, userID *uuid.UUID) *BookingSession {
	session := newBookingSession(criteria, userID)
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	return session
}

// Get returns the session, or nil when unknown or expired.
func (m *SessionManager) Get(id string) *BookingSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// restore re-registers a session rebuilt from a snapshot after a payment
// return that landed on a process without the original session.
func (m *SessionManager) restore(session *BookingSession) {
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
}

// Delete removes a session and releases its realtime subscription.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	session := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if session != nil {
		m.sync.Stop(session)
	}
}

// StartJanitor begins the periodic idle sweep.
func (m *SessionManager) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// StopJanitor halts the idle sweep.
func (m *SessionManager) StopJanitor() {
	m.once.Do(func() { close(m.stop) })
}

func (m *SessionManager) sweep() {
	cutoff := time.Now().Add(-m.ttl)
	var expired []*BookingSession
	m.mu.Lock()
	for id, session := range m.sessions {
		session.mu.Lock()
		idle := session.LastActive.Before(cutoff)
		session.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		m.sync.Stop(session)
		m.logger.WithFields(logrus.Fields{
			"session_id": session.ID,
			"step":       session.Step,
		}).Info("Expired idle booking session")
	}
}
