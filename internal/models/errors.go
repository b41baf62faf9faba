package models

import "fmt"

// ValidationError is a user-facing guard failure: it blocks a forward
// wizard transition but is never fatal.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrInvalidInput creates a validation error.
func ErrInvalidInput(message string) error {
	return &ValidationError{Message: message}
}

// IsValidationError reports whether err is a guard failure.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// AvailabilityError is a retryable seat-fetch failure for one leg role.
// It is surfaced inline and does not block navigating away from the step.
type AvailabilityError struct {
	Role LegRole
	Err  error
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("seat availability fetch failed for %s: %v", e.Role, e.Err)
}

func (e *AvailabilityError) Unwrap() error { return e.Err }

// SeatConflictError is raised at payment submission when seats the user
// selected were locked or booked by someone else in the meantime.
type SeatConflictError struct {
	Conflicts map[LegRole][]int
}

func (e *SeatConflictError) Error() string {
	n := 0
	for _, ids := range e.Conflicts {
		n += len(ids)
	}
	return fmt.Sprintf("%d selected seat(s) are no longer available", n)
}
