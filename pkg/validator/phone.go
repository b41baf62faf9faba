package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates the phone number is not 10 or 11 digits
	ErrInvalidLength = errors.New("phone number must be 10 or 11 digits")

	// ErrInvalidFormat indicates the phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates the phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles contact phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a contact phone number.
// Accepts formats like 0771234567, 077 123 4567, 077-123-4567 or
// +9477 123 4567 and returns the sanitized digits-only form.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if phone == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) < 10 || len(sanitized) > 11 {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// Sanitize strips the separators callers commonly paste in: spaces,
// dashes, dots, parentheses and a leading plus sign.
func (v *PhoneValidator) Sanitize(phone string) string {
	sanitized := strings.TrimSpace(phone)
	sanitized = strings.TrimPrefix(sanitized, "+")
	replacer := strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
	return replacer.Replace(sanitized)
}

// IsValid reports whether the phone number validates.
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
