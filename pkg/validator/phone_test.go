package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_ValidNumbers(t *testing.T) {
	v := NewPhoneValidator()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ten digits", "0771234567", "0771234567"},
		{"eleven digits", "94771234567", "94771234567"},
		{"spaces", "077 123 4567", "0771234567"},
		{"dashes", "077-123-4567", "0771234567"},
		{"dots", "077.123.4567", "0771234567"},
		{"parentheses", "(077) 1234567", "0771234567"},
		{"leading plus", "+94771234567", "94771234567"},
		{"surrounding whitespace", "  0771234567  ", "0771234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	v := NewPhoneValidator()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrEmptyPhone},
		{"too short", "077123456", ErrInvalidLength},
		{"too long", "947712345678", ErrInvalidLength},
		{"letters", "077abc4567", ErrInvalidFormat},
		{"interior plus", "077+1234567", ErrInvalidFormat},
		{"only separators", "--- ---", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIsValid(t *testing.T) {
	v := NewPhoneValidator()

	assert.True(t, v.IsValid("0771234567"))
	assert.False(t, v.IsValid("123"))
	assert.False(t, v.IsValid(""))
}
