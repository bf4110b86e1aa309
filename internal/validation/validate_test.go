package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_Order(t *testing.T) {
	tests := []struct {
		name  string
		value string
		cfg   Config
		want  string
	}{
		{name: "required blank", value: "   ", cfg: Name, want: "Name is required"},
		{name: "optional blank", value: "", cfg: Config{Rules: Rules{MinLength: 3}}, want: ""},
		{name: "too short", value: "A", cfg: Name, want: "Name is too short"},
		{name: "too long", value: strings.Repeat("a", 51), cfg: Name, want: "Name is too long"},
		{name: "pattern", value: "Anna!", cfg: Name, want: "Name can only contain letters, spaces and hyphens"},
		{name: "cyrillic name", value: "Ёжик Иванов", cfg: Name, want: ""},
		{name: "bad email", value: "user@host", cfg: Email, want: "Please enter a valid email"},
		{name: "good email", value: "user@shop.dev", cfg: Email, want: ""},
		{name: "default messages", value: "ab", cfg: Config{Rules: Rules{MinLength: 3}}, want: "Minimum length is 3"},
		{name: "message length counts runes", value: strings.Repeat("ж", 10), cfg: Message, want: ""},
		{name: "short password", value: "12345", cfg: Password, want: "Password must be at least 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Validate(tt.value, tt.cfg))
		})
	}
}

func TestValidateReview(t *testing.T) {
	errs := ValidateReview(Review{Name: "Jo", Email: "jo@example.com", Message: "Great quality, fast delivery", Rating: 5})
	require.Empty(t, errs)

	errs = ValidateReview(Review{Name: "", Email: "nope", Message: "short", Rating: 9})
	require.Equal(t, map[string]string{
		"name":    "Name is required",
		"email":   "Please enter a valid email",
		"message": "Minimum of 10 characters",
		"rating":  "Rating must be between 1 and 5",
	}, errs)
}
