package auth

import (
	"regexp"
	"strings"

	"github.com/skillsenselab/tubescribe/internal/apperr"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Throwaway providers we refuse registrations from.
var disposableDomains = map[string]struct{}{
	"tempmail.com":      {},
	"throwaway.email":   {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"mailinator.com":    {},
	"trashmail.com":     {},
}

// NormalizeEmail lowercases and trims an address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks address format and rejects disposable providers.
// It returns the normalized address on success.
func ValidateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", apperr.MissingField("email")
	}
	if !emailPattern.MatchString(email) {
		return "", apperr.InvalidInput("email", "invalid email format")
	}
	domain := email[strings.LastIndexByte(email, '@')+1:]
	if _, blocked := disposableDomains[domain]; blocked {
		return "", apperr.InvalidInput("email", "disposable email addresses are not allowed")
	}
	return email, nil
}
