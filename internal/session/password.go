package session

import (
	"strings"
	"unicode"
)

// commonFragments are rejected wherever they appear in a candidate password.
var commonFragments = []string{"password", "123456", "azerty", "qwerty", "admin"}

const specialRunes = `!@#$%^&*()-_=+[]{};:'",.<>/?`

// ValidationError carries the full list of client-side form failures. It
// never reaches the network.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// ValidatePassword applies the registration password policy and returns nil
// or the complete list of violations.
func ValidatePassword(pw string) *ValidationError {
	var errs []string

	var hasLower, hasUpper, hasDigit, hasSpecial, hasSpace bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSpace(r):
			hasSpace = true
		case strings.ContainsRune(specialRunes, r):
			hasSpecial = true
		}
	}

	if len([]rune(pw)) < 12 {
		errs = append(errs, "at least 12 characters")
	}
	if !hasLower {
		errs = append(errs, "at least one lowercase letter")
	}
	if !hasUpper {
		errs = append(errs, "at least one uppercase letter")
	}
	if !hasDigit {
		errs = append(errs, "at least one digit")
	}
	if !hasSpecial {
		errs = append(errs, "at least one special character")
	}
	if hasSpace {
		errs = append(errs, "no spaces")
	}
	lower := strings.ToLower(pw)
	for _, frag := range commonFragments {
		if strings.Contains(lower, frag) {
			errs = append(errs, "too close to a common password")
			break
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
