package api

import (
	"errors"
	"fmt"
)

// HTTPError is any non-2xx backend response: the status plus the decoded
// payload, or a synthesized {"detail": raw} when the body is not valid JSON.
type HTTPError struct {
	Status  int
	Payload any
}

func (e *HTTPError) Error() string {
	if d := e.Detail(); d != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, d)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Detail returns the server-provided detail string, empty when absent.
// Pages show this verbatim; the client never formats user-facing messages.
func (e *HTTPError) Detail() string {
	obj, ok := e.Payload.(map[string]any)
	if !ok {
		return ""
	}
	if d, ok := obj["detail"].(string); ok {
		return d
	}
	return ""
}

// AuthError marks failures from the account endpoints (login, register,
// identity fetch) so callers can route them to the auth forms.
type AuthError struct {
	*HTTPError
}

func (e *AuthError) Unwrap() error {
	return e.HTTPError
}

func asAuthError(err error) error {
	if err == nil {
		return nil
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return &AuthError{HTTPError: he}
	}
	return err
}
