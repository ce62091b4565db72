// Package apperr defines the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"

	"github.com/samber/oops"
)

var (
	// ErrValidation marks missing or malformed client input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a uniqueness violation.
	ErrConflict = errors.New("already exists")
	// ErrNotFound marks a missing pending registration, account or resource.
	ErrNotFound = errors.New("not found")
	// ErrExpired marks a verification code past its expiry.
	ErrExpired = errors.New("code expired")
	// ErrInvalidCode marks a verification code mismatch.
	ErrInvalidCode = errors.New("invalid code")
	// ErrInvalidCredentials marks a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden marks an authenticated caller that may not proceed.
	ErrForbidden = errors.New("forbidden")
	// ErrDeliveryFailed marks a notification collaborator failure.
	ErrDeliveryFailed = errors.New("delivery failed")
)

const internalMessage = "internal server error"

var kinds = []struct {
	err    error
	kind   string
	status int
}{
	{ErrValidation, "validation", http.StatusBadRequest},
	{ErrConflict, "conflict", http.StatusConflict},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrExpired, "expired", http.StatusBadRequest},
	{ErrInvalidCode, "invalid_code", http.StatusBadRequest},
	{ErrInvalidCredentials, "invalid_credentials", http.StatusUnauthorized},
	{ErrForbidden, "forbidden", http.StatusForbidden},
	{ErrDeliveryFailed, "delivery_failed", http.StatusBadGateway},
}

// Kind returns a short label for err, suitable for metrics. A nil error is "ok"
// and anything outside the taxonomy is "internal".
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsInternal reports whether err falls outside the client-facing taxonomy.
func IsInternal(err error) bool {
	return err != nil && Status(err) == http.StatusInternalServerError
}

// PublicMessage returns the message that may be shown to a caller. Internal
// errors never leak their details.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsInternal(err) {
		return internalMessage
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return oops.GetPublic(err, k.err.Error())
		}
	}
	return internalMessage
}

// InvalidBody wraps a request decoding failure as a validation error.
func InvalidBody(err error) error {
	return oops.Code("INVALID_BODY").Public("invalid request body").Wrapf(ErrValidation, "decode body: %v", err)
}
