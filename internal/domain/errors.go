package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidFormat signals a malformed ZIP code (local validation, no network call).
	ErrInvalidFormat = errors.New("invalid zip code format")
	// ErrUnknownZip signals that the geocoding endpoint found nothing for a ZIP code.
	ErrUnknownZip = errors.New("unknown zip code")
	// ErrNoFavoritesSelected signals a match request with an empty favorite set.
	ErrNoFavoritesSelected = errors.New("no favorites selected")
	// ErrNoMatchFound signals that the matching endpoint returned no match identifier.
	ErrNoMatchFound = errors.New("no match found")
	// ErrMatchRecordMissing signals that the matched dog could not be hydrated.
	ErrMatchRecordMissing = errors.New("matched dog record missing")
	// ErrMatchInProgress signals a match request while another one is still generating.
	ErrMatchInProgress = errors.New("match generation in progress")

	// ErrTransport signals that the server could not be reached (status 0).
	ErrTransport = errors.New("transport error")
	// ErrAPI signals a non-2xx response from the catalog API.
	ErrAPI = errors.New("api error")
	// ErrAuthExpired signals an unauthenticated response; the caller should return to login.
	ErrAuthExpired = errors.New("session expired")

	// ErrInvalidCredentials signals login input that failed local validation.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound signals an unknown or already ended search session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoPage signals a pagination request without a cursor in that direction.
	ErrNoPage = errors.New("no page in that direction")
)

// APIError is the single typed error surfaced by the catalog HTTP client.
// StatusCode is 0 when no response was received at all.
type APIError struct {
	Message    string
	StatusCode int
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d, %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap maps the status code onto ErrTransport, ErrAuthExpired or ErrAPI.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 0:
		return ErrTransport
	case e.StatusCode == http.StatusUnauthorized:
		return ErrAuthExpired
	default:
		return ErrAPI
	}
}

// NewAPIError creates an APIError.
func NewAPIError(message string, statusCode int, endpoint string) error {
	return &APIError{Message: message, StatusCode: statusCode, Endpoint: endpoint}
}

// IsAuthExpired reports whether err means the upstream session is gone.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// UserMessage returns a message suitable for display.
// Typed API errors keep their message; local sentinels use their own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	for _, s := range []error{
		ErrInvalidFormat, ErrUnknownZip, ErrNoFavoritesSelected, ErrNoMatchFound,
		ErrMatchRecordMissing, ErrMatchInProgress, ErrInvalidCredentials, ErrSessionNotFound, ErrNoPage,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "unexpected error"
}
