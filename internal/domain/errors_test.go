package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Unwrap(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"network", 0, ErrTransport},
		{"unauthorized", 401, ErrAuthExpired},
		{"server error", 500, ErrAPI},
		{"bad request", 400, ErrAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError("boom", tt.status, "/dogs")
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
		})
	}
}

func TestAPIError_As(t *testing.T) {
	err := fmt.Errorf("search: %w", NewAPIError("Not allowed", 403, "/dogs/search"))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("expected *APIError in chain")
	}
	if apiErr.StatusCode != 403 || apiErr.Endpoint != "/dogs/search" {
		t.Errorf("unexpected fields: %+v", apiErr)
	}
}

func TestIsAuthExpired(t *testing.T) {
	if !IsAuthExpired(fmt.Errorf("wrap: %w", NewAPIError("Unauthorized", 401, "/dogs"))) {
		t.Error("401 should be auth expired")
	}
	if IsAuthExpired(NewAPIError("down", 0, "/dogs")) {
		t.Error("transport error is not auth expired")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Errorf("nil: got %q", got)
	}
	if got := UserMessage(NewAPIError("Bad breed", 400, "/dogs/search")); got != "Bad breed" {
		t.Errorf("api: got %q", got)
	}
	if got := UserMessage(fmt.Errorf("add zip: %w", ErrUnknownZip)); got != ErrUnknownZip.Error() {
		t.Errorf("sentinel: got %q", got)
	}
	if got := UserMessage(errors.New("secret internals")); got != "unexpected error" {
		t.Errorf("unknown: got %q", got)
	}
}
