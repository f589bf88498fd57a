package datasource

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy of the fetch path. Match with errors.Is.
var (
	ErrNotFound      = errors.New("location not found")
	ErrProvider      = errors.New("weather provider error")
	ErrNetwork       = errors.New("network error")
	ErrGeolocation   = errors.New("geolocation unavailable")
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidQuery  = errors.New("invalid query")
)

// ProviderError is a non-2xx answer from the weather provider
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// NotFound reports whether the provider could not resolve the location
func (e *ProviderError) NotFound() bool {
	return e.StatusCode == 404 || strings.Contains(strings.ToLower(e.Message), "not found")
}

// Is matches ErrNotFound for unresolvable locations and ErrProvider otherwise
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.NotFound()
	case ErrProvider:
		return !e.NotFound()
	}
	return false
}

// networkError wraps a transport failure so it matches ErrNetwork
func networkError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

// UserMessage converts an error from the fetch path into a displayable message
func UserMessage(err error) string {
	var perr *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &perr):
		return capitalize(perr.Message)
	case errors.Is(err, ErrInvalidQuery):
		return "Please enter a city name or valid coordinates."
	case errors.Is(err, ErrGeolocation):
		return "Unable to determine your location (" + err.Error() + ")."
	case errors.Is(err, ErrNetwork):
		return "Could not reach the weather service. Check your connection and try again."
	case errors.Is(err, ErrConfiguration):
		return "Weather service is not configured (" + err.Error() + ")."
	case errors.Is(err, ErrNotFound):
		return "City not found."
	}
	return "Something went wrong: " + err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
