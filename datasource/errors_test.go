package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil", nil, ""},
		{"provider message passes through", &ProviderError{StatusCode: 404, Message: "city not found"}, "City not found"},
		{"wrapped provider error", fmt.Errorf("search: %w", &ProviderError{StatusCode: 401, Message: "Invalid API key"}), "Invalid API key"},
		{"network", networkError("do", context.DeadlineExceeded), "Could not reach"},
		{"geolocation", fmt.Errorf("%w: permission denied", ErrGeolocation), "permission denied"},
		{"invalid", fmt.Errorf("%w: empty", ErrInvalidQuery), "city name"},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if tt.contains == "" && got != "" {
				t.Fatalf("expected empty message, got %q", got)
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("UserMessage(%v) = %q, want it to contain %q", tt.err, got, tt.contains)
			}
		})
	}
}

func TestProviderErrorIs(t *testing.T) {
	notFound := &ProviderError{StatusCode: 404}
	if !errors.Is(notFound, ErrNotFound) || errors.Is(notFound, ErrProvider) {
		t.Error("404 should match ErrNotFound only")
	}
	unavailable := &ProviderError{StatusCode: 503, Message: "busy"}
	if errors.Is(unavailable, ErrNotFound) || !errors.Is(unavailable, ErrProvider) {
		t.Error("503 should match ErrProvider only")
	}
}
