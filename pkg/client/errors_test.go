package client

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &FetchError{
				StatusCode: 0,
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        io.EOF,
			},
			expected: "could not fetch pokemon information: pokeapi network error (status 0): request failed: EOF",
		},
		{
			name: "error without wrapped error",
			err: &FetchError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "404 Not Found",
			},
			expected: "could not fetch pokemon information: pokeapi client error (status 404): 404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFetchError_Is(t *testing.T) {
	err := fmt.Errorf("list pokemon: %w", &FetchError{StatusCode: 500, ErrorClass: ErrorClassServer, Err: io.ErrUnexpectedEOF})

	if !errors.Is(err, ErrFetchFailed) {
		t.Error("errors.Is(err, ErrFetchFailed) = false, want true")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is(err, io.ErrUnexpectedEOF) = false, want true")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatal("errors.As(err, *FetchError) = false")
	}
	if fe.ErrorClass != ErrorClassServer {
		t.Errorf("ErrorClass = %q, want %q", fe.ErrorClass, ErrorClassServer)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 0},
		{name: "fetch error", err: &FetchError{StatusCode: 404}, want: 404},
		{name: "wrapped fetch error", err: fmt.Errorf("wrap: %w", &FetchError{StatusCode: 503}), want: 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
