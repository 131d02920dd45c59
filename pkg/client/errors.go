package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrFetchFailed is the generic failure reported for unsuccessful API responses.
	ErrFetchFailed = errors.New("could not fetch pokemon information")

	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("malformed response body")
)

// FetchError is returned for non-2xx API responses and transport failures.
type FetchError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	URL        string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: pokeapi %s error (status %d): %s: %v",
			ErrFetchFailed, e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: pokeapi %s error (status %d): %s",
		ErrFetchFailed, e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes every FetchError match ErrFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// StatusCode extracts the HTTP status from err, or 0 if err carries none.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
