package client

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrEmptyURL is returned when Get is called without a URL.
var ErrEmptyURL = errors.New("empty url")

// FetchError represents a failed GET with its classification.
type FetchError struct {
	URL        string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether the fetch reached the server and got an error status.
func (e *FetchError) IsStatus() bool {
	return e.StatusCode != 0
}

// Reason returns the underlying transport cause without the *url.Error
// wrapper that repeats method and URL.
func (e *FetchError) Reason() string {
	if e.Err == nil {
		return e.Message
	}
	var urlErr *url.Error
	if errors.As(e.Err, &urlErr) {
		if urlErr.Timeout() {
			return "timed out"
		}
		return urlErr.Err.Error()
	}
	return e.Err.Error()
}
