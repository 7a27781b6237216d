package models

import (
	"errors"
	"fmt"
)

// Error codes used in logs and internal error handling.
const (
	ErrCodeFetch      = "FETCH_FAILED"
	ErrCodeExtraction = "EXTRACTION_FAILED"
	ErrCodeWrite      = "WRITE_FAILED"
	ErrCodeDiscovery  = "DISCOVERY_FAILED"
	ErrCodeDisallowed = "ROBOTS_DISALLOWED"
)

// CrawlError is the internal error type carrying an error code and the URL
// being processed when it happened.
// It implements the error interface and supports error wrapping via Unwrap.
type CrawlError struct {
	Code    string
	URL     string
	Message string
	Err     error // wrapped original error
}

func (e *CrawlError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(code, url, message string, err error) *CrawlError {
	return &CrawlError{Code: code, URL: url, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) is a CrawlError with
// the given code.
func HasCode(err error, code string) bool {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
