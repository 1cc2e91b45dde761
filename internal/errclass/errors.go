// Package errclass classifies scraping failures into retry policy categories.
// Classification is rule-based over error types, HTTP status codes, and
// message text, with an optimistic retryable default for unmatched errors.
package errclass

import (
	"fmt"
	"net/http"
)

// StatusError carries a non-success HTTP status for a fetched URL.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d (%s) fetching %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// RobotsDisallowedError indicates robots.txt forbids fetching the URL.
type RobotsDisallowedError struct {
	URL string
}

func (e *RobotsDisallowedError) Error() string {
	return fmt.Sprintf("robots.txt disallows %s", e.URL)
}

// ParseError indicates the page was fetched but no recipe could be extracted.
// Retrying cannot fix a markup mismatch, so it is a permanent skip.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// ValidationError indicates an extracted recipe failed the schema contract.
type ValidationError struct {
	URL string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %v", e.URL, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
