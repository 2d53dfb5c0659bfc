package main

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoPriceData is returned when every price lookup strategy came back empty.
	ErrNoPriceData = errors.New("no price data available")
	ErrEmptySymbol = errors.New("symbol is required")
)

// StatusError is a non-2xx answer from an upstream API.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.Path, e.Body)
}

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}
