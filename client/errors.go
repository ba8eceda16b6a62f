package client

import (
	"context"
	"errors"
	"fmt"
)

var errClosed = errors.New("client closed")

// CancelledError reports a call removed from its still-open batch by
// Cancel, before any network attempt.
type CancelledError struct {
	Path string
}

// Error implements the error interface
func (e *CancelledError) Error() string {
	return fmt.Sprintf("call %s cancelled before flush", e.Path)
}

// Unwrap makes the error match context.Canceled under errors.Is.
func (e *CancelledError) Unwrap() error {
	return context.Canceled
}

// OversizeError reports a call whose encoded path cannot fit the URL
// bound, before any network attempt.
type OversizeError struct {
	Path  string
	Size  int
	Limit int
}

// Error implements the error interface
func (e *OversizeError) Error() string {
	return fmt.Sprintf("encoded path %q is %d bytes, exceeds url size limit %d", e.Path, e.Size, e.Limit)
}

// TransportError reports a whole-batch delivery failure. Every call
// sharing the batch fails with the same TransportError; this is the
// only cross-call failure propagation the client performs.
type TransportError struct {
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("batch transport failure: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
