// Package adapters holds the contract shared by the PDS, SDS and GP Connect
// lookup clients: one error type, one retry runner and the value types they
// return.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an adapter failure.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindTimeout         Kind = "timeout"
	KindUnavailable     Kind = "upstream_unavailable"
	KindInvalidResponse Kind = "invalid_response"
)

// Error is the only error type adapters return.
type Error struct {
	Kind    Kind
	Adapter string
	Message string
	Err     error
}

func NewError(adapter string, kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Adapter: adapter, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Adapter, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Adapter, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindUnavailable
}

// KindOf returns the kind of the first adapter error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// IsRetryable is false for anything that is not a retryable adapter error.
func IsRetryable(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Retryable()
}

// FromStatus classifies a non-2xx HTTP response. It returns nil for 2xx.
func FromStatus(adapter string, status int) *Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return NewError(adapter, KindNotFound, "resource not found", nil)
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return NewError(adapter, KindUnavailable, fmt.Sprintf("upstream returned %d", status), nil)
	default:
		return NewError(adapter, KindInvalidResponse, fmt.Sprintf("upstream rejected request with %d", status), nil)
	}
}

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(adapter string, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(adapter, KindTimeout, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(adapter, KindTimeout, "request timed out", err)
	}
	return NewError(adapter, KindUnavailable, "request failed", err)
}

// InvalidResponse wraps a decode or shape failure.
func InvalidResponse(adapter, msg string, err error) *Error {
	return NewError(adapter, KindInvalidResponse, msg, err)
}
