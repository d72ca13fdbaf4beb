// Package domainerrors defines the transport-agnostic error taxonomy shared by
// every xhuma service. Services return *Error values (or wrap causes with Wrap)
// and the transport layer maps the Code to a status and a wire-level kind.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is the stable, wire-visible identifier of an error kind.
type Code string

const (
	// Caller errors.
	CodeValidation        Code = "validation_error"
	CodeSequenceViolation Code = "sequence_violation"
	CodeBadRequest        Code = "bad_request"
	CodeUnauthorized      Code = "unauthorized"

	// Upstream (lookup adapter) errors.
	CodeUpstreamNotFound    Code = "upstream_not_found"
	CodeUpstreamTimeout     Code = "upstream_timeout"
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	CodeInvalidResponse     Code = "invalid_response"

	// Conversion errors.
	CodeMalformedBundle Code = "malformed_bundle"

	// Shared-state errors.
	CodeRegistryUnavailable Code = "registry_unavailable"
	CodeCacheUnavailable    Code = "cache_unavailable"

	CodeInternal Code = "internal_error"
)

// Retryable reports whether a caller may safely retry a transaction that
// failed with this code.
func (c Code) Retryable() bool {
	switch c {
	case CodeUpstreamTimeout, CodeUpstreamUnavailable, CodeRegistryUnavailable:
		return true
	default:
		return false
	}
}

// Error is a coded domain error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code. A target without a message
// matches any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to a cause. Wrapping nil returns nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message in err's chain.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
