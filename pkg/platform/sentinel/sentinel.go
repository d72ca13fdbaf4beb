package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: key or mapping does not exist (a cache miss is ErrNotFound)
//   - ErrConflict: an atomic insert lost to a concurrent writer
//   - ErrInvalidState: entity in wrong state for the requested operation
//   - ErrUnavailable: backing store temporarily unreachable
//
// For validation errors use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
