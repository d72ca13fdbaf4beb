// Package models holds the correlation mapping and transaction state types.
package models

import (
	"fmt"
	"strings"
	"time"

	"xhuma/pkg/domain"
)

// Family groups the transactions that share one correlation id.
type Family string

// DefaultFamily is used when a request carries no family label.
const DefaultFamily Family = "xca"

// NormalizeFamily trims the label and falls back to DefaultFamily.
func NormalizeFamily(raw string) Family {
	f := strings.TrimSpace(raw)
	if f == "" {
		return DefaultFamily
	}
	return Family(f)
}

// State is the progress of a (patient, family) through the transaction
// sequence. It only moves forward.
type State int

const (
	// StateNotStarted means no mapping exists. It is never persisted.
	StateNotStarted State = iota
	StateDemographicsResolved
	StateRoutingResolved
	StateDocumentReady
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateDemographicsResolved:
		return "demographics_resolved"
	case StateRoutingResolved:
		return "routing_resolved"
	case StateDocumentReady:
		return "document_ready"
	case StateConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsValid reports whether s is a persistable state.
func (s State) IsValid() bool {
	return s >= StateDemographicsResolved && s <= StateConfirmed
}

// AtLeast reports whether s has reached min.
func (s State) AtLeast(min State) bool { return s >= min }

// Mapping is the single live correlation record for a (patient, family).
type Mapping struct {
	PatientID     domain.NHSNumber
	Family        Family
	CorrelationID string
	FirstSeen     time.Time
	LastUsed      time.Time
	UseCount      int64
	State         State
	// Organization is the patient's registered GP ODS code, set once
	// demographics resolve.
	Organization string
}

// Key is the canonical "patient:family" identity of a mapping.
func Key(patient domain.NHSNumber, family Family) string {
	return patient.String() + ":" + string(family)
}
