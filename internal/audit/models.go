package audit

import (
	"time"

	"xhuma/pkg/domain"
)

// Outcome classifies how a transaction ended.
type Outcome string

const (
	OutcomeOK   Outcome = "ok"
	OutcomeFail Outcome = "fail"
	// OutcomeDeny marks a request refused before any upstream call, such as
	// a sequence violation or failed authentication.
	OutcomeDeny Outcome = "deny"
)

// Record is one append-only entry per transaction. Records are written by
// the orchestrator and fanned out to a single configured sink.
type Record struct {
	ID              string                 `json:"id"`
	CorrelationID   string                 `json:"correlation_id,omitempty"`
	PatientID       string                 `json:"patient_id"`
	SubjectRef      string                 `json:"subject_ref,omitempty"`
	TransactionType domain.TransactionType `json:"transaction_type"`
	Outcome         Outcome                `json:"outcome"`
	ErrorKind       string                 `json:"error_kind,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
	RequestID       string                 `json:"request_id,omitempty"`
	ClientIP        string                 `json:"client_ip,omitempty"`
	UserAgent       string                 `json:"user_agent,omitempty"`
	Device          string                 `json:"device,omitempty"`
}
