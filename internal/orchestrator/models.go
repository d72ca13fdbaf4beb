package orchestrator

import (
	"xhuma/internal/adapters"
	"xhuma/internal/ccda"
	"xhuma/internal/correlation/models"
)

// DemographicsRequest is an ITI-47 query. CEID, when set, is remembered as an
// alias for the patient so later transactions may present it instead.
type DemographicsRequest struct {
	PatientID string
	Family    string
	CEID      string
}

type DemographicsResult struct {
	CorrelationID string
	IsNew         bool
	State         models.State
	Demographics  *adapters.Demographics
}

// StructuredRecordRequest is an ITI-38 query. Either PatientID or CEID
// identifies the patient; PatientID wins when both are present.
type StructuredRecordRequest struct {
	PatientID     string
	CEID          string
	Family        string
	CorrelationID string
	// Organization overrides the GP practice recorded by ITI-47.
	Organization string
}

type StructuredRecordResult struct {
	CorrelationID string
	CacheHit      bool
	Document      *ccda.Document
}

// RetrieveRequest is an ITI-39 retrieve/confirm.
type RetrieveRequest struct {
	PatientID     string
	CEID          string
	Family        string
	CorrelationID string
}

type RetrieveResult struct {
	CorrelationID string
	// Regenerated is set when the document had expired from the cache and
	// was rebuilt from a fresh structured record.
	Regenerated bool
	Document    *ccda.Document
}
