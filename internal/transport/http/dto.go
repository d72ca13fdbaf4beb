package httptransport

import (
	"xhuma/internal/adapters"
	"xhuma/internal/ccda"
	"xhuma/internal/orchestrator"
)

type demographicsRequest struct {
	PatientID string `json:"patient_id"`
	Family    string `json:"family,omitempty"`
	CEID      string `json:"ceid,omitempty"`
}

func (r demographicsRequest) toService() orchestrator.DemographicsRequest {
	return orchestrator.DemographicsRequest{PatientID: r.PatientID, Family: r.Family, CEID: r.CEID}
}

type demographicsResponse struct {
	CorrelationID string                 `json:"correlation_id"`
	IsNew         bool                   `json:"is_new"`
	State         string                 `json:"state"`
	Demographics  *adapters.Demographics `json:"demographics"`
}

type structuredRecordRequest struct {
	PatientID     string `json:"patient_id,omitempty"`
	CEID          string `json:"ceid,omitempty"`
	Family        string `json:"family,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Organization  string `json:"organization,omitempty"`
}

func (r structuredRecordRequest) toService() orchestrator.StructuredRecordRequest {
	return orchestrator.StructuredRecordRequest{
		PatientID:     r.PatientID,
		CEID:          r.CEID,
		Family:        r.Family,
		CorrelationID: r.CorrelationID,
		Organization:  r.Organization,
	}
}

type structuredRecordResponse struct {
	CorrelationID string         `json:"correlation_id"`
	DocumentID    string         `json:"document_id"`
	CacheHit      bool           `json:"cache_hit"`
	SectionCount  int            `json:"section_count"`
	Warnings      []ccda.Warning `json:"warnings"`
	Document      string         `json:"document"`
}

type retrieveRequest struct {
	PatientID     string `json:"patient_id,omitempty"`
	CEID          string `json:"ceid,omitempty"`
	Family        string `json:"family,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (r retrieveRequest) toService() orchestrator.RetrieveRequest {
	return orchestrator.RetrieveRequest{
		PatientID:     r.PatientID,
		CEID:          r.CEID,
		Family:        r.Family,
		CorrelationID: r.CorrelationID,
	}
}

type retrieveResponse struct {
	CorrelationID string `json:"correlation_id"`
	DocumentID    string `json:"document_id"`
	Status        string `json:"status"`
	Regenerated   bool   `json:"regenerated"`
	Document      string `json:"document"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
