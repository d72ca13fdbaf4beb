package orchestrator

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"xhuma/internal/adapters"
	"xhuma/internal/audit"
	"xhuma/internal/ccda"
	"xhuma/internal/correlation"
	"xhuma/internal/correlation/models"
	"xhuma/internal/fhir"
	"xhuma/pkg/domain"
)

// DemographicsLookup resolves a patient against the national demographics
// service. Implemented by pds.Client.
type DemographicsLookup interface {
	Lookup(ctx context.Context, nhs domain.NHSNumber) (*adapters.Demographics, error)
}

// RoutingLookup resolves the GP Connect endpoint of an organization.
// Implemented by sds.Client.
type RoutingLookup interface {
	Lookup(ctx context.Context, organization string) (*adapters.RoutingInfo, error)
}

// RecordFetcher retrieves the structured record bundle. Implemented by
// gpconnect.Client.
type RecordFetcher interface {
	FetchStructuredRecord(ctx context.Context, nhs domain.NHSNumber, route *adapters.RoutingInfo) (*fhir.Bundle, error)
}

// Registry is the correlation registry. Implemented by correlation.Registry.
type Registry interface {
	Resolve(ctx context.Context, patient domain.NHSNumber, family models.Family) (correlation.Resolution, error)
	ResolveExisting(ctx context.Context, patient domain.NHSNumber, family models.Family) (*models.Mapping, error)
	Advance(ctx context.Context, patient domain.NHSNumber, family models.Family, state models.State, organization string) (*models.Mapping, error)
}

// AuditPublisher accepts one record per transaction without blocking.
// Implemented by audit.Publisher.
type AuditPublisher interface {
	Publish(ctx context.Context, r audit.Record)
}

// Converter turns a bundle into a document. ccda.Convert by default.
type Converter func(bundle *fhir.Bundle) (*ccda.Document, error)
