package orchestrator

import (
	"context"
	"errors"
	"strings"

	"xhuma/internal/adapters"
	"xhuma/internal/cache"
	"xhuma/internal/ccda"
	"xhuma/internal/correlation/models"
	"xhuma/pkg/domain"
	dErrors "xhuma/pkg/domain-errors"
	"xhuma/pkg/platform/sentinel"
)

// Demographics runs ITI-47. The lookup is always live; it is the only
// transaction that creates a correlation mapping.
func (s *Service) Demographics(ctx context.Context, req DemographicsRequest) (res *DemographicsResult, err error) {
	ctx, t := s.begin(ctx, domain.TransactionDemographics)
	defer func() {
		if err = t.finish(ctx, err); err != nil {
			res = nil
		}
	}()

	nhs, err := parsePatient(req.PatientID)
	if err != nil {
		return nil, err
	}
	t.setPatient(nhs)
	family := s.familyOf(req.Family)

	demo, _, err := adapters.Run(ctx, s.runner, "pds", func(ctx context.Context) (*adapters.Demographics, error) {
		return s.demographics.Lookup(ctx, nhs)
	})
	if err != nil {
		return nil, err
	}

	resolution, err := s.registry.Resolve(ctx, nhs, family)
	if err != nil {
		return nil, err
	}
	ctx = t.bind(ctx, resolution.Mapping)

	m, err := s.registry.Advance(ctx, nhs, family, models.StateDemographicsResolved, demo.GPODSCode)
	if err != nil {
		return nil, err
	}

	if ceid := strings.TrimSpace(req.CEID); ceid != "" {
		if err := cache.SetJSON(ctx, s.cache, cache.AliasKey(ceid), nhs.String(), s.routingTTL); err != nil {
			s.logger.WarnContext(ctx, "ceid alias not stored", "error", err)
		}
	}

	return &DemographicsResult{
		CorrelationID: m.CorrelationID,
		IsNew:         resolution.IsNew,
		State:         m.State,
		Demographics:  demo,
	}, nil
}

// StructuredRecord runs ITI-38: return the cached document, or resolve
// routing, fetch and convert the record. It requires a prior ITI-47 for the
// same family.
func (s *Service) StructuredRecord(ctx context.Context, req StructuredRecordRequest) (res *StructuredRecordResult, err error) {
	ctx, t := s.begin(ctx, domain.TransactionStructuredRecord)
	defer func() {
		if err = t.finish(ctx, err); err != nil {
			res = nil
		}
	}()

	nhs, err := s.resolvePatient(ctx, req.PatientID, req.CEID)
	if err != nil {
		return nil, err
	}
	t.setPatient(nhs)
	family := s.familyOf(req.Family)

	m, err := s.existing(ctx, nhs, family, "structured record query requires a prior demographics query")
	if err != nil {
		return nil, err
	}
	ctx = t.bind(ctx, m)
	if err := checkCorrelation(req.CorrelationID, m); err != nil {
		return nil, err
	}

	organization := strings.TrimSpace(req.Organization)
	if organization == "" {
		organization = m.Organization
	}
	if organization == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "organization is unknown for this patient")
	}

	// A cached document is served without a routing lookup; routing entries
	// expire before documents do.
	doc, hit := cache.GetJSON[ccda.Document](ctx, s.cache, cache.DocumentKey(nhs))
	var route adapters.RoutingInfo
	if !hit {
		if route, err = s.route(ctx, nhs, organization); err != nil {
			return nil, err
		}
	}
	if _, err := s.registry.Advance(ctx, nhs, family, models.StateRoutingResolved, organization); err != nil {
		return nil, err
	}
	if !hit {
		if doc, hit, err = s.document(ctx, nhs, route); err != nil {
			return nil, err
		}
	}
	if _, err := s.registry.Advance(ctx, nhs, family, models.StateDocumentReady, ""); err != nil {
		return nil, err
	}

	return &StructuredRecordResult{
		CorrelationID: m.CorrelationID,
		CacheHit:      hit,
		Document:      &doc,
	}, nil
}

// Retrieve runs ITI-39. A document that has expired from the cache is rebuilt
// through the same path ITI-38 uses.
func (s *Service) Retrieve(ctx context.Context, req RetrieveRequest) (res *RetrieveResult, err error) {
	ctx, t := s.begin(ctx, domain.TransactionRetrieve)
	defer func() {
		if err = t.finish(ctx, err); err != nil {
			res = nil
		}
	}()

	nhs, err := s.resolvePatient(ctx, req.PatientID, req.CEID)
	if err != nil {
		return nil, err
	}
	t.setPatient(nhs)
	family := s.familyOf(req.Family)

	m, err := s.existing(ctx, nhs, family, "retrieve requires a prior demographics query")
	if err != nil {
		return nil, err
	}
	ctx = t.bind(ctx, m)
	if !m.State.AtLeast(models.StateDocumentReady) {
		return nil, dErrors.New(dErrors.CodeSequenceViolation, "retrieve requires a prior structured record query")
	}
	if err := checkCorrelation(req.CorrelationID, m); err != nil {
		return nil, err
	}

	doc, regenerated, err := s.retrieveDocument(ctx, nhs, m)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.Advance(ctx, nhs, family, models.StateConfirmed, ""); err != nil {
		return nil, err
	}

	return &RetrieveResult{
		CorrelationID: m.CorrelationID,
		Regenerated:   regenerated,
		Document:      &doc,
	}, nil
}

func (s *Service) retrieveDocument(ctx context.Context, nhs domain.NHSNumber, m *models.Mapping) (ccda.Document, bool, error) {
	if doc, ok := cache.GetJSON[ccda.Document](ctx, s.cache, cache.DocumentKey(nhs)); ok {
		return doc, false, nil
	}
	if m.Organization == "" {
		return ccda.Document{}, false, dErrors.New(dErrors.CodeInternal, "document expired and no organization is recorded")
	}
	route, err := s.route(ctx, nhs, m.Organization)
	if err != nil {
		return ccda.Document{}, false, err
	}
	doc, hit, err := s.document(ctx, nhs, route)
	if err != nil {
		return ccda.Document{}, false, err
	}
	if !hit && s.metrics != nil {
		s.metrics.Regenerated.Inc()
	}
	return doc, !hit, nil
}

// existing loads the mapping, reporting a missing one as a sequence violation.
func (s *Service) existing(ctx context.Context, nhs domain.NHSNumber, family models.Family, msg string) (*models.Mapping, error) {
	m, err := s.registry.ResolveExisting(ctx, nhs, family)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeSequenceViolation, msg)
	}
	if err != nil {
		return nil, err
	}
	if !m.State.AtLeast(models.StateDemographicsResolved) {
		return nil, dErrors.New(dErrors.CodeSequenceViolation, msg)
	}
	return m, nil
}
