// Package orchestrator runs the ITI-47, ITI-38 and ITI-39 transactions. It
// enforces their order through the correlation registry, memoises routing and
// documents through the cache and reports every outcome as a Failure.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xhuma/internal/adapters"
	"xhuma/internal/audit"
	"xhuma/internal/cache"
	"xhuma/internal/ccda"
	"xhuma/internal/correlation/models"
	"xhuma/internal/fhir"
	"xhuma/pkg/domain"
	dErrors "xhuma/pkg/domain-errors"
	"xhuma/pkg/requestcontext"
)

const (
	defaultRoutingTTL         = 2 * time.Hour
	defaultDocumentTTL        = 4 * time.Hour
	defaultTransactionTimeout = 20 * time.Second
)

// Ports are the collaborators every Service needs.
type Ports struct {
	Demographics DemographicsLookup
	Routing      RoutingLookup
	Records      RecordFetcher
	Registry     Registry
	Cache        *cache.Cache
}

type Service struct {
	demographics DemographicsLookup
	routing      RoutingLookup
	records      RecordFetcher
	registry     Registry
	cache        *cache.Cache

	convert   Converter
	runner    *adapters.Runner
	publisher AuditPublisher
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer

	routingTTL    time.Duration
	documentTTL   time.Duration
	txTimeout     time.Duration
	defaultFamily models.Family
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRunner sets the retry runner used for every adapter call.
func WithRunner(r *adapters.Runner) Option {
	return func(s *Service) { s.runner = r }
}

func WithConverter(c Converter) Option {
	return func(s *Service) { s.convert = c }
}

// WithTTLs sets the routing (and CEID alias) and document lifetimes.
func WithTTLs(routing, document time.Duration) Option {
	return func(s *Service) {
		if routing > 0 {
			s.routingTTL = routing
		}
		if document > 0 {
			s.documentTTL = document
		}
	}
}

// WithDefaultFamily sets the family used when a request names none.
func WithDefaultFamily(f string) Option {
	return func(s *Service) {
		if f = strings.TrimSpace(f); f != "" {
			s.defaultFamily = models.Family(f)
		}
	}
}

// WithTransactionTimeout bounds one whole transaction.
func WithTransactionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

func New(p Ports, opts ...Option) (*Service, error) {
	switch {
	case p.Demographics == nil:
		return nil, errors.New("demographics lookup is required")
	case p.Routing == nil:
		return nil, errors.New("routing lookup is required")
	case p.Records == nil:
		return nil, errors.New("record fetcher is required")
	case p.Registry == nil:
		return nil, errors.New("correlation registry is required")
	case p.Cache == nil:
		return nil, errors.New("cache is required")
	}
	s := &Service{
		demographics:  p.Demographics,
		routing:       p.Routing,
		records:       p.Records,
		registry:      p.Registry,
		cache:         p.Cache,
		convert:       ccda.Convert,
		runner:        adapters.NewRunner(adapters.DefaultPolicy()),
		logger:        slog.Default(),
		tracer:        otel.Tracer("xhuma/orchestrator"),
		routingTTL:    defaultRoutingTTL,
		documentTTL:   defaultDocumentTTL,
		txTimeout:     defaultTransactionTimeout,
		defaultFamily: models.DefaultFamily,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// txn carries the bookkeeping shared by every transaction: deadline, span,
// audit record and metrics.
type txn struct {
	s             *Service
	typ           domain.TransactionType
	start         time.Time
	span          trace.Span
	cancel        context.CancelFunc
	patient       domain.NHSNumber
	correlationID string
}

func (s *Service) begin(ctx context.Context, typ domain.TransactionType) (context.Context, *txn) {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	ctx, span := s.tracer.Start(ctx, "transaction "+string(typ),
		trace.WithAttributes(attribute.String("transaction", string(typ))),
	)
	return ctx, &txn{s: s, typ: typ, start: time.Now(), span: span, cancel: cancel}
}

func (t *txn) setPatient(p domain.NHSNumber) {
	t.patient = p
}

// bind attaches the mapping's correlation id to the transaction and ctx.
func (t *txn) bind(ctx context.Context, m *models.Mapping) context.Context {
	t.correlationID = m.CorrelationID
	t.span.SetAttributes(attribute.String("correlation_id", m.CorrelationID))
	return requestcontext.WithCorrelationID(ctx, m.CorrelationID)
}

// finish converts err into a *Failure and emits the audit record, metrics and
// log line. It must run exactly once per transaction.
func (t *txn) finish(ctx context.Context, err error) error {
	defer t.cancel()
	defer t.span.End()

	var failure *Failure
	if err != nil {
		failure = newFailure(err, t.correlationID)
		err = failure
		t.span.RecordError(failure.Err)
		t.span.SetStatus(codes.Error, string(failure.Code))
	}
	outcome, kind := outcomeFor(err)

	if t.s.publisher != nil {
		t.s.publisher.Publish(ctx, audit.Record{
			CorrelationID:   t.correlationID,
			PatientID:       t.patient.String(),
			TransactionType: t.typ,
			Outcome:         outcome,
			ErrorKind:       kind,
		})
	}
	if t.s.metrics != nil {
		label := kind
		if label == "" {
			label = "ok"
		}
		t.s.metrics.Transactions.WithLabelValues(string(t.typ), label).Inc()
		t.s.metrics.Duration.WithLabelValues(string(t.typ)).Observe(time.Since(t.start).Seconds())
	}

	attrs := []any{
		"transaction", string(t.typ),
		"patient_id", t.patient.Redacted(),
		"duration_ms", time.Since(t.start).Milliseconds(),
	}
	if failure == nil {
		t.s.logger.InfoContext(ctx, "transaction completed", attrs...)
		return nil
	}
	attrs = append(attrs, "code", string(failure.Code), "error", failure.Err)
	if outcome == audit.OutcomeDeny {
		t.s.logger.WarnContext(ctx, "transaction refused", attrs...)
	} else {
		t.s.logger.ErrorContext(ctx, "transaction failed", attrs...)
	}
	return failure
}

// resolvePatient accepts an NHS number or a CEID registered by an earlier
// demographics query.
func (s *Service) resolvePatient(ctx context.Context, patientID, ceid string) (domain.NHSNumber, error) {
	if strings.TrimSpace(patientID) != "" {
		return parsePatient(patientID)
	}
	ceid = strings.TrimSpace(ceid)
	if ceid == "" {
		return domain.NHSNumber{}, dErrors.New(dErrors.CodeValidation, "patient_id or ceid is required")
	}
	raw, ok := cache.GetJSON[string](ctx, s.cache, cache.AliasKey(ceid))
	if !ok {
		return domain.NHSNumber{}, dErrors.New(dErrors.CodeSequenceViolation, "ceid is not known; run a demographics query first")
	}
	return parsePatient(raw)
}

func parsePatient(raw string) (domain.NHSNumber, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.NHSNumber{}, dErrors.New(dErrors.CodeValidation, "patient_id is required")
	}
	nhs, err := domain.ParseNHSNumber(raw)
	if err != nil {
		return domain.NHSNumber{}, dErrors.Wrap(err, dErrors.CodeValidation, "patient_id is not a valid NHS number")
	}
	return nhs, nil
}

func (s *Service) familyOf(raw string) models.Family {
	if strings.TrimSpace(raw) == "" {
		return s.defaultFamily
	}
	return models.NormalizeFamily(raw)
}

func checkCorrelation(supplied string, m *models.Mapping) error {
	supplied = strings.TrimSpace(supplied)
	if supplied != "" && supplied != m.CorrelationID {
		return dErrors.New(dErrors.CodeValidation, "correlation_id does not match the patient's transaction family")
	}
	return nil
}

// route returns the cached or freshly resolved endpoint for organization.
func (s *Service) route(ctx context.Context, nhs domain.NHSNumber, organization string) (adapters.RoutingInfo, error) {
	info, _, err := cache.GetOrComputeJSON(ctx, s.cache, cache.RoutingKey(nhs, organization), s.routingTTL,
		func(ctx context.Context) (adapters.RoutingInfo, error) {
			r, _, err := adapters.Run(ctx, s.runner, "sds", func(ctx context.Context) (*adapters.RoutingInfo, error) {
				return s.routing.Lookup(ctx, organization)
			})
			if err != nil {
				return adapters.RoutingInfo{}, err
			}
			return *r, nil
		})
	return info, err
}

// document returns the cached or freshly converted document for nhs. Concurrent
// callers share one fetch and conversion; a failed run stores nothing.
func (s *Service) document(ctx context.Context, nhs domain.NHSNumber, route adapters.RoutingInfo) (ccda.Document, bool, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, cache.DocumentKey(nhs), s.documentTTL,
		func(ctx context.Context) (ccda.Document, error) {
			bundle, _, err := adapters.Run(ctx, s.runner, "gpconnect", func(ctx context.Context) (*fhir.Bundle, error) {
				return s.records.FetchStructuredRecord(ctx, nhs, &route)
			})
			if err != nil {
				return ccda.Document{}, err
			}
			doc, err := s.convert(bundle)
			if err != nil {
				return ccda.Document{}, err
			}
			for _, w := range doc.Warnings {
				s.logger.WarnContext(ctx, "section skipped", "section", w.Section, "reason", w.Reason)
			}
			return *doc, nil
		})
}
