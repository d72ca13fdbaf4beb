// Package audit records one append-only entry per transaction. Publish never
// blocks the caller: records go into a bounded buffer that a worker drains
// into the configured sink in batches. A full buffer drops the record and
// counts it.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"xhuma/pkg/requestcontext"
)

// Sink persists a batch of records.
type Sink interface {
	Write(ctx context.Context, records []Record) error
}

type Publisher struct {
	sink          Sink
	buffer        *ringBuffer
	notify        chan struct{}
	pseudonyms    *Pseudonymizer
	logger        *slog.Logger
	metrics       *Metrics
	batchSize     int
	flushInterval time.Duration
	writeTimeout  time.Duration
	newID         func() string
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithPseudonymizer enables subject_ref on every record.
func WithPseudonymizer(ps *Pseudonymizer) Option {
	return func(p *Publisher) { p.pseudonyms = ps }
}

func WithBufferSize(n int) Option {
	return func(p *Publisher) { p.buffer = newRingBuffer(n) }
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(p *Publisher) { p.newID = fn }
}

func NewPublisher(sink Sink, opts ...Option) (*Publisher, error) {
	if sink == nil {
		return nil, errors.New("audit sink is required")
	}
	p := &Publisher{
		sink:          sink,
		buffer:        newRingBuffer(1024),
		notify:        make(chan struct{}, 1),
		logger:        slog.Default(),
		batchSize:     50,
		flushInterval: 2 * time.Second,
		writeTimeout:  5 * time.Second,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish stamps r with request metadata and queues it.
func (p *Publisher) Publish(ctx context.Context, r Record) {
	if r.ID == "" {
		r.ID = p.newID()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = requestcontext.Now(ctx)
	}
	r.Timestamp = r.Timestamp.UTC()
	if r.RequestID == "" {
		r.RequestID = requestcontext.RequestID(ctx)
	}
	if r.ClientIP == "" {
		r.ClientIP = requestcontext.ClientIP(ctx)
	}
	if r.UserAgent == "" {
		r.UserAgent = requestcontext.UserAgent(ctx)
	}
	if r.Device == "" {
		r.Device = requestcontext.Device(ctx)
	}
	if r.SubjectRef == "" {
		r.SubjectRef = p.pseudonyms.Ref(r.PatientID)
	}

	if !p.buffer.tryEnqueue(r) {
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
		p.logger.WarnContext(ctx, "audit buffer full, record dropped",
			"transaction", r.TransactionType,
			"outcome", r.Outcome,
		)
		return
	}
	p.observeDepth()
	if p.buffer.len() >= p.batchSize {
		select {
		case p.notify <- struct{}{}:
		default:
		}
	}
}

// Pending reports the number of queued records.
func (p *Publisher) Pending() int { return p.buffer.len() }

// Flush writes everything queued so far.
func (p *Publisher) Flush(ctx context.Context) {
	for {
		batch := p.buffer.dequeueBatch(p.batchSize)
		if len(batch) == 0 {
			p.observeDepth()
			return
		}
		p.write(ctx, batch)
	}
}

func (p *Publisher) write(ctx context.Context, batch []Record) {
	wctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if err := p.sink.Write(wctx, batch); err != nil {
		if p.metrics != nil {
			p.metrics.Failed.Add(float64(len(batch)))
		}
		p.logger.ErrorContext(ctx, "audit sink write failed", "records", len(batch), "error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.Published.Add(float64(len(batch)))
	}
}

func (p *Publisher) observeDepth() {
	if p.metrics != nil {
		p.metrics.Pending.Set(float64(p.buffer.len()))
	}
}
