package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/lib/pq"
)

//go:embed schema.sql
var Schema string

// PostgresSink appends batches to audit_transactions.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

// Write inserts the batch in one round trip. Replayed ids are ignored.
func (s *PostgresSink) Write(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	cols := make([][]string, 12)
	for i := range cols {
		cols[i] = make([]string, 0, len(records))
	}
	for _, r := range records {
		for i, v := range []string{
			r.ID, r.CorrelationID, r.PatientID, r.SubjectRef,
			r.TransactionType.String(), string(r.Outcome), r.ErrorKind,
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.RequestID, r.ClientIP, r.UserAgent, r.Device,
		} {
			cols[i] = append(cols[i], v)
		}
	}

	query := `
		INSERT INTO audit_transactions (
			id, correlation_id, patient_id, subject_ref, transaction_type,
			outcome, error_kind, occurred_at, request_id, client_ip, user_agent, device
		)
		SELECT t.id::uuid, t.correlation_id, t.patient_id, t.subject_ref, t.transaction_type,
			t.outcome, t.error_kind, t.occurred_at::timestamptz, t.request_id, t.client_ip, t.user_agent, t.device
		FROM unnest(
			$1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[],
			$7::text[], $8::text[], $9::text[], $10::text[], $11::text[], $12::text[]
		) AS t(id, correlation_id, patient_id, subject_ref, transaction_type,
			outcome, error_kind, occurred_at, request_id, client_ip, user_agent, device)
		ON CONFLICT (id) DO NOTHING
	`
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = pq.Array(c)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit batch: %w", err)
	}
	return nil
}
