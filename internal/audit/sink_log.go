package audit

import (
	"context"
	"log/slog"

	"xhuma/pkg/domain"
)

// LogSink writes records as structured log lines. The NHS number is
// redacted; subject_ref is the linkable identifier.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "audit")}
}

func (s *LogSink) Write(ctx context.Context, records []Record) error {
	for _, r := range records {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
			slog.String("audit_id", r.ID),
			slog.String("transaction", r.TransactionType.String()),
			slog.String("outcome", string(r.Outcome)),
			slog.String("error_kind", r.ErrorKind),
			slog.String("correlation_id", r.CorrelationID),
			slog.String("patient", redact(r.PatientID)),
			slog.String("subject_ref", r.SubjectRef),
			slog.String("request_id", r.RequestID),
			slog.String("client_ip", r.ClientIP),
			slog.String("device", r.Device),
			slog.Time("at", r.Timestamp),
		)
	}
	return nil
}

func redact(patientID string) string {
	if n, err := domain.ParseNHSNumber(patientID); err == nil {
		return n.Redacted()
	}
	if patientID == "" {
		return ""
	}
	return "***"
}
