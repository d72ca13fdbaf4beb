//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"xhuma/pkg/domain"
	"xhuma/pkg/testutil/containers"
)

type PostgresSinkSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	sink     *PostgresSink
}

func TestPostgresSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSinkSuite))
}

func (s *PostgresSinkSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.sink = NewPostgresSink(s.postgres.DB)
	s.Require().NoError(s.sink.Migrate(context.Background()))
}

func (s *PostgresSinkSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_transactions"))
}

func (s *PostgresSinkSuite) TestBatchInsertIsIdempotent() {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := []Record{
		{ID: "6f1d2c3b-0000-4000-8000-000000000001", CorrelationID: "c-1", PatientID: "9000000009",
			TransactionType: domain.TransactionDemographics, Outcome: OutcomeOK, Timestamp: at},
		{ID: "6f1d2c3b-0000-4000-8000-000000000002", CorrelationID: "c-1", PatientID: "9000000009",
			TransactionType: domain.TransactionStructuredRecord, Outcome: OutcomeFail,
			ErrorKind: "upstream_timeout", Timestamp: at.Add(time.Second)},
	}
	s.Require().NoError(s.sink.Write(ctx, batch))
	s.Require().NoError(s.sink.Write(ctx, batch[:1]))

	var count int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx, `SELECT count(*) FROM audit_transactions`).Scan(&count))
	s.Equal(2, count)

	var kind string
	var occurred time.Time
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT error_kind, occurred_at FROM audit_transactions WHERE transaction_type = 'ITI-38'`,
	).Scan(&kind, &occurred))
	s.Equal("upstream_timeout", kind)
	s.True(occurred.Equal(at.Add(time.Second)))
}
