package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"xhuma/internal/correlation/models"
	"xhuma/pkg/domain"
	"xhuma/pkg/platform/sentinel"
)

//go:embed schema.sql
var Schema string

const mappingColumns = `correlation_id, first_seen, last_used, use_count, state, organization`

// PostgresStore persists mappings in the correlation_mappings table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the mapping table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate correlation schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner, patient domain.NHSNumber, family models.Family) (*models.Mapping, error) {
	var (
		m     = models.Mapping{PatientID: patient, Family: family}
		state int16
	)
	if err := row.Scan(&m.CorrelationID, &m.FirstSeen, &m.LastUsed, &m.UseCount, &state, &m.Organization); err != nil {
		return nil, err
	}
	m.State = models.State(state)
	m.FirstSeen = m.FirstSeen.UTC()
	m.LastUsed = m.LastUsed.UTC()
	return &m, nil
}

func (s *PostgresStore) Get(ctx context.Context, patient domain.NHSNumber, family models.Family) (*models.Mapping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mappingColumns+` FROM correlation_mappings WHERE patient_id = $1 AND family = $2`,
		patient.String(), string(family))
	m, err := scanMapping(row, patient, family)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get correlation: %w", err)
	}
	return m, nil
}

// InsertIfAbsent relies on the primary key: a conflicting insert returns no
// row and the winner is read back.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, m *models.Mapping) (*models.Mapping, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO correlation_mappings (patient_id, family, correlation_id, first_seen, last_used, use_count, state, organization)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7)
		ON CONFLICT (patient_id, family) DO NOTHING
		RETURNING `+mappingColumns,
		m.PatientID.String(), string(m.Family), m.CorrelationID, m.FirstSeen, m.UseCount, int16(m.State), m.Organization)
	inserted, err := scanMapping(row, m.PatientID, m.Family)
	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert correlation: %w", err)
	}
	existing, err := s.Get(ctx, m.PatientID, m.Family)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PostgresStore) Touch(ctx context.Context, patient domain.NHSNumber, family models.Family, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE correlation_mappings
		SET use_count = use_count + 1, last_used = GREATEST(last_used, $3)
		WHERE patient_id = $1 AND family = $2`,
		patient.String(), string(family), at)
	if err != nil {
		return fmt.Errorf("touch correlation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch correlation: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Advance(ctx context.Context, patient domain.NHSNumber, family models.Family, state models.State, organization string) (*models.Mapping, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE correlation_mappings
		SET state = GREATEST(state, $3),
		    organization = COALESCE(NULLIF($4, ''), organization)
		WHERE patient_id = $1 AND family = $2
		RETURNING `+mappingColumns,
		patient.String(), string(family), int16(state), organization)
	m, err := scanMapping(row, patient, family)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("advance correlation: %w", err)
	}
	return m, nil
}
