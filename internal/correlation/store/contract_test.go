package store_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"xhuma/internal/correlation/models"
	"xhuma/pkg/domain"
	"xhuma/pkg/platform/sentinel"
)

// mappingStore is the method set every backend implements.
type mappingStore interface {
	Get(ctx context.Context, patient domain.NHSNumber, family models.Family) (*models.Mapping, error)
	InsertIfAbsent(ctx context.Context, m *models.Mapping) (*models.Mapping, bool, error)
	Touch(ctx context.Context, patient domain.NHSNumber, family models.Family, at time.Time) error
	Advance(ctx context.Context, patient domain.NHSNumber, family models.Family, state models.State, organization string) (*models.Mapping, error)
}

// contractSuite runs the same behaviour checks against any backend. Embedding
// suites set newStore in SetupTest.
type contractSuite struct {
	suite.Suite
	newStore func() mappingStore
	store    mappingStore
}

var (
	patientA = domain.MustNHSNumber("9000000009")
	patientB = domain.MustNHSNumber("9449306753")
	t0       = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newMapping(patient domain.NHSNumber, family models.Family) *models.Mapping {
	return &models.Mapping{
		PatientID:     patient,
		Family:        family,
		CorrelationID: uuid.NewString(),
		FirstSeen:     t0,
		LastUsed:      t0,
		UseCount:      1,
		State:         models.StateDemographicsResolved,
	}
}

func (s *contractSuite) SetupTest() {
	s.store = s.newStore()
}

func (s *contractSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), patientA, models.DefaultFamily)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestInsertThenGet() {
	ctx := context.Background()
	m := newMapping(patientA, models.DefaultFamily)

	got, inserted, err := s.store.InsertIfAbsent(ctx, m)
	s.Require().NoError(err)
	s.True(inserted)
	s.Equal(m.CorrelationID, got.CorrelationID)

	fetched, err := s.store.Get(ctx, patientA, models.DefaultFamily)
	s.Require().NoError(err)
	s.Equal(m.CorrelationID, fetched.CorrelationID)
	s.Equal(int64(1), fetched.UseCount)
	s.Equal(models.StateDemographicsResolved, fetched.State)
	s.True(t0.Equal(fetched.FirstSeen))
}

func (s *contractSuite) TestInsertKeepsFirstWriter() {
	ctx := context.Background()
	first := newMapping(patientA, models.DefaultFamily)
	_, _, err := s.store.InsertIfAbsent(ctx, first)
	s.Require().NoError(err)

	got, inserted, err := s.store.InsertIfAbsent(ctx, newMapping(patientA, models.DefaultFamily))
	s.Require().NoError(err)
	s.False(inserted)
	s.Equal(first.CorrelationID, got.CorrelationID)
}

func (s *contractSuite) TestFamiliesAreIndependent() {
	ctx := context.Background()
	a, _, err := s.store.InsertIfAbsent(ctx, newMapping(patientA, "xca"))
	s.Require().NoError(err)
	b, _, err := s.store.InsertIfAbsent(ctx, newMapping(patientA, "urn:oid:2.16.840.1.113883.3.1"))
	s.Require().NoError(err)
	c, _, err := s.store.InsertIfAbsent(ctx, newMapping(patientB, "xca"))
	s.Require().NoError(err)

	s.NotEqual(a.CorrelationID, b.CorrelationID)
	s.NotEqual(a.CorrelationID, c.CorrelationID)
}

func (s *contractSuite) TestConcurrentInsertSingleWinner() {
	ctx := context.Background()
	const n = 16
	ids := make([]string, n)
	wins := make([]bool, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, inserted, err := s.store.InsertIfAbsent(ctx, newMapping(patientA, models.DefaultFamily))
			s.NoError(err)
			if got != nil {
				ids[i] = got.CorrelationID
			}
			wins[i] = inserted
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := range n {
		s.Equal(ids[0], ids[i])
		if wins[i] {
			winners++
		}
	}
	s.Equal(1, winners)
}

func (s *contractSuite) TestTouch() {
	ctx := context.Background()
	_, _, err := s.store.InsertIfAbsent(ctx, newMapping(patientA, models.DefaultFamily))
	s.Require().NoError(err)

	later := t0.Add(time.Minute)
	s.Require().NoError(s.store.Touch(ctx, patientA, models.DefaultFamily, later))
	s.Require().NoError(s.store.Touch(ctx, patientA, models.DefaultFamily, t0))

	got, err := s.store.Get(ctx, patientA, models.DefaultFamily)
	s.Require().NoError(err)
	s.Equal(int64(3), got.UseCount)
	s.True(later.Equal(got.LastUsed), "last_used never moves backwards")
}

func (s *contractSuite) TestTouchMissing() {
	err := s.store.Touch(context.Background(), patientB, models.DefaultFamily, t0)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Get(context.Background(), patientB, models.DefaultFamily)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestAdvanceIsMonotonic() {
	ctx := context.Background()
	_, _, err := s.store.InsertIfAbsent(ctx, newMapping(patientA, models.DefaultFamily))
	s.Require().NoError(err)

	got, err := s.store.Advance(ctx, patientA, models.DefaultFamily, models.StateDocumentReady, "A81001")
	s.Require().NoError(err)
	s.Equal(models.StateDocumentReady, got.State)
	s.Equal("A81001", got.Organization)

	got, err = s.store.Advance(ctx, patientA, models.DefaultFamily, models.StateRoutingResolved, "")
	s.Require().NoError(err)
	s.Equal(models.StateDocumentReady, got.State)
	s.Equal("A81001", got.Organization, "empty organization keeps the recorded one")
}

func (s *contractSuite) TestAdvanceMissing() {
	_, err := s.store.Advance(context.Background(), patientB, models.DefaultFamily, models.StateConfirmed, "")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
