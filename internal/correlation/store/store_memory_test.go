package store_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"xhuma/internal/correlation/store"
)

type InMemoryStoreSuite struct {
	contractSuite
}

func TestInMemoryStoreSuite(t *testing.T) {
	s := new(InMemoryStoreSuite)
	s.newStore = func() mappingStore { return store.NewInMemoryStore() }
	suite.Run(t, s)
}

func (s *InMemoryStoreSuite) TestReturnsCopies() {
	m := newMapping(patientA, "xca")
	got, _, err := s.store.InsertIfAbsent(s.T().Context(), m)
	s.Require().NoError(err)
	got.State = 99

	fetched, err := s.store.Get(s.T().Context(), patientA, "xca")
	s.Require().NoError(err)
	s.NotEqual(99, int(fetched.State))
}
