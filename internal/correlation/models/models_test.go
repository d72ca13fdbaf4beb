package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xhuma/pkg/domain"
)

func TestNormalizeFamily(t *testing.T) {
	assert.Equal(t, DefaultFamily, NormalizeFamily(""))
	assert.Equal(t, DefaultFamily, NormalizeFamily("   "))
	assert.Equal(t, Family("urn:oid:1.2.3"), NormalizeFamily(" urn:oid:1.2.3 "))
}

func TestStateOrdering(t *testing.T) {
	assert.False(t, StateNotStarted.IsValid())
	assert.True(t, StateDemographicsResolved.IsValid())
	assert.True(t, StateConfirmed.IsValid())
	assert.False(t, State(9).IsValid())

	assert.True(t, StateConfirmed.AtLeast(StateDocumentReady))
	assert.False(t, StateRoutingResolved.AtLeast(StateDocumentReady))
	assert.Equal(t, "document_ready", StateDocumentReady.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "9000000009:xca", Key(domain.MustNHSNumber("9000000009"), DefaultFamily))
}
