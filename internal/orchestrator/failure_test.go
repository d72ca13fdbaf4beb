package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"xhuma/internal/adapters"
	"xhuma/internal/audit"
	dErrors "xhuma/pkg/domain-errors"
)

func TestNewFailure(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      dErrors.Code
		retryable bool
	}{
		{"adapter not found", adapters.NewError("pds", adapters.KindNotFound, "no patient", nil), dErrors.CodeUpstreamNotFound, false},
		{"adapter timeout", adapters.NewError("sds", adapters.KindTimeout, "slow", nil), dErrors.CodeUpstreamTimeout, true},
		{"adapter unavailable", adapters.NewError("gpconnect", adapters.KindUnavailable, "503", nil), dErrors.CodeUpstreamUnavailable, true},
		{"adapter invalid response", adapters.NewError("gpconnect", adapters.KindInvalidResponse, "bad json", nil), dErrors.CodeInvalidResponse, false},
		{"wrapped adapter error", fmt.Errorf("route: %w", adapters.NewError("sds", adapters.KindNotFound, "none", nil)), dErrors.CodeUpstreamNotFound, false},
		{"domain error keeps code", dErrors.New(dErrors.CodeSequenceViolation, "out of order"), dErrors.CodeSequenceViolation, false},
		{"registry outage", dErrors.New(dErrors.CodeRegistryUnavailable, "down"), dErrors.CodeRegistryUnavailable, true},
		{"deadline", context.DeadlineExceeded, dErrors.CodeUpstreamTimeout, true},
		{"cancelled", context.Canceled, dErrors.CodeInternal, false},
		{"unknown", errors.New("boom"), dErrors.CodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFailure(tt.err, "corr-1")
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, tt.retryable, f.Retryable)
			assert.Equal(t, "corr-1", f.CorrelationID)
			assert.Equal(t, tt.code, dErrors.CodeOf(f))
			assert.ErrorIs(t, f, tt.err)
		})
	}
}

func TestNewFailureKeepsExistingFailure(t *testing.T) {
	inner := &Failure{Code: dErrors.CodeValidation, Err: dErrors.New(dErrors.CodeValidation, "bad")}
	f := newFailure(fmt.Errorf("outer: %w", inner), "corr-2")
	assert.Same(t, inner, f)
	assert.Equal(t, "corr-2", f.CorrelationID)
}

func TestOutcomeFor(t *testing.T) {
	outcome, kind := outcomeFor(nil)
	assert.Equal(t, audit.OutcomeOK, outcome)
	assert.Empty(t, kind)

	outcome, kind = outcomeFor(dErrors.New(dErrors.CodeSequenceViolation, "x"))
	assert.Equal(t, audit.OutcomeDeny, outcome)
	assert.Equal(t, "sequence_violation", kind)

	outcome, _ = outcomeFor(dErrors.New(dErrors.CodeUpstreamTimeout, "x"))
	assert.Equal(t, audit.OutcomeFail, outcome)
}
