package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"xhuma/internal/adapters"
	"xhuma/internal/audit"
	dErrors "xhuma/pkg/domain-errors"
)

// Failure is the only error type a transaction returns. Err always carries a
// *domainerrors.Error with Code as its outermost code.
type Failure struct {
	Code          dErrors.Code
	CorrelationID string
	Retryable     bool
	Err           error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Code, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

var adapterCodes = map[adapters.Kind]dErrors.Code{
	adapters.KindNotFound:        dErrors.CodeUpstreamNotFound,
	adapters.KindTimeout:         dErrors.CodeUpstreamTimeout,
	adapters.KindUnavailable:     dErrors.CodeUpstreamUnavailable,
	adapters.KindInvalidResponse: dErrors.CodeInvalidResponse,
}

// newFailure maps err onto the error taxonomy.
func newFailure(err error, correlationID string) *Failure {
	if f, ok := AsFailure(err); ok {
		if f.CorrelationID == "" {
			f.CorrelationID = correlationID
		}
		return f
	}
	coded := classify(err)
	code := dErrors.CodeOf(coded)
	return &Failure{
		Code:          code,
		CorrelationID: correlationID,
		Retryable:     code.Retryable(),
		Err:           coded,
	}
}

func classify(err error) error {
	var ae *adapters.Error
	if errors.As(err, &ae) {
		code, known := adapterCodes[ae.Kind]
		if !known {
			code = dErrors.CodeInternal
		}
		return dErrors.Wrap(err, code, ae.Adapter+" "+string(ae.Kind))
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUpstreamTimeout, "transaction deadline exceeded")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeInternal, "request cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "unexpected failure")
	}
}

func outcomeFor(err error) (audit.Outcome, string) {
	if err == nil {
		return audit.OutcomeOK, ""
	}
	code := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeValidation, dErrors.CodeSequenceViolation, dErrors.CodeUnauthorized:
		return audit.OutcomeDeny, string(code)
	default:
		return audit.OutcomeFail, string(code)
	}
}
