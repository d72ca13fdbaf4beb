// Package httputil writes JSON responses and the shared failure envelope.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "xhuma/pkg/domain-errors"
)

// ErrorResponse is the failure envelope every endpoint returns.
type ErrorResponse struct {
	Error         string `json:"error"`
	Description   string `json:"error_description,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the failure envelope for err.
func WriteError(w http.ResponseWriter, err error) {
	WriteFailure(w, err, "")
}

// WriteFailure writes the failure envelope for err, carrying the correlation
// identifier when one was resolved before the failure.
func WriteFailure(w http.ResponseWriter, err error, correlationID string) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{
		Error:         string(code),
		CorrelationID: correlationID,
		Retryable:     code.Retryable(),
	}
	if code != dErrors.CodeInternal {
		resp.Description = dErrors.MessageOf(err)
	}
	if correlationID != "" {
		w.Header().Set("X-Correlation-ID", correlationID)
	}
	WriteJSON(w, StatusFor(code), resp)
}

// StatusFor maps a domain code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeSequenceViolation:
		return http.StatusConflict
	case dErrors.CodeUpstreamNotFound:
		return http.StatusNotFound
	case dErrors.CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUpstreamUnavailable, dErrors.CodeRegistryUnavailable, dErrors.CodeCacheUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeInvalidResponse, dErrors.CodeMalformedBundle:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
