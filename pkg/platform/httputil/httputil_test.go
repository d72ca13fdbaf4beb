package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "xhuma/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "redis pool exhausted"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing patient_id"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "missing patient_id" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("failure carries correlation id and retry hint", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteFailure(w, dErrors.New(dErrors.CodeUpstreamTimeout, "gp connect timed out"), "c-123")

		if w.Code != http.StatusGatewayTimeout {
			t.Fatalf("expected status %d, got %d", http.StatusGatewayTimeout, w.Code)
		}
		if got := w.Header().Get("X-Correlation-ID"); got != "c-123" {
			t.Fatalf("expected correlation header c-123, got %q", got)
		}

		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.CorrelationID != "c-123" || !body.Retryable || body.Error != "upstream_timeout" {
			t.Fatalf("unexpected body %+v", body)
		}
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:          http.StatusBadRequest,
		dErrors.CodeSequenceViolation:   http.StatusConflict,
		dErrors.CodeUpstreamNotFound:    http.StatusNotFound,
		dErrors.CodeUpstreamUnavailable: http.StatusServiceUnavailable,
		dErrors.CodeRegistryUnavailable: http.StatusServiceUnavailable,
		dErrors.CodeMalformedBundle:     http.StatusBadGateway,
		dErrors.CodeInternal:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}
