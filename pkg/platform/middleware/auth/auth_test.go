package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"xhuma/pkg/requestcontext"
)

type stubVerifier struct{}

func (stubVerifier) VerifySubject(token string) (string, error) {
	if token == "good" {
		return "ehr-1", nil
	}
	return "", errors.New("bad token")
}

func TestRequireBearer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var subject string
	h := RequireBearer(stubVerifier{}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = requestcontext.Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/iti47", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/iti47", nil)
		r.Header.Set("Authorization", "Bearer nope")
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("valid token sets subject", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/iti47", nil)
		r.Header.Set("Authorization", "Bearer good")
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "ehr-1", subject)
	})

	t.Run("nil verifier passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		open := RequireBearer(nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		open.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/iti47", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
