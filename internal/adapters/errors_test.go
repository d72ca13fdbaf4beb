package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusNotFound, KindNotFound},
		{http.StatusRequestTimeout, KindUnavailable},
		{http.StatusTooManyRequests, KindUnavailable},
		{http.StatusBadGateway, KindUnavailable},
		{http.StatusServiceUnavailable, KindUnavailable},
		{http.StatusBadRequest, KindInvalidResponse},
		{http.StatusForbidden, KindInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromStatus("pds", tt.status)
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, "pds", err.Adapter)
		})
	}
	assert.Nil(t, FromStatus("pds", http.StatusOK))
}

func TestFromTransport(t *testing.T) {
	assert.Equal(t, KindTimeout, FromTransport("sds", fmt.Errorf("do: %w", context.DeadlineExceeded)).Kind)
	assert.Equal(t, KindUnavailable, FromTransport("sds", errors.New("connection refused")).Kind)

	existing := NewError("sds", KindNotFound, "no endpoint", nil)
	assert.Same(t, existing, FromTransport("sds", existing))
}

func TestRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError("a", KindTimeout, "x", nil)))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", NewError("a", KindUnavailable, "x", nil))))
	assert.False(t, IsRetryable(NewError("a", KindNotFound, "x", nil)))
	assert.False(t, IsRetryable(NewError("a", KindInvalidResponse, "x", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))

	kind, ok := KindOf(fmt.Errorf("w: %w", NewError("a", KindNotFound, "x", nil)))
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, kind)
	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorMessage(t *testing.T) {
	err := NewError("gpconnect", KindInvalidResponse, "decode bundle", errors.New("unexpected EOF"))
	assert.Equal(t, "gpconnect: invalid_response: decode bundle: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, err.Err)
}
