package pds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xhuma/internal/adapters"
	jwttoken "xhuma/internal/jwt_token"
	"xhuma/pkg/domain"
	"xhuma/pkg/requestcontext"
)

const patientJSON = `{
  "resourceType": "Patient",
  "id": "9000000009",
  "meta": {"versionId": "2"},
  "identifier": [{"system": "https://fhir.nhs.uk/Id/nhs-number", "value": "9000000009"}],
  "name": [
    {"use": "official", "family": "Smythe", "given": ["Janet"]},
    {"use": "usual", "family": "Smith", "given": ["Jane", "Alice"], "prefix": ["Mrs"]}
  ],
  "gender": "female",
  "birthDate": "2010-10-22",
  "address": [
    {"use": "temp", "line": ["Flat 2"], "postalCode": "LS2 1AA"},
    {"use": "home", "line": ["1 Trevelyan Square", "Boar Lane", "Leeds"], "postalCode": "LS1 6AE"}
  ],
  "generalPractitioner": [{"type": "Organization", "identifier": {"system": "https://fhir.nhs.uk/Id/ods-organization-code", "value": "Y12345"}}]
}`

type fakePDS struct {
	tokenCalls atomic.Int32
	server     *httptest.Server
	mu         sync.Mutex
	lastHeader http.Header
	patient    string
	status     int
}

func newFakePDS(t *testing.T) *fakePDS {
	f := &fakePDS{patient: patientJSON, status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.NotEmpty(t, r.PostForm.Get("client_assertion"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","expires_in":"599","token_type":"Bearer"}`))
	})
	mux.HandleFunc("GET /personal-demographics/FHIR/R4/Patient/{nhs}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastHeader = r.Header.Clone()
		f.mu.Unlock()
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.patient))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newClient(t *testing.T, f *fakePDS, opts ...Option) *Client {
	signer, err := jwttoken.NewHMAC("test-secret", "", "")
	require.NoError(t, err)
	return New(f.server.URL, f.server.URL+"/oauth2/token", "client-1", signer, opts...)
}

func TestLookupParsesDemographics(t *testing.T) {
	f := newFakePDS(t)
	c := newClient(t, f)

	ctx := requestcontext.WithCorrelationID(context.Background(), "corr-1")
	d, err := c.Lookup(ctx, domain.MustNHSNumber("9000000009"))
	require.NoError(t, err)

	assert.Equal(t, "9000000009", d.NHSNumber)
	assert.Equal(t, "Smith", d.Family)
	assert.Equal(t, []string{"Jane", "Alice"}, d.Given)
	assert.Equal(t, "Mrs", d.Prefix)
	assert.Equal(t, "female", d.Gender)
	assert.Equal(t, "2010-10-22", d.BirthDate)
	assert.Equal(t, []string{"1 Trevelyan Square", "Boar Lane", "Leeds"}, d.AddressLines)
	assert.Equal(t, "LS1 6AE", d.Postcode)
	assert.Equal(t, "Y12345", d.GPODSCode)
	assert.Equal(t, "2", d.Version)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "Bearer at-123", f.lastHeader.Get("Authorization"))
	assert.Equal(t, "corr-1", f.lastHeader.Get("X-Correlation-ID"))
	assert.NotEmpty(t, f.lastHeader.Get("X-Request-ID"))
}

func TestTokenIsCachedUntilExpiry(t *testing.T) {
	f := newFakePDS(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newClient(t, f, WithClock(func() time.Time { return now }))
	nhs := domain.MustNHSNumber("9000000009")

	for range 3 {
		_, err := c.Lookup(context.Background(), nhs)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.tokenCalls.Load())

	// 599s lifetime minus the refresh margin
	now = now.Add(540 * time.Second)
	_, err := c.Lookup(context.Background(), nhs)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestLookupStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   adapters.Kind
	}{
		{http.StatusNotFound, adapters.KindNotFound},
		{http.StatusServiceUnavailable, adapters.KindUnavailable},
		{http.StatusTooManyRequests, adapters.KindUnavailable},
		{http.StatusBadRequest, adapters.KindInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := newFakePDS(t)
			f.status = tt.status
			f.patient = `{"resourceType":"OperationOutcome"}`
			_, err := newClient(t, f).Lookup(context.Background(), domain.MustNHSNumber("9000000009"))
			kind, ok := adapters.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestLookupInvalidBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<Patient/>`,
		"wrong type":    `{"resourceType":"Bundle"}`,
		"no nhs number": `{"resourceType":"Patient"}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFakePDS(t)
			f.patient = body
			_, err := newClient(t, f).Lookup(context.Background(), domain.MustNHSNumber("9000000009"))
			kind, _ := adapters.KindOf(err)
			assert.Equal(t, adapters.KindInvalidResponse, kind)
		})
	}
}

func TestLookupTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			_, _ = w.Write([]byte(`{"access_token":"t","expires_in":600}`))
			return
		}
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(block); srv.Close() })

	signer, err := jwttoken.NewHMAC("s", "", "")
	require.NoError(t, err)
	c := New(srv.URL, srv.URL+"/oauth2/token", "client-1", signer)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Lookup(ctx, domain.MustNHSNumber("9000000009"))
	kind, ok := adapters.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, adapters.KindTimeout, kind)
}

func TestExpiresInAcceptsStringAndNumber(t *testing.T) {
	var a, b expiresIn
	require.NoError(t, a.UnmarshalJSON([]byte(`"599"`)))
	require.NoError(t, b.UnmarshalJSON([]byte(`600`)))
	assert.Equal(t, expiresIn(599), a)
	assert.Equal(t, expiresIn(600), b)
}
