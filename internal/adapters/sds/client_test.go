package sds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xhuma/internal/adapters"
)

const endpointBundleJSON = `{
  "resourceType": "Bundle",
  "type": "searchset",
  "entry": [{
    "resource": {
      "resourceType": "Endpoint",
      "status": "active",
      "address": "https://provider.example.nhs.uk/B82617/STU3/1/gpconnect/structured/fhir",
      "identifier": [
        {"system": "https://fhir.nhs.uk/Id/nhsMhsPartyKey", "value": "B82617-807004"},
        {"system": "https://fhir.nhs.uk/Id/nhsSpineASID", "value": "918999198738"}
      ]
    }
  }]
}`

func serve(t *testing.T, status int, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupReturnsRouting(t *testing.T) {
	srv := serve(t, http.StatusOK, endpointBundleJSON, func(r *http.Request) {
		assert.Equal(t, "/spine-directory/FHIR/R4/Endpoint", r.URL.Path)
		assert.Equal(t, "https://fhir.nhs.uk/Id/ods-organization-code|B82617", r.URL.Query().Get("organization"))
		assert.Equal(t, interactionSystem+"|"+StructuredRecordInteraction, r.URL.Query().Get("identifier"))
		assert.Equal(t, "key-1", r.Header.Get("apikey"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
	})

	info, err := New(srv.URL, "key-1").Lookup(context.Background(), "B82617")
	require.NoError(t, err)
	assert.Equal(t, &adapters.RoutingInfo{
		Organization: "B82617",
		ASID:         "918999198738",
		PartyKey:     "B82617-807004",
		EndpointURL:  "https://provider.example.nhs.uk/B82617/STU3/1/gpconnect/structured/fhir",
	}, info)
}

func TestLookupEmptyBundleIsNotFound(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"resourceType":"Bundle","type":"searchset","entry":[]}`, nil)
	_, err := New(srv.URL, "k").Lookup(context.Background(), "B82617")
	kind, ok := adapters.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, adapters.KindNotFound, kind)
	assert.False(t, adapters.IsRetryable(err))
}

func TestLookupFailures(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
		want   adapters.Kind
	}{
		"server error":    {http.StatusInternalServerError, `{}`, adapters.KindUnavailable},
		"bad request":     {http.StatusBadRequest, `{}`, adapters.KindInvalidResponse},
		"garbage":         {http.StatusOK, `not json`, adapters.KindInvalidResponse},
		"no address":      {http.StatusOK, `{"resourceType":"Bundle","entry":[{"resource":{"resourceType":"Endpoint"}}]}`, adapters.KindInvalidResponse},
		"unexpected type": {http.StatusOK, `{"resourceType":"OperationOutcome"}`, adapters.KindInvalidResponse},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body, nil)
			_, err := New(srv.URL, "k").Lookup(context.Background(), "B82617")
			kind, ok := adapters.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}
