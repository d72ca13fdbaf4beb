// Package gpconnect retrieves the GP Connect Access Record: Structured
// bundle for a patient from the practice endpoint returned by SDS.
package gpconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"xhuma/internal/adapters"
	"xhuma/internal/fhir"
	jwttoken "xhuma/internal/jwt_token"
	"xhuma/pkg/domain"
	"xhuma/pkg/requestcontext"
)

const (
	adapterName = "gpconnect"

	// InteractionID is the Access Record: Structured interaction.
	InteractionID = "urn:nhs:names:services:gpconnect:fhir:operation:gpc.getstructuredrecord-1"

	odsSystem = "https://fhir.nhs.uk/Id/ods-organization-code"
	sdsUser   = "https://fhir.nhs.uk/Id/sds-user-id"
)

type Signer interface {
	Sign(claims jwttoken.Claims) (string, error)
}

// Identity describes the requesting system placed in the access token and
// the Ssp-From header.
type Identity struct {
	ASID           string
	ODSCode        string
	SystemURL      string
	PractitionerID string
}

type Client struct {
	httpClient    *http.Client
	signer        Signer
	identity      Identity
	interactionID string
	now           func() time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithInteractionID(id string) Option {
	return func(cl *Client) {
		if id != "" {
			cl.interactionID = id
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

func New(signer Signer, identity Identity, opts ...Option) *Client {
	if identity.SystemURL == "" {
		identity.SystemURL = "https://xhuma.example/"
	}
	if identity.PractitionerID == "" {
		identity.PractitionerID = "xhuma-system"
	}
	c := &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		signer:        signer,
		identity:      identity,
		interactionID: InteractionID,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchStructuredRecord posts the structured record request to route and
// parses the returned bundle.
func (c *Client) FetchStructuredRecord(ctx context.Context, nhs domain.NHSNumber, route *adapters.RoutingInfo) (*fhir.Bundle, error) {
	if route == nil || route.EndpointURL == "" {
		return nil, adapters.InvalidResponse(adapterName, "routing has no endpoint", nil)
	}
	endpoint := strings.TrimRight(route.EndpointURL, "/") + "/Patient/$gpc.getstructuredrecord"

	token, err := c.accessToken(endpoint)
	if err != nil {
		return nil, adapters.NewError(adapterName, adapters.KindInvalidResponse, "sign access token", err)
	}
	payload, err := json.Marshal(structuredRecordParameters(nhs))
	if err != nil {
		return nil, adapters.InvalidResponse(adapterName, "encode parameters", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, adapters.InvalidResponse(adapterName, "build request", err)
	}
	traceID := requestcontext.CorrelationID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	req.Header.Set("Ssp-TraceID", traceID)
	req.Header.Set("Ssp-From", c.identity.ASID)
	req.Header.Set("Ssp-To", route.ASID)
	req.Header.Set("Ssp-InteractionID", c.interactionID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/fhir+json")
	req.Header.Set("Content-Type", "application/fhir+json;charset=utf-8")

	body, err := adapters.Do(c.httpClient, adapterName, req)
	if err != nil {
		return nil, err
	}
	bundle, err := fhir.ParseBundle(body)
	if err != nil {
		return nil, adapters.InvalidResponse(adapterName, "parse structured record", err)
	}
	return bundle, nil
}

func (c *Client) accessToken(audience string) (string, error) {
	now := c.now()
	return c.signer.Sign(jwttoken.Claims{
		ReasonForRequest: "directcare",
		RequestedScope:   "patient/*.read",
		RequestingDevice: map[string]any{
			"resourceType": "Device",
			"identifier":   []map[string]string{{"system": c.identity.SystemURL, "value": c.identity.ASID}},
			"model":        "xhuma",
			"version":      "1.0",
		},
		RequestingOrganization: map[string]any{
			"resourceType": "Organization",
			"identifier":   []map[string]string{{"system": odsSystem, "value": c.identity.ODSCode}},
		},
		RequestingPractitioner: map[string]any{
			"resourceType": "Practitioner",
			"id":           c.identity.PractitionerID,
			"identifier":   []map[string]string{{"system": sdsUser, "value": "UNK"}},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.identity.SystemURL,
			Subject:   c.identity.PractitionerID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	})
}
