// Package sds resolves GP Connect routing details from the Spine Directory
// Service FHIR API.
package sds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"xhuma/internal/adapters"
	"xhuma/pkg/requestcontext"
)

const (
	adapterName = "sds"

	odsSystem         = "https://fhir.nhs.uk/Id/ods-organization-code"
	interactionSystem = "https://fhir.nhs.uk/Id/nhsServiceInteractionId"
	asidSystem        = "https://fhir.nhs.uk/Id/nhsSpineASID"
	partyKeySystem    = "https://fhir.nhs.uk/Id/nhsMhsPartyKey"

	// StructuredRecordInteraction is the GP Connect access record structured
	// interaction id.
	StructuredRecordInteraction = "urn:nhs:names:services:gpconnect:fhir:operation:gpc.getstructuredrecord-1"
)

type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	interactionID string
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

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		interactionID: StructuredRecordInteraction,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type endpointBundle struct {
	ResourceType string `json:"resourceType"`
	Entry        []struct {
		Resource endpoint `json:"resource"`
	} `json:"entry"`
}

type endpoint struct {
	ResourceType string `json:"resourceType"`
	Address      string `json:"address"`
	Identifier   []struct {
		System string `json:"system"`
		Value  string `json:"value"`
	} `json:"identifier"`
}

func (e endpoint) identifier(system string) string {
	for _, id := range e.Identifier {
		if id.System == system {
			return id.Value
		}
	}
	return ""
}

// Lookup returns the structured-record endpoint for the ODS organization.
// An empty search result is not_found.
func (c *Client) Lookup(ctx context.Context, organization string) (*adapters.RoutingInfo, error) {
	q := url.Values{}
	q.Add("organization", odsSystem+"|"+organization)
	q.Add("identifier", interactionSystem+"|"+c.interactionID)
	endpointURL := c.baseURL + "/spine-directory/FHIR/R4/Endpoint?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, http.NoBody)
	if err != nil {
		return nil, adapters.InvalidResponse(adapterName, "build request", err)
	}
	req.Header.Set("Accept", "application/fhir+json")
	req.Header.Set("apikey", c.apiKey)
	requestID := requestcontext.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	if id := requestcontext.CorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	body, err := adapters.Do(c.httpClient, adapterName, req)
	if err != nil {
		return nil, err
	}

	var b endpointBundle
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, adapters.InvalidResponse(adapterName, "decode endpoint bundle", err)
	}
	if b.ResourceType != "Bundle" {
		return nil, adapters.InvalidResponse(adapterName, "unexpected resourceType "+b.ResourceType, nil)
	}
	for _, e := range b.Entry {
		if e.Resource.ResourceType != "Endpoint" {
			continue
		}
		info := &adapters.RoutingInfo{
			Organization: organization,
			ASID:         e.Resource.identifier(asidSystem),
			PartyKey:     e.Resource.identifier(partyKeySystem),
			EndpointURL:  e.Resource.Address,
		}
		if info.EndpointURL == "" {
			return nil, adapters.InvalidResponse(adapterName, "endpoint has no address", nil)
		}
		return info, nil
	}
	return nil, adapters.NewError(adapterName, adapters.KindNotFound, "no endpoint for organization "+organization, nil)
}
