// Package pds looks up patient demographics in the Personal Demographics
// Service FHIR R4 API.
package pds

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"xhuma/internal/adapters"
	"xhuma/pkg/domain"
	"xhuma/pkg/requestcontext"
)

const adapterName = "pds"

type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *tokenSource
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
			cl.tokens.client = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.tokens.now = now }
}

// WithKeyID sets the kid sent with the token request.
func WithKeyID(kid string) Option {
	return func(cl *Client) { cl.tokens.keyID = kid }
}

// New builds a PDS client. baseURL is the API platform root, for example
// https://sandbox.api.service.nhs.uk.
func New(baseURL, tokenURL, clientID string, signer Signer, opts ...Option) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens: &tokenSource{
			client:   httpClient,
			tokenURL: tokenURL,
			clientID: clientID,
			signer:   signer,
			now:      time.Now,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches the Patient resource for nhs.
func (c *Client) Lookup(ctx context.Context, nhs domain.NHSNumber) (*adapters.Demographics, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/personal-demographics/FHIR/R4/Patient/" + nhs.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, adapters.InvalidResponse(adapterName, "build request", err)
	}
	req.Header.Set("Accept", "application/fhir+json")
	req.Header.Set("Authorization", "Bearer "+token)
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
	return parsePatient(body)
}
