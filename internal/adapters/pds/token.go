package pds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"xhuma/internal/adapters"
	jwttoken "xhuma/internal/jwt_token"
)

// Signer produces the signed client assertion.
type Signer interface {
	Sign(claims jwttoken.Claims) (string, error)
}

// tokenSource runs the OAuth2 client-credentials exchange with a signed JWT
// assertion and caches the access token until shortly before it expires.
type tokenSource struct {
	client   *http.Client
	tokenURL string
	clientID string
	keyID    string
	signer   Signer
	now      func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// refreshMargin is subtracted from expires_in.
const refreshMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   expiresIn `json:"expires_in"`
}

// expiresIn accepts both "599" and 599.
type expiresIn int

func (e *expiresIn) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*e = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*e = expiresIn(n)
	return nil
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.token != "" && now.Before(t.expiresAt) {
		return t.token, nil
	}

	assertion, err := t.signer.Sign(jwttoken.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.clientID,
			Subject:   t.clientID,
			Audience:  jwt.ClaimStrings{t.tokenURL},
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	})
	if err != nil {
		return "", adapters.NewError(adapterName, adapters.KindInvalidResponse, "sign client assertion", err)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_assertion_type", "urn:ietf:params:oauth:client-assertion-type:jwt-bearer")
	form.Set("client_assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", adapters.NewError(adapterName, adapters.KindInvalidResponse, "build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if t.keyID != "" {
		req.Header.Set("kid", t.keyID)
	}

	body, err := adapters.Do(t.client, adapterName, req)
	if err != nil {
		return "", err
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", adapters.InvalidResponse(adapterName, "decode token response", err)
	}

	t.token = tr.AccessToken
	t.expiresAt = now.Add(time.Duration(tr.ExpiresIn)*time.Second - refreshMargin)
	return t.token, nil
}
