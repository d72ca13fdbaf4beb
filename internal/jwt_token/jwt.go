// Package jwttoken is the Authenticator capability: it signs outbound tokens
// for the NHS APIs and verifies bearer tokens presented by calling EHRs. The
// rest of xhuma only ever sees Sign and Verify.
package jwttoken

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "xhuma/pkg/domain-errors"
)

// Claims carries the registered claims plus the GP Connect access claims.
type Claims struct {
	ReasonForRequest       string         `json:"reason_for_request,omitempty"`
	RequestedScope         string         `json:"requested_scope,omitempty"`
	RequestingDevice       map[string]any `json:"requesting_device,omitempty"`
	RequestingOrganization map[string]any `json:"requesting_organization,omitempty"`
	RequestingPractitioner map[string]any `json:"requesting_practitioner,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies JWTs with a single key.
type Authenticator struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Authenticator)

// WithTTL sets the lifetime applied to tokens without an explicit expiry.
func WithTTL(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// NewHMAC builds an HS256 authenticator from a shared secret.
func NewHMAC(secret, issuer, audience string, opts ...Option) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	return build(jwt.SigningMethodHS256, []byte(secret), []byte(secret), issuer, audience, opts), nil
}

// NewRSA builds an RS512 authenticator from a PEM encoded private key, as
// required by the NHS API platform.
func NewRSA(privateKeyPEM []byte, issuer, audience string, opts ...Option) (*Authenticator, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return build(jwt.SigningMethodRS512, key, publicKey(key), issuer, audience, opts), nil
}

func publicKey(k *rsa.PrivateKey) *rsa.PublicKey { return &k.PublicKey }

func build(method jwt.SigningMethod, signKey, verifyKey any, issuer, audience string, opts []Option) *Authenticator {
	a := &Authenticator{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		issuer:    issuer,
		audience:  audience,
		ttl:       5 * time.Minute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sign fills any missing registered claims and returns the compact token.
func (a *Authenticator) Sign(claims Claims) (string, error) {
	now := a.now()
	if claims.Issuer == "" {
		claims.Issuer = a.issuer
	}
	if len(claims.Audience) == 0 && a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	token := jwt.NewWithClaims(a.method, claims)
	return token.SignedString(a.signKey)
}

// Verify parses and validates a token signed by this authenticator.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{a.method.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return a.verifyKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// VerifySubject verifies the token and returns its subject.
func (a *Authenticator) VerifySubject(tokenString string) (string, error) {
	claims, err := a.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
