package jwttoken

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "xhuma/pkg/domain-errors"
)

func newHMAC(t *testing.T, opts ...Option) *Authenticator {
	t.Helper()
	a, err := NewHMAC("test-signing-key", "xhuma", "https://gpconnect.example/fhir", opts...)
	require.NoError(t, err)
	return a
}

func Test_SignAndVerify(t *testing.T) {
	a := newHMAC(t)
	token, err := a.Sign(Claims{
		ReasonForRequest: "directcare",
		RequestedScope:   "patient/*.read",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "practitioner-1"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "directcare", claims.ReasonForRequest)
	assert.Equal(t, "patient/*.read", claims.RequestedScope)
	assert.Equal(t, "xhuma", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, time.Minute)

	subject, err := a.VerifySubject(token)
	require.NoError(t, err)
	assert.Equal(t, "practitioner-1", subject)
}

func Test_Verify_InvalidToken(t *testing.T) {
	_, err := newHMAC(t).Verify("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_Verify_ExpiredToken(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	signer := newHMAC(t, WithClock(func() time.Time { return past }))
	token, err := signer.Sign(Claims{})
	require.NoError(t, err)

	_, err = newHMAC(t).Verify(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_Verify_WrongKey(t *testing.T) {
	token, err := newHMAC(t).Sign(Claims{})
	require.NoError(t, err)

	other, err := NewHMAC("another-key", "xhuma", "https://gpconnect.example/fhir")
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_NewHMAC_RequiresSecret(t *testing.T) {
	_, err := NewHMAC("", "xhuma", "")
	require.Error(t, err)
}

func Test_RSA_SignAndVerify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	a, err := NewRSA(pemBytes, "client-id", "https://api.service.nhs.uk/oauth2/token")
	require.NoError(t, err)

	token, err := a.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "client-id"}})
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	require.NoError(t, err)
	assert.Equal(t, "RS512", parsed.Method.Alg())

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "client-id", claims.Subject)
}
