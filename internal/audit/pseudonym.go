package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	pseudonymVersion = "v1:"
	pseudonymSalt    = "xhuma-audit"
	pseudonymInfo    = "subject-ref"
	pseudonymBytes   = 18
)

// Pseudonymizer derives stable, non-reversible subject references so audit
// consumers can join records for one patient without holding the NHS number.
type Pseudonymizer struct {
	key []byte
}

// NewPseudonymizer derives the HMAC key from secret with HKDF-SHA256.
func NewPseudonymizer(secret []byte) (*Pseudonymizer, error) {
	if len(secret) == 0 {
		return nil, errors.New("pseudonym secret is required")
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, []byte(pseudonymSalt), []byte(pseudonymInfo)), key); err != nil {
		return nil, err
	}
	return &Pseudonymizer{key: key}, nil
}

// Ref returns "v1:" followed by a base64url HMAC prefix. Empty input yields "".
func (p *Pseudonymizer) Ref(patientID string) string {
	if p == nil || patientID == "" {
		return ""
	}
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(patientID))
	return pseudonymVersion + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:pseudonymBytes])
}
