// Package domain holds the value objects shared by every xhuma transaction.
//
// Domain Purity: no I/O, no context.Context, no clock. Values are validated at
// construction so anything holding an NHSNumber can derive cache keys and
// upstream requests from it without re-checking.
package domain

import (
	"errors"
	"strings"
)

// NHSNumber is a validated ten digit NHS number.
//
// Invariants:
//   - exactly 10 ASCII digits after removing spaces and hyphens
//   - the tenth digit matches the modulus 11 check digit of the first nine
type NHSNumber struct {
	value string
}

// ErrInvalidNHSNumber indicates the identifier failed format or checksum validation.
var ErrInvalidNHSNumber = errors.New("invalid NHS number: must be 10 digits with a valid modulus 11 check digit")

// NHSNumberSystem is the FHIR identifier system for NHS numbers.
const NHSNumberSystem = "https://fhir.nhs.uk/Id/nhs-number"

// NHSNumberOID is the HL7 v3 root used when the number appears in CDA or IHE messages.
const NHSNumberOID = "2.16.840.1.113883.2.1.4.1"

// ParseNHSNumber normalises and validates raw input.
func ParseNHSNumber(raw string) (NHSNumber, error) {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if len(s) != 10 {
		return NHSNumber{}, ErrInvalidNHSNumber
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return NHSNumber{}, ErrInvalidNHSNumber
		}
		if i < 9 {
			sum += int(c-'0') * (10 - i)
		}
	}
	check := 11 - (sum % 11)
	switch check {
	case 11:
		check = 0
	case 10:
		return NHSNumber{}, ErrInvalidNHSNumber
	}
	if int(s[9]-'0') != check {
		return NHSNumber{}, ErrInvalidNHSNumber
	}
	return NHSNumber{value: s}, nil
}

// MustNHSNumber parses raw, panicking if invalid.
// Use only in tests or with known-good constants.
func MustNHSNumber(raw string) NHSNumber {
	n, err := ParseNHSNumber(raw)
	if err != nil {
		panic(err)
	}
	return n
}

func (n NHSNumber) String() string { return n.value }

// IsZero returns true for the uninitialised value.
func (n NHSNumber) IsZero() bool { return n.value == "" }

// Redacted keeps only the last four digits, for logs.
func (n NHSNumber) Redacted() string {
	if len(n.value) < 4 {
		return "****"
	}
	return "******" + n.value[len(n.value)-4:]
}
