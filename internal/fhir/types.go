package fhir

import (
	"bytes"
	"encoding/json"
)

type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Profile     []string `json:"profile,omitempty"`
}

type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Primary returns the first coding, or a zero Coding.
func (c CodeableConcept) Primary() Coding {
	if len(c.Coding) == 0 {
		return Coding{}
	}
	return c.Coding[0]
}

// Display prefers text, then the first coding display, then its code.
func (c CodeableConcept) Display() string {
	if c.Text != "" {
		return c.Text
	}
	for _, cd := range c.Coding {
		if cd.Display != "" {
			return cd.Display
		}
	}
	return c.Primary().Code
}

func (c CodeableConcept) IsZero() bool {
	return len(c.Coding) == 0 && c.Text == ""
}

// CodeOrConcept decodes elements that are a plain code in STU3 and a
// CodeableConcept in R4, such as AllergyIntolerance.clinicalStatus.
type CodeOrConcept struct {
	CodeableConcept
}

func (c *CodeOrConcept) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var code string
		if err := json.Unmarshal(b, &code); err != nil {
			return err
		}
		c.CodeableConcept = CodeableConcept{Coding: []Coding{{Code: code}}}
		return nil
	}
	return json.Unmarshal(b, &c.CodeableConcept)
}

// Code returns the first coding code.
func (c CodeOrConcept) Code() string { return c.Primary().Code }

type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Display    string      `json:"display,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
}

type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type Quantity struct {
	Value      *float64 `json:"value,omitempty"`
	Comparator string   `json:"comparator,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	System     string   `json:"system,omitempty"`
	Code       string   `json:"code,omitempty"`
}

type Annotation struct {
	Text string `json:"text,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
}

type Address struct {
	Use        string   `json:"use,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	District   string   `json:"district,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}
