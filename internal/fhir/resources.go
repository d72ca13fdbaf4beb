package fhir

// The resource structs cover the fields the CCDA conversion reads. Where STU3
// and R4 name an element differently both spellings are decoded.

type Patient struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id"`
	Meta         *Meta        `json:"meta,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`
	Name         []HumanName  `json:"name,omitempty"`
	Gender       string       `json:"gender,omitempty"`
	BirthDate    string       `json:"birthDate,omitempty"`
	Address      []Address    `json:"address,omitempty"`
}

// IdentifierValue returns the value of the first identifier with system.
func (p *Patient) IdentifierValue(system string) string {
	for _, id := range p.Identifier {
		if id.System == system && id.Value != "" {
			return id.Value
		}
	}
	return ""
}

// PreferredName returns the usual name, then official, then the first.
func (p *Patient) PreferredName() (HumanName, bool) {
	for _, use := range []string{"usual", "official"} {
		for _, n := range p.Name {
			if n.Use == use {
				return n, true
			}
		}
	}
	if len(p.Name) > 0 {
		return p.Name[0], true
	}
	return HumanName{}, false
}

type ListEntry struct {
	Item    Reference        `json:"item"`
	Flag    *CodeableConcept `json:"flag,omitempty"`
	Deleted bool             `json:"deleted,omitempty"`
	Date    string           `json:"date,omitempty"`
}

type List struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id"`
	Status       string           `json:"status,omitempty"`
	Mode         string           `json:"mode,omitempty"`
	Title        string           `json:"title,omitempty"`
	Code         CodeableConcept  `json:"code"`
	Date         string           `json:"date,omitempty"`
	Entry        []ListEntry      `json:"entry,omitempty"`
	EmptyReason  *CodeableConcept `json:"emptyReason,omitempty"`
	Note         []Annotation     `json:"note,omitempty"`
}

type AllergyReaction struct {
	Substance     *CodeableConcept  `json:"substance,omitempty"`
	Manifestation []CodeableConcept `json:"manifestation,omitempty"`
	Description   string            `json:"description,omitempty"`
	Severity      string            `json:"severity,omitempty"`
	Onset         string            `json:"onset,omitempty"`
}

type AllergyIntolerance struct {
	ResourceType       string            `json:"resourceType"`
	ID                 string            `json:"id"`
	ClinicalStatus     CodeOrConcept     `json:"clinicalStatus"`
	VerificationStatus CodeOrConcept     `json:"verificationStatus"`
	Type               string            `json:"type,omitempty"`
	Category           []string          `json:"category,omitempty"`
	Criticality        string            `json:"criticality,omitempty"`
	Code               CodeableConcept   `json:"code"`
	OnsetDateTime      string            `json:"onsetDateTime,omitempty"`
	AssertedDate       string            `json:"assertedDate,omitempty"`
	RecordedDate       string            `json:"recordedDate,omitempty"`
	LastOccurrence     string            `json:"lastOccurrence,omitempty"`
	Reaction           []AllergyReaction `json:"reaction,omitempty"`
	Note               []Annotation      `json:"note,omitempty"`
}

// Recorded returns the R4 recordedDate or the STU3 assertedDate.
func (a *AllergyIntolerance) Recorded() string {
	if a.RecordedDate != "" {
		return a.RecordedDate
	}
	return a.AssertedDate
}

type Condition struct {
	ResourceType       string            `json:"resourceType"`
	ID                 string            `json:"id"`
	ClinicalStatus     CodeOrConcept     `json:"clinicalStatus"`
	VerificationStatus CodeOrConcept     `json:"verificationStatus"`
	Category           []CodeableConcept `json:"category,omitempty"`
	Severity           *CodeableConcept  `json:"severity,omitempty"`
	Code               CodeableConcept   `json:"code"`
	OnsetDateTime      string            `json:"onsetDateTime,omitempty"`
	AbatementDateTime  string            `json:"abatementDateTime,omitempty"`
	AssertedDate       string            `json:"assertedDate,omitempty"`
	RecordedDate       string            `json:"recordedDate,omitempty"`
	Note               []Annotation      `json:"note,omitempty"`
}

func (c *Condition) Recorded() string {
	if c.RecordedDate != "" {
		return c.RecordedDate
	}
	return c.AssertedDate
}

type Dosage struct {
	Text         string           `json:"text,omitempty"`
	PatientInstr string           `json:"patientInstruction,omitempty"`
	Route        *CodeableConcept `json:"route,omitempty"`
	DoseQuantity *Quantity        `json:"doseQuantity,omitempty"`
}

type MedicationStatement struct {
	ResourceType              string           `json:"resourceType"`
	ID                        string           `json:"id"`
	Status                    string           `json:"status,omitempty"`
	MedicationReference       *Reference       `json:"medicationReference,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	EffectiveDateTime         string           `json:"effectiveDateTime,omitempty"`
	EffectivePeriod           *Period          `json:"effectivePeriod,omitempty"`
	DateAsserted              string           `json:"dateAsserted,omitempty"`
	Dosage                    []Dosage         `json:"dosage,omitempty"`
	Note                      []Annotation     `json:"note,omitempty"`
}

type Medication struct {
	ResourceType string          `json:"resourceType"`
	ID           string          `json:"id"`
	Code         CodeableConcept `json:"code"`
}

type Immunization struct {
	ResourceType       string           `json:"resourceType"`
	ID                 string           `json:"id"`
	Status             string           `json:"status,omitempty"`
	NotGiven           bool             `json:"notGiven,omitempty"`
	VaccineCode        CodeableConcept  `json:"vaccineCode"`
	Date               string           `json:"date,omitempty"`
	OccurrenceDateTime string           `json:"occurrenceDateTime,omitempty"`
	PrimarySource      *bool            `json:"primarySource,omitempty"`
	LotNumber          string           `json:"lotNumber,omitempty"`
	Site               *CodeableConcept `json:"site,omitempty"`
	Route              *CodeableConcept `json:"route,omitempty"`
	Note               []Annotation     `json:"note,omitempty"`
}

// Occurred returns the R4 occurrenceDateTime or the STU3 date.
func (i *Immunization) Occurred() string {
	if i.OccurrenceDateTime != "" {
		return i.OccurrenceDateTime
	}
	return i.Date
}

// Refused reports a not-done immunization in either version.
func (i *Immunization) Refused() bool {
	return i.NotGiven || i.Status == "not-done"
}

type ReferenceRange struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
	Text string    `json:"text,omitempty"`
}

type ObservationRelated struct {
	Type   string    `json:"type,omitempty"`
	Target Reference `json:"target"`
}

type Observation struct {
	ResourceType         string               `json:"resourceType"`
	ID                   string               `json:"id"`
	Status               string               `json:"status,omitempty"`
	Category             []CodeableConcept    `json:"category,omitempty"`
	Code                 CodeableConcept      `json:"code"`
	EffectiveDateTime    string               `json:"effectiveDateTime,omitempty"`
	EffectivePeriod      *Period              `json:"effectivePeriod,omitempty"`
	Issued               string               `json:"issued,omitempty"`
	ValueQuantity        *Quantity            `json:"valueQuantity,omitempty"`
	ValueString          string               `json:"valueString,omitempty"`
	ValueCodeableConcept *CodeableConcept     `json:"valueCodeableConcept,omitempty"`
	Interpretation       *CodeOrConcept       `json:"interpretation,omitempty"`
	ReferenceRange       []ReferenceRange     `json:"referenceRange,omitempty"`
	Related              []ObservationRelated `json:"related,omitempty"`
	HasMember            []Reference          `json:"hasMember,omitempty"`
	Comment              string               `json:"comment,omitempty"`
	Note                 []Annotation         `json:"note,omitempty"`
}

// Effective returns effectiveDateTime, the period start or issued.
func (o *Observation) Effective() string {
	switch {
	case o.EffectiveDateTime != "":
		return o.EffectiveDateTime
	case o.EffectivePeriod != nil && o.EffectivePeriod.Start != "":
		return o.EffectivePeriod.Start
	default:
		return o.Issued
	}
}

// Members returns the grouped observations: R4 hasMember or STU3 related
// entries of type has-member.
func (o *Observation) Members() []Reference {
	if len(o.HasMember) > 0 {
		return o.HasMember
	}
	var out []Reference
	for _, r := range o.Related {
		if r.Type == "" || r.Type == "has-member" {
			out = append(out, r.Target)
		}
	}
	return out
}

type DiagnosticReport struct {
	ResourceType      string            `json:"resourceType"`
	ID                string            `json:"id"`
	Status            string            `json:"status,omitempty"`
	Category          []CodeableConcept `json:"category,omitempty"`
	Code              CodeableConcept   `json:"code"`
	EffectiveDateTime string            `json:"effectiveDateTime,omitempty"`
	Issued            string            `json:"issued,omitempty"`
	Result            []Reference       `json:"result,omitempty"`
	Conclusion        string            `json:"conclusion,omitempty"`
}

// Encounter.class is a Coding in both STU3 and R4.
type Encounter struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id"`
	Status       string            `json:"status,omitempty"`
	Class        *Coding           `json:"class,omitempty"`
	Type         []CodeableConcept `json:"type,omitempty"`
	Period       *Period           `json:"period,omitempty"`
	Reason       []CodeableConcept `json:"reason,omitempty"`
	ReasonCode   []CodeableConcept `json:"reasonCode,omitempty"`
}

// Reasons returns R4 reasonCode or STU3 reason.
func (e *Encounter) Reasons() []CodeableConcept {
	if len(e.ReasonCode) > 0 {
		return e.ReasonCode
	}
	return e.Reason
}
