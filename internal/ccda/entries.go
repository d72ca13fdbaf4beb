package ccda

import (
	"errors"
	"fmt"
	"strings"

	"xhuma/internal/fhir"
)

var errMissingCode = errors.New("missing code")

// builder renders resolved list items. Errors mark the entry as malformed
// and make the caller skip the whole section.
type builder struct {
	bundle *fhir.Bundle
	ids    idSource
}

func concernStatus(clinical string) string {
	switch strings.ToLower(clinical) {
	case "", "active", "recurrence", "relapse":
		return "active"
	default:
		return "completed"
	}
}

func (b builder) allergy(r fhir.Resource) (Entry, NarrativeTr, error) {
	a, err := fhir.Decode[fhir.AllergyIntolerance](r)
	if err != nil {
		return Entry{}, NarrativeTr{}, err
	}
	if a.Code.IsZero() {
		return Entry{}, NarrativeTr{}, fmt.Errorf("%s: %w", r.Key(), errMissingCode)
	}
	onset := a.OnsetDateTime
	if onset == "" {
		onset = a.Recorded()
	}
	status := concernStatus(a.ClinicalStatus.Code())

	var reactions []EntryRelationship
	var manifestations []fhir.CodeableConcept
	for i, rx := range a.Reaction {
		for j, m := range rx.Manifestation {
			manifestations = append(manifestations, m)
			reactions = append(reactions, EntryRelationship{
				TypeCode:     "MFST",
				InversionInd: "true",
				Observation: &Observation{
					ClassCode:     "OBS",
					MoodCode:      "EVN",
					TemplateIDs:   []TemplateID{{Root: OIDReactionObservation}, {Root: OIDReactionObservation, Extension: "2014-06-09"}},
					IDs:           b.ids.id(r.Key(), fmt.Sprintf("reaction-%d-%d", i, j)),
					Code:          &Code{Code: "ASSERTION", CodeSystem: OIDActCode},
					StatusCode:    statusCode("completed"),
					EffectiveTime: timeRange(rx.Onset, ""),
					Value:         valueCD(m),
				},
			})
		}
	}

	obs := &Observation{
		ClassCode:     "OBS",
		MoodCode:      "EVN",
		TemplateIDs:   []TemplateID{{Root: OIDAllergyObservation}, {Root: OIDAllergyObservation, Extension: "2014-06-09"}},
		IDs:           b.ids.id(r.Key(), "observation"),
		Code:          &Code{Code: "ASSERTION", CodeSystem: OIDActCode},
		StatusCode:    statusCode("completed"),
		EffectiveTime: timeRange(onset, ""),
		Value:         allergyType(a),
		Participants: []Participant{{
			TypeCode: "CSM",
			ParticipantRole: &ParticipantRole{
				ClassCode:     "MANU",
				PlayingEntity: &PlayingEntity{ClassCode: "MMAT", Code: codeFor(a.Code)},
			},
		}},
		EntryRelationships: reactions,
	}

	entry := Entry{TypeCode: "DRIV", Act: &Act{
		ClassCode:          "ACT",
		MoodCode:           "EVN",
		TemplateIDs:        []TemplateID{{Root: OIDAllergyConcernAct}, {Root: OIDAllergyConcernAct, Extension: "2015-08-01"}},
		IDs:                b.ids.id(r.Key(), "concern"),
		Code:               &Code{Code: "CONC", CodeSystem: OIDActClass},
		StatusCode:         statusCode(status),
		EffectiveTime:      timeRange(onset, ""),
		EntryRelationships: []EntryRelationship{{TypeCode: "SUBJ", Observation: obs}},
	}}
	return entry, row(a.Code.Display(), joinDisplays(manifestations), status, displayDate(onset)), nil
}

// allergyType picks the allergy observation value from type and category.
func allergyType(a *fhir.AllergyIntolerance) *Value {
	code := snomed("419199007", "Allergy to substance")
	if a.Type == "intolerance" {
		code = snomed("420134006", "Propensity to adverse reactions")
	} else if len(a.Category) > 0 {
		switch a.Category[0] {
		case "food":
			code = snomed("414285001", "Allergy to food")
		case "medication":
			code = snomed("416098002", "Allergy to drug")
		case "environment":
			code = snomed("426232007", "Environmental allergy")
		}
	}
	return &Value{Type: "CD", Code: code.Code, CodeSystem: code.CodeSystem, DisplayName: code.DisplayName}
}

func (b builder) problem(r fhir.Resource) (Entry, NarrativeTr, error) {
	c, err := fhir.Decode[fhir.Condition](r)
	if err != nil {
		return Entry{}, NarrativeTr{}, err
	}
	if c.Code.IsZero() {
		return Entry{}, NarrativeTr{}, fmt.Errorf("%s: %w", r.Key(), errMissingCode)
	}
	onset := c.OnsetDateTime
	if onset == "" {
		onset = c.Recorded()
	}
	status := concernStatus(c.ClinicalStatus.Code())

	obs := &Observation{
		ClassCode:     "OBS",
		MoodCode:      "EVN",
		TemplateIDs:   []TemplateID{{Root: OIDProblemObservation}, {Root: OIDProblemObservation, Extension: "2015-08-01"}},
		IDs:           b.ids.id(r.Key(), "observation"),
		Code:          snomed("55607006", "Problem"),
		StatusCode:    statusCode("completed"),
		EffectiveTime: timeRange(onset, c.AbatementDateTime),
		Value:         valueCD(c.Code),
	}
	entry := Entry{TypeCode: "DRIV", Act: &Act{
		ClassCode:          "ACT",
		MoodCode:           "EVN",
		TemplateIDs:        []TemplateID{{Root: OIDProblemConcernAct}, {Root: OIDProblemConcernAct, Extension: "2015-08-01"}},
		IDs:                b.ids.id(r.Key(), "concern"),
		Code:               &Code{Code: "CONC", CodeSystem: OIDActClass},
		StatusCode:         statusCode(status),
		EffectiveTime:      timeRange(onset, c.AbatementDateTime),
		EntryRelationships: []EntryRelationship{{TypeCode: "SUBJ", Observation: obs}},
	}}
	return entry, row(c.Code.Display(), status, displayDate(onset), displayDate(c.AbatementDateTime)), nil
}

func (b builder) medication(r fhir.Resource) (Entry, NarrativeTr, error) {
	m, err := fhir.Decode[fhir.MedicationStatement](r)
	if err != nil {
		return Entry{}, NarrativeTr{}, err
	}
	drug, err := b.medicationCode(m)
	if err != nil {
		return Entry{}, NarrativeTr{}, fmt.Errorf("%s: %w", r.Key(), err)
	}

	start, end := m.EffectiveDateTime, ""
	if m.EffectivePeriod != nil {
		start, end = m.EffectivePeriod.Start, m.EffectivePeriod.End
	}
	status := "completed"
	switch m.Status {
	case "active", "intended", "on-hold":
		status = "active"
	}

	sa := &SubstanceAdministration{
		ClassCode:     "SBADM",
		MoodCode:      "EVN",
		TemplateIDs:   []TemplateID{{Root: OIDMedicationActivity}, {Root: OIDMedicationActivity, Extension: "2014-06-09"}},
		IDs:           b.ids.id(r.Key(), "activity"),
		StatusCode:    statusCode(status),
		EffectiveTime: typedRange(start, end),
		Consumable: &Consumable{ManufacturedProduct: &ManufacturedProduct{
			ClassCode:            "MANU",
			TemplateIDs:          []TemplateID{{Root: OIDMedicationInformation}, {Root: OIDMedicationInformation, Extension: "2014-06-09"}},
			ManufacturedMaterial: &ManufacturedMaterial{Code: codeFor(drug)},
		}},
	}
	var dosage string
	if len(m.Dosage) > 0 {
		d := m.Dosage[0]
		dosage = d.Text
		sa.Text = d.Text
		if d.Route != nil && !d.Route.IsZero() {
			sa.RouteCode = codeFor(*d.Route)
		}
		if d.DoseQuantity != nil && d.DoseQuantity.Value != nil {
			sa.DoseQuantity = &Quantity{Value: formatFloat(d.DoseQuantity.Value), Unit: d.DoseQuantity.Code}
		}
	}
	return Entry{TypeCode: "DRIV", SubstanceAdministration: sa},
		row(drug.Display(), dosage, status, displayDate(start), displayDate(end)), nil
}

// medicationCode follows medicationReference into the bundle or reads the
// inline concept.
func (b builder) medicationCode(m *fhir.MedicationStatement) (fhir.CodeableConcept, error) {
	if m.MedicationReference != nil && m.MedicationReference.Reference != "" {
		res, ok := b.bundle.Resolve(m.MedicationReference.Reference)
		if !ok {
			return fhir.CodeableConcept{}, fmt.Errorf("unresolvable medication %q", m.MedicationReference.Reference)
		}
		med, err := fhir.Decode[fhir.Medication](res)
		if err != nil {
			return fhir.CodeableConcept{}, err
		}
		if med.Code.IsZero() {
			return fhir.CodeableConcept{}, errMissingCode
		}
		return med.Code, nil
	}
	if m.MedicationCodeableConcept != nil && !m.MedicationCodeableConcept.IsZero() {
		return *m.MedicationCodeableConcept, nil
	}
	return fhir.CodeableConcept{}, errMissingCode
}

func (b builder) immunization(r fhir.Resource) (Entry, NarrativeTr, error) {
	im, err := fhir.Decode[fhir.Immunization](r)
	if err != nil {
		return Entry{}, NarrativeTr{}, err
	}
	if im.VaccineCode.IsZero() {
		return Entry{}, NarrativeTr{}, fmt.Errorf("%s: %w", r.Key(), errMissingCode)
	}
	status := "completed"
	sa := &SubstanceAdministration{
		ClassCode:     "SBADM",
		MoodCode:      "EVN",
		NegationInd:   "false",
		TemplateIDs:   []TemplateID{{Root: OIDImmunizationActivity}, {Root: OIDImmunizationActivity, Extension: "2015-08-01"}},
		IDs:           b.ids.id(r.Key(), "activity"),
		StatusCode:    statusCode(status),
		EffectiveTime: typedRange(im.Occurred(), ""),
		Consumable: &Consumable{ManufacturedProduct: &ManufacturedProduct{
			ClassCode:   "MANU",
			TemplateIDs: []TemplateID{{Root: OIDImmunizationMedInfo}, {Root: OIDImmunizationMedInfo, Extension: "2014-06-09"}},
			ManufacturedMaterial: &ManufacturedMaterial{
				Code:          codeFor(im.VaccineCode),
				LotNumberText: im.LotNumber,
			},
		}},
	}
	if im.Route != nil && !im.Route.IsZero() {
		sa.RouteCode = codeFor(*im.Route)
	}
	if im.Refused() {
		sa.NegationInd = "true"
		status = "not given"
	}
	return Entry{TypeCode: "DRIV", SubstanceAdministration: sa},
		row(im.VaccineCode.Display(), displayDate(im.Occurred()), status), nil
}

// result renders a DiagnosticReport or a standalone Observation as a
// Result Organizer. Grouped observations are flattened into components.
func (b builder) result(r fhir.Resource) (Entry, []NarrativeTr, error) {
	var (
		code      fhir.CodeableConcept
		effective string
		members   []fhir.Reference
	)
	switch r.Type {
	case "DiagnosticReport":
		dr, err := fhir.Decode[fhir.DiagnosticReport](r)
		if err != nil {
			return Entry{}, nil, err
		}
		code, members = dr.Code, dr.Result
		effective = dr.EffectiveDateTime
		if effective == "" {
			effective = dr.Issued
		}
	default:
		obs, err := fhir.Decode[fhir.Observation](r)
		if err != nil {
			return Entry{}, nil, err
		}
		code, effective = obs.Code, obs.Effective()
		members = obs.Members()
		if len(members) == 0 {
			members = []fhir.Reference{{Reference: r.Key()}}
		}
	}
	if code.IsZero() {
		return Entry{}, nil, fmt.Errorf("%s: %w", r.Key(), errMissingCode)
	}

	org := &Organizer{
		ClassCode:     "BATTERY",
		MoodCode:      "EVN",
		TemplateIDs:   []TemplateID{{Root: OIDResultOrganizer}, {Root: OIDResultOrganizer, Extension: "2015-08-01"}},
		IDs:           b.ids.id(r.Key(), "organizer"),
		Code:          codeFor(code),
		StatusCode:    statusCode("completed"),
		EffectiveTime: timeRange(effective, ""),
	}
	var rows []NarrativeTr
	seen := map[string]bool{r.Key(): true}
	if err := b.collectResults(members, org, &rows, seen, 0); err != nil {
		return Entry{}, nil, fmt.Errorf("%s: %w", r.Key(), err)
	}
	if len(org.Components) == 0 {
		rows = append(rows, row(code.Display(), "", "", displayDate(effective)))
	}
	return Entry{TypeCode: "DRIV", Organizer: org}, rows, nil
}

const maxResultDepth = 4

func (b builder) collectResults(refs []fhir.Reference, org *Organizer, rows *[]NarrativeTr, seen map[string]bool, depth int) error {
	if depth > maxResultDepth {
		return errors.New("result nesting too deep")
	}
	for _, ref := range refs {
		res, ok := b.bundle.Resolve(ref.Reference)
		if !ok {
			return fmt.Errorf("unresolvable result %q", ref.Reference)
		}
		if res.Type != "Observation" {
			return fmt.Errorf("unexpected result type %s", res.Type)
		}
		obs, err := fhir.Decode[fhir.Observation](res)
		if err != nil {
			return err
		}
		// a group contributes its members, a leaf contributes itself
		if members := obs.Members(); len(members) > 0 {
			if seen[res.Key()] {
				return fmt.Errorf("result cycle at %s", res.Key())
			}
			seen[res.Key()] = true
			if err := b.collectResults(members, org, rows, seen, depth+1); err != nil {
				return err
			}
			continue
		}
		o, tr, err := b.resultObservation(res, obs)
		if err != nil {
			return err
		}
		org.Components = append(org.Components, OrganizerComponent{Observation: o})
		*rows = append(*rows, tr)
	}
	return nil
}

func (b builder) resultObservation(r fhir.Resource, obs *fhir.Observation) (*Observation, NarrativeTr, error) {
	if obs.Code.IsZero() {
		return nil, NarrativeTr{}, fmt.Errorf("%s: %w", r.Key(), errMissingCode)
	}
	o := &Observation{
		ClassCode:     "OBS",
		MoodCode:      "EVN",
		TemplateIDs:   []TemplateID{{Root: OIDResultObservation}, {Root: OIDResultObservation, Extension: "2015-08-01"}},
		IDs:           b.ids.id(r.Key(), "result"),
		Code:          codeFor(obs.Code),
		StatusCode:    statusCode("completed"),
		EffectiveTime: timeRange(obs.Effective(), ""),
	}
	var shown string
	switch {
	case obs.ValueQuantity != nil && obs.ValueQuantity.Value != nil:
		q := obs.ValueQuantity
		unit := q.Code
		if unit == "" {
			unit = q.Unit
		}
		o.Value = &Value{Type: "PQ", Value: formatFloat(q.Value), Unit: unit}
		shown = quantityText(q)
	case obs.ValueCodeableConcept != nil && !obs.ValueCodeableConcept.IsZero():
		o.Value = valueCD(*obs.ValueCodeableConcept)
		shown = obs.ValueCodeableConcept.Display()
	case obs.ValueString != "":
		o.Value = &Value{Type: "ST", Text: obs.ValueString}
		shown = obs.ValueString
	default:
		o.Value = &Value{Type: "ST", NullFlavor: nullUnknown}
	}
	if obs.Interpretation != nil && !obs.Interpretation.IsZero() {
		o.InterpretationCode = codeFor(obs.Interpretation.CodeableConcept)
	}
	var rangeText string
	if len(obs.ReferenceRange) > 0 {
		rangeText = referenceRangeText(obs.ReferenceRange[0])
		if rangeText != "" {
			o.ReferenceRange = &ReferenceRange{ObservationRange: ObservationRange{Text: rangeText}}
		}
	}
	return o, row(obs.Code.Display(), shown, rangeText, displayDate(obs.Effective())), nil
}

func referenceRangeText(rr fhir.ReferenceRange) string {
	if rr.Text != "" {
		return rr.Text
	}
	low, high := quantityText(rr.Low), quantityText(rr.High)
	switch {
	case low != "" && high != "":
		return low + " - " + high
	case low != "":
		return ">= " + low
	case high != "":
		return "<= " + high
	}
	return ""
}

func (b builder) encounter(r fhir.Resource) (Entry, NarrativeTr, error) {
	e, err := fhir.Decode[fhir.Encounter](r)
	if err != nil {
		return Entry{}, NarrativeTr{}, err
	}
	var kind fhir.CodeableConcept
	if len(e.Type) > 0 {
		kind = e.Type[0]
	} else if e.Class != nil && e.Class.Code != "" {
		kind = fhir.CodeableConcept{Coding: []fhir.Coding{*e.Class}}
	}
	if kind.IsZero() {
		return Entry{}, NarrativeTr{}, fmt.Errorf("%s: %w", r.Key(), errMissingCode)
	}
	var start, end string
	if e.Period != nil {
		start, end = e.Period.Start, e.Period.End
	}
	enc := &EncounterActivity{
		ClassCode:     "ENC",
		MoodCode:      "EVN",
		TemplateIDs:   []TemplateID{{Root: OIDEncounterActivity}, {Root: OIDEncounterActivity, Extension: "2015-08-01"}},
		IDs:           b.ids.id(r.Key(), "encounter"),
		Code:          codeFor(kind),
		EffectiveTime: timeRange(start, end),
	}
	reasons := e.Reasons()
	for i, reason := range reasons {
		enc.EntryRelationships = append(enc.EntryRelationships, EntryRelationship{
			TypeCode: "RSON",
			Observation: &Observation{
				ClassCode:  "OBS",
				MoodCode:   "EVN",
				IDs:        b.ids.id(r.Key(), fmt.Sprintf("reason-%d", i)),
				Code:       snomed("404684003", "Clinical finding"),
				StatusCode: statusCode("completed"),
				Value:      valueCD(reason),
			},
		})
	}
	return Entry{TypeCode: "DRIV", Encounter: enc},
		row(kind.Display(), displayDate(start), joinDisplays(reasons)), nil
}
