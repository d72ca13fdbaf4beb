package ccda

import (
	"errors"
	"fmt"
	"strings"

	"xhuma/internal/fhir"
)

// Warning records a section left out of the document.
type Warning struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}

const noInformation = "No Information"

type sectionDef struct {
	templateID string
	loinc      string
	title      string
	headers    []string
	accepts    []string
	render     func(b builder, r fhir.Resource) (Entry, []NarrativeTr, error)
}

func single(fn func(builder, fhir.Resource) (Entry, NarrativeTr, error)) func(builder, fhir.Resource) (Entry, []NarrativeTr, error) {
	return func(b builder, r fhir.Resource) (Entry, []NarrativeTr, error) {
		e, tr, err := fn(b, r)
		if err != nil {
			return Entry{}, nil, err
		}
		return e, []NarrativeTr{tr}, nil
	}
}

var (
	allergiesSection = sectionDef{
		templateID: OIDAllergiesSection,
		loinc:      LOINCAllergies,
		title:      "Allergies and Adverse Reactions",
		headers:    []string{"Substance", "Reaction", "Status", "Onset"},
		accepts:    []string{"AllergyIntolerance"},
		render:     single(builder.allergy),
	}
	medicationsSection = sectionDef{
		templateID: OIDMedicationsSection,
		loinc:      LOINCMedications,
		title:      "Medications",
		headers:    []string{"Medication", "Dosage", "Status", "Start", "End"},
		accepts:    []string{"MedicationStatement"},
		render:     single(builder.medication),
	}
	problemsSection = sectionDef{
		templateID: OIDProblemsSection,
		loinc:      LOINCProblems,
		title:      "Problems",
		headers:    []string{"Problem", "Status", "Onset", "Resolved"},
		accepts:    []string{"Condition"},
		render:     single(builder.problem),
	}
	immunizationsSection = sectionDef{
		templateID: OIDImmunizationsSection,
		loinc:      LOINCImmunizations,
		title:      "Immunizations",
		headers:    []string{"Vaccine", "Date", "Status"},
		accepts:    []string{"Immunization"},
		render:     single(builder.immunization),
	}
	resultsSection = sectionDef{
		templateID: OIDResultsSection,
		loinc:      LOINCResults,
		title:      "Results",
		headers:    []string{"Test", "Value", "Reference range", "Date"},
		accepts:    []string{"DiagnosticReport", "Observation"},
		render:     builder.result,
	}
	encountersSection = sectionDef{
		templateID: OIDEncountersSection,
		loinc:      LOINCEncounters,
		title:      "Encounters",
		headers:    []string{"Encounter", "Date", "Reason"},
		accepts:    []string{"Encounter"},
		render:     single(builder.encounter),
	}
)

// sectionsByTitle keys on the lower-cased List title.
var sectionsByTitle = map[string]sectionDef{
	"allergies and adverse reactions": allergiesSection,
	"medications and medical devices": medicationsSection,
	"problems":                        problemsSection,
	"immunisations":                   immunizationsSection,
	"investigations and results":      resultsSection,
	"consultations":                   encountersSection,
	"encounters":                      encountersSection,
}

// sectionsBySNOMED is consulted when a List carries no title.
var sectionsBySNOMED = map[string]sectionDef{
	"886921000000105":  allergiesSection,
	"933361000000108":  medicationsSection,
	"717711000000103":  problemsSection,
	"1102181000000102": immunizationsSection,
	"887191000000108":  resultsSection,
	"1149501000000101": encountersSection,
}

func lookupSection(l *fhir.List) (sectionDef, string, bool) {
	title := strings.TrimSpace(l.Title)
	if title != "" {
		spec, ok := sectionsByTitle[strings.ToLower(title)]
		return spec, title, ok
	}
	for _, cd := range l.Code.Coding {
		if spec, ok := sectionsBySNOMED[cd.Code]; ok {
			return spec, spec.title, true
		}
	}
	if d := l.Code.Display(); d != "" {
		title = d
	} else {
		title = "List/" + l.ID
	}
	return sectionDef{}, title, false
}

var errSkipSection = errors.New("section skipped")

// buildSection renders one List. A returned error wraps errSkipSection and
// its message is the warning reason.
func (b builder) buildSection(spec sectionDef, l *fhir.List) (*Section, error) {
	sec := newSection(spec.templateID, spec.loinc, spec.title)

	var rows []NarrativeTr
	for _, item := range l.Entry {
		if item.Deleted {
			continue
		}
		ref := item.Item.Reference
		res, ok := b.bundle.Resolve(ref)
		if !ok {
			return nil, fmt.Errorf("%w: unresolvable reference %q", errSkipSection, ref)
		}
		if !accepts(spec, res.Type) {
			return nil, fmt.Errorf("%w: unexpected resource type %s", errSkipSection, res.Type)
		}
		entry, trs, err := spec.render(b, res)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed entry: %w", errSkipSection, err)
		}
		sec.Entries = append(sec.Entries, entry)
		rows = append(rows, trs...)
	}

	if len(sec.Entries) == 0 {
		sec.Text = &Narrative{Paragraph: noInformation}
		return sec, nil
	}
	sec.Text = narrativeTable(spec.headers, rows)
	return sec, nil
}

func accepts(spec sectionDef, resourceType string) bool {
	for _, t := range spec.accepts {
		if t == resourceType {
			return true
		}
	}
	return false
}

func skipReason(err error) string {
	return strings.TrimPrefix(err.Error(), errSkipSection.Error()+": ")
}
