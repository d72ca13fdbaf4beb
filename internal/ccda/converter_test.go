package ccda

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xhuma/internal/fhir"
	dErrors "xhuma/pkg/domain-errors"
)

type renderedSection struct {
	TemplateIDs []struct {
		Root string `xml:"root,attr"`
	} `xml:"templateId"`
	Title string `xml:"title"`
	Text  struct {
		Paragraph string `xml:"paragraph"`
		Rows      []struct {
			Cells []string `xml:"td"`
		} `xml:"table>tbody>tr"`
	} `xml:"text"`
	Entries []struct{} `xml:"entry"`
}

type renderedDocument struct {
	Title     string `xml:"title"`
	RealmCode struct {
		Code string `xml:"code,attr"`
	} `xml:"realmCode"`
	EffectiveTime struct {
		Value      string `xml:"value,attr"`
		NullFlavor string `xml:"nullFlavor,attr"`
	} `xml:"effectiveTime"`
	PatientIDs []struct {
		Root      string `xml:"root,attr"`
		Extension string `xml:"extension,attr"`
	} `xml:"recordTarget>patientRole>id"`
	Custodian struct {
		Extension string `xml:"extension,attr"`
	} `xml:"custodian>assignedCustodian>representedCustodianOrganization>id"`
	Sections []renderedSection `xml:"component>structuredBody>component>section"`
}

func loadBundle(t *testing.T) *fhir.Bundle {
	t.Helper()
	raw, err := os.ReadFile("testdata/structured_record.json")
	require.NoError(t, err)
	b, err := fhir.ParseBundle(raw)
	require.NoError(t, err)
	return b
}

func render(t *testing.T, doc *Document) renderedDocument {
	t.Helper()
	var out renderedDocument
	require.NoError(t, xml.Unmarshal([]byte(doc.XML), &out))
	return out
}

// mutate rewrites the fixture bundle through fn before parsing.
func mutate(t *testing.T, fn func(entries []map[string]any) []map[string]any) *fhir.Bundle {
	t.Helper()
	raw, err := os.ReadFile("testdata/structured_record.json")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	var entries []map[string]any
	for _, e := range doc["entry"].([]any) {
		entries = append(entries, e.(map[string]any))
	}
	doc["entry"] = fn(entries)

	raw, err = json.Marshal(doc)
	require.NoError(t, err)
	b, err := fhir.ParseBundle(raw)
	require.NoError(t, err)
	return b
}

func resourceOf(e map[string]any) map[string]any {
	return e["resource"].(map[string]any)
}

func TestConvertIsDeterministic(t *testing.T) {
	first, err := Convert(loadBundle(t))
	require.NoError(t, err)
	second, err := Convert(loadBundle(t))
	require.NoError(t, err)

	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, first.XML, second.XML)
}

func TestConvertDocumentIDTracksContent(t *testing.T) {
	same := func(entries []map[string]any) []map[string]any { return entries }
	base, err := Convert(mutate(t, same))
	require.NoError(t, err)
	again, err := Convert(mutate(t, same))
	require.NoError(t, err)
	assert.Equal(t, base.DocumentID, again.DocumentID)

	changed := mutate(t, func(entries []map[string]any) []map[string]any {
		for _, e := range entries {
			r := resourceOf(e)
			if r["resourceType"] == "Condition" {
				r["onsetDateTime"] = "2019-02-15"
			}
		}
		return entries
	})
	other, err := Convert(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base.DocumentID, other.DocumentID)
}

func TestConvertHeader(t *testing.T) {
	doc, err := Convert(loadBundle(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.XML, xml.Header))
	out := render(t, doc)
	assert.Equal(t, "Summary Care Record", out.Title)
	assert.Equal(t, "GB", out.RealmCode.Code)
	assert.Equal(t, "20260301101500+0000", out.EffectiveTime.Value)
	require.Len(t, out.PatientIDs, 1)
	assert.Equal(t, "2.16.840.1.113883.2.1.4.1", out.PatientIDs[0].Root)
	assert.Equal(t, "9000000009", out.PatientIDs[0].Extension)
	assert.Equal(t, "A20047", out.Custodian.Extension)
	assert.Contains(t, doc.XML, `classCode="PCPR"`)
	assert.Contains(t, doc.XML, "<softwareName>Xhuma</softwareName>")
}

func TestConvertSectionsFollowListOrder(t *testing.T) {
	doc, err := Convert(loadBundle(t))
	require.NoError(t, err)
	out := render(t, doc)

	var roots []string
	for _, s := range out.Sections {
		require.NotEmpty(t, s.TemplateIDs)
		roots = append(roots, s.TemplateIDs[0].Root)
	}
	assert.Equal(t, []string{
		OIDAllergiesSection,
		OIDMedicationsSection,
		OIDProblemsSection,
		OIDImmunizationsSection,
		OIDResultsSection,
		OIDEncountersSection,
	}, roots)
	assert.Equal(t, 6, doc.SectionCount)
}

func TestConvertEntries(t *testing.T) {
	doc, err := Convert(loadBundle(t))
	require.NoError(t, err)
	out := render(t, doc)

	allergies := out.Sections[0]
	require.Len(t, allergies.Entries, 1)
	require.Len(t, allergies.Text.Rows, 1)
	assert.Equal(t, []string{"Amoxicillin allergy", "Skin rash", "active", "2015-06-01"}, allergies.Text.Rows[0].Cells)

	meds := out.Sections[1]
	require.Len(t, meds.Text.Rows, 1)
	assert.Equal(t, "Amlodipine 5mg tablets", meds.Text.Rows[0].Cells[0])
	assert.Equal(t, "One tablet daily", meds.Text.Rows[0].Cells[1])

	results := out.Sections[4]
	require.Len(t, results.Text.Rows, 1)
	assert.Equal(t, []string{"Haemoglobin estimation", "132 g/L", "115 g/L - 165 g/L", "2026-01-19"}, results.Text.Rows[0].Cells)

	for _, tmpl := range []string{
		OIDAllergyConcernAct, OIDAllergyObservation, OIDReactionObservation,
		OIDProblemConcernAct, OIDProblemObservation,
		OIDMedicationActivity, OIDMedicationInformation,
		OIDResultOrganizer, OIDResultObservation,
		OIDEncounterActivity,
	} {
		assert.Contains(t, doc.XML, `root="`+tmpl+`"`, tmpl)
	}
	assert.Contains(t, doc.XML, `xsi:type="PQ"`)
}

func TestConvertEmptyListHasNoInformation(t *testing.T) {
	doc, err := Convert(loadBundle(t))
	require.NoError(t, err)
	imms := render(t, doc).Sections[3]

	assert.Equal(t, "Immunizations", imms.Title)
	assert.Equal(t, "No Information", imms.Text.Paragraph)
	assert.Empty(t, imms.Entries)
}

func TestConvertUnrecognizedSectionWarns(t *testing.T) {
	doc, err := Convert(loadBundle(t))
	require.NoError(t, err)

	assert.Equal(t, []Warning{{Section: "Outbound referrals", Reason: "unrecognized section"}}, doc.Warnings)
	assert.NotContains(t, doc.XML, "Outbound referrals")
}

func TestConvertUnresolvableReferenceSkipsSection(t *testing.T) {
	b := mutate(t, func(entries []map[string]any) []map[string]any {
		var out []map[string]any
		for _, e := range entries {
			if resourceOf(e)["resourceType"] == "Condition" {
				continue
			}
			out = append(out, e)
		}
		return out
	})
	doc, err := Convert(b)
	require.NoError(t, err)

	assert.Equal(t, 5, doc.SectionCount)
	require.Len(t, doc.Warnings, 2)
	assert.Equal(t, "Problems", doc.Warnings[0].Section)
	assert.Contains(t, doc.Warnings[0].Reason, `unresolvable reference "Condition/20"`)
	for _, s := range render(t, doc).Sections {
		assert.NotEqual(t, OIDProblemsSection, s.TemplateIDs[0].Root)
	}
}

func TestConvertMalformedEntrySkipsSection(t *testing.T) {
	b := mutate(t, func(entries []map[string]any) []map[string]any {
		for _, e := range entries {
			r := resourceOf(e)
			if r["resourceType"] == "Medication" {
				delete(r, "code")
			}
		}
		return entries
	})
	doc, err := Convert(b)
	require.NoError(t, err)

	require.NotEmpty(t, doc.Warnings)
	assert.Equal(t, "Medications and medical devices", doc.Warnings[0].Section)
	assert.Contains(t, doc.Warnings[0].Reason, "malformed entry")
}

func TestConvertUndecodableListSkipsSection(t *testing.T) {
	b := mutate(t, func(entries []map[string]any) []map[string]any {
		return append(entries, map[string]any{"resource": map[string]any{
			"resourceType": "List",
			"id":           "bad",
			"title":        "Problems",
			"entry":        "not-an-array",
		}})
	})
	doc, err := Convert(b)
	require.NoError(t, err)

	assert.Equal(t, 6, doc.SectionCount)
	assert.Contains(t, doc.Warnings, Warning{Section: "List/bad", Reason: "malformed section"})
	assert.Len(t, render(t, doc).Sections, 6)
}

func TestConvertWrongResourceTypeSkipsSection(t *testing.T) {
	b := mutate(t, func(entries []map[string]any) []map[string]any {
		for _, e := range entries {
			r := resourceOf(e)
			if r["id"] == "list-problems" {
				r["entry"] = []any{map[string]any{"item": map[string]any{"reference": "Encounter/40"}}}
			}
		}
		return entries
	})
	doc, err := Convert(b)
	require.NoError(t, err)

	require.NotEmpty(t, doc.Warnings)
	assert.Equal(t, "Problems", doc.Warnings[0].Section)
	assert.Equal(t, "unexpected resource type Encounter", doc.Warnings[0].Reason)
}

func TestConvertMalformedBundle(t *testing.T) {
	t.Run("no patient", func(t *testing.T) {
		b := mutate(t, func(entries []map[string]any) []map[string]any {
			return entries[1:]
		})
		_, err := Convert(b)
		require.ErrorIs(t, err, ErrMalformedBundle)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedBundle))
	})

	t.Run("patient without nhs number", func(t *testing.T) {
		b := mutate(t, func(entries []map[string]any) []map[string]any {
			delete(resourceOf(entries[0]), "identifier")
			return entries
		})
		_, err := Convert(b)
		require.ErrorIs(t, err, ErrMalformedBundle)
	})

	t.Run("nil bundle", func(t *testing.T) {
		_, err := Convert(nil)
		require.ErrorIs(t, err, ErrMalformedBundle)
	})
}

func TestConvertMissingLastUpdated(t *testing.T) {
	raw := []byte(`{"resourceType":"Bundle","type":"collection","entry":[
		{"resource":{"resourceType":"Patient","id":"1","identifier":[{"system":"https://fhir.nhs.uk/Id/nhs-number","value":"9449306753"}]}}
	]}`)
	b, err := fhir.ParseBundle(raw)
	require.NoError(t, err)

	doc, err := Convert(b)
	require.NoError(t, err)
	out := render(t, doc)
	assert.Equal(t, "UNK", out.EffectiveTime.NullFlavor)
	assert.Zero(t, doc.SectionCount)
	assert.Empty(t, doc.Warnings)
}

func TestDocumentJSON(t *testing.T) {
	doc, err := Convert(loadBundle(t))
	require.NoError(t, err)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var back Document
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, *doc, back)
}
