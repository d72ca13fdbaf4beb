package ccda

import (
	"strconv"
	"strings"
	"time"

	"xhuma/internal/fhir"
)

const nullUnknown = "UNK"

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
}

// hl7Time converts a FHIR date or dateTime to an HL7 TS, keeping the
// source precision. It returns "" for anything it cannot read.
func hl7Time(v string) string {
	v = strings.TrimSpace(v)
	switch len(v) {
	case 0:
		return ""
	case 4, 7, 10:
		compact := strings.ReplaceAll(v, "-", "")
		if _, err := strconv.Atoi(compact); err != nil {
			return ""
		}
		return compact
	}
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		if layout == "2006-01-02T15:04:05" {
			return t.Format("20060102150405")
		}
		return t.Format("20060102150405-0700")
	}
	return ""
}

// displayDate renders a FHIR date for narrative text.
func displayDate(v string) string {
	if len(v) >= 10 {
		return v[:10]
	}
	return v
}

func timeValue(v string) *TimeValue {
	if ts := hl7Time(v); ts != "" {
		return &TimeValue{Value: ts}
	}
	return &TimeValue{NullFlavor: nullUnknown}
}

// timeRange builds an IVL_TS. high is omitted when empty.
func timeRange(low, high string) *TimeRange {
	r := &TimeRange{Low: timeValue(low)}
	if high != "" {
		r.High = timeValue(high)
	}
	return r
}

func typedRange(low, high string) *TimeRange {
	r := timeRange(low, high)
	r.Type = "IVL_TS"
	return r
}

// codeFor converts the first usable coding of c. A concept with text only
// becomes a nullFlavor code carrying originalText.
func codeFor(c fhir.CodeableConcept) *Code {
	for _, cd := range c.Coding {
		if cd.Code == "" {
			continue
		}
		out := &Code{Code: cd.Code, DisplayName: cd.Display}
		if sys, ok := codeSystems[cd.System]; ok {
			out.CodeSystem, out.CodeSystemName = sys.oid, sys.name
		}
		if out.DisplayName == "" {
			out.DisplayName = c.Text
		}
		return out
	}
	if c.Text != "" {
		return &Code{NullFlavor: "OTH", OriginalText: &OriginalText{Text: c.Text}}
	}
	return &Code{NullFlavor: nullUnknown}
}

func valueCD(c fhir.CodeableConcept) *Value {
	code := codeFor(c)
	return &Value{
		Type:        "CD",
		Code:        code.Code,
		CodeSystem:  code.CodeSystem,
		DisplayName: code.DisplayName,
		NullFlavor:  code.NullFlavor,
	}
}

func snomed(code, display string) *Code {
	return &Code{Code: code, CodeSystem: OIDSNOMED, CodeSystemName: "SNOMED CT", DisplayName: display}
}

func statusCode(code string) *Code { return &Code{Code: code} }

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func quantityText(q *fhir.Quantity) string {
	if q == nil || q.Value == nil {
		return ""
	}
	s := q.Comparator + formatFloat(q.Value)
	if q.Unit != "" {
		s += " " + q.Unit
	}
	return s
}

// mapGender converts FHIR administrative gender to the HL7 v3 code.
func mapGender(g string) *Code {
	switch strings.ToLower(g) {
	case "male":
		return &Code{Code: "M", CodeSystem: OIDAdminGender, DisplayName: "Male"}
	case "female":
		return &Code{Code: "F", CodeSystem: OIDAdminGender, DisplayName: "Female"}
	case "other", "unknown":
		return &Code{Code: "UN", CodeSystem: OIDAdminGender, DisplayName: "Undifferentiated"}
	default:
		return &Code{NullFlavor: nullUnknown}
	}
}

func newSection(templateID, loinc, title string) *Section {
	return &Section{
		TemplateIDs: []TemplateID{{Root: templateID}, {Root: templateID, Extension: "2015-08-01"}},
		Code:        &Code{Code: loinc, CodeSystem: OIDLOINC, CodeSystemName: "LOINC", DisplayName: title},
		Title:       title,
	}
}

func narrativeTable(headers []string, rows []NarrativeTr) *Narrative {
	return &Narrative{Table: &NarrativeTable{
		Border: "1",
		Thead:  &NarrativeThead{Tr: NarrativeTr{Ths: headers}},
		Tbody:  &NarrativeTbody{Trs: rows},
	}}
}

func row(cells ...string) NarrativeTr {
	return NarrativeTr{Tds: cells}
}

func joinDisplays(cs []fhir.CodeableConcept) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		if d := c.Display(); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, ", ")
}
