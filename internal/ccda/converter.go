// Package ccda converts a GP Connect structured record bundle into a C-CDA
// Continuity of Care Document.
//
// Conversion is a pure function of the bundle: ids are name-based UUIDs
// derived from its content and the document time is the bundle's
// meta.lastUpdated, so the same bundle always yields the same bytes.
package ccda

import (
	"encoding/xml"
	"errors"
	"fmt"

	"xhuma/internal/fhir"
	"xhuma/pkg/domain"
	dErrors "xhuma/pkg/domain-errors"
)

// ErrMalformedBundle is returned when the bundle has no usable patient.
var ErrMalformedBundle = errors.New("malformed bundle")

const (
	odsSystem   = "https://fhir.nhs.uk/Id/ods-organization-code"
	deviceName  = "Xhuma"
	docTitle    = "Summary Care Record"
	docLOINCDis = "Summarization of Episode Note"
)

// Document is a rendered CCDA and the sections that were left out.
type Document struct {
	DocumentID   string    `json:"document_id"`
	XML          string    `json:"xml"`
	Warnings     []Warning `json:"warnings"`
	SectionCount int       `json:"section_count"`
}

// Convert renders bundle as CCDA XML.
func Convert(bundle *fhir.Bundle) (*Document, error) {
	if bundle == nil {
		return nil, malformed("no bundle")
	}
	patient, found, err := bundle.Patient()
	if err != nil {
		return nil, malformed(err.Error())
	}
	if !found {
		return nil, malformed("no Patient resource")
	}
	nhs, err := domain.ParseNHSNumber(patient.IdentifierValue(domain.NHSNumberSystem))
	if err != nil {
		return nil, malformed("patient has no valid NHS number identifier")
	}

	docID := documentIDFor(bundle)
	b := builder{bundle: bundle, ids: idSource{doc: docID}}
	effective := timeValue(bundle.Meta.LastUpdated)

	doc := header(docID.String(), effective, nhs, patient)
	doc.Custodian = custodian(bundle)

	warnings := []Warning{}
	body := &StructuredBody{}
	for _, r := range bundle.OfType("List") {
		l, err := fhir.Decode[fhir.List](r)
		if err != nil {
			warnings = append(warnings, Warning{Section: r.Key(), Reason: "malformed section"})
			continue
		}
		spec, title, ok := lookupSection(l)
		if !ok {
			warnings = append(warnings, Warning{Section: title, Reason: "unrecognized section"})
			continue
		}
		sec, err := b.buildSection(spec, l)
		if err != nil {
			warnings = append(warnings, Warning{Section: title, Reason: skipReason(err)})
			continue
		}
		body.Components = append(body.Components, SectionComponent{Section: sec})
	}
	doc.Component = &Component{StructuredBody: body}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode ccda")
	}
	return &Document{
		DocumentID:   docID.String(),
		XML:          xml.Header + string(out),
		Warnings:     warnings,
		SectionCount: len(body.Components),
	}, nil
}

func malformed(detail string) error {
	return dErrors.Wrap(fmt.Errorf("%w: %s", ErrMalformedBundle, detail), dErrors.CodeMalformedBundle, "bundle cannot be converted")
}

func header(docID string, effective *TimeValue, nhs domain.NHSNumber, p *fhir.Patient) *ClinicalDocument {
	return &ClinicalDocument{
		XSI:       XSINamespace,
		RealmCode: &Code{Code: "GB"},
		TypeID:    &TypeID{Root: "2.16.840.1.113883.1.3", Extension: "POCD_HD000040"},
		TemplateIDs: []TemplateID{
			{Root: OIDUSRealmHeader, Extension: "2015-08-01"},
			{Root: OIDCCDDocument, Extension: ExtCCDDocument},
		},
		ID:                  &InstanceID{Root: docID},
		Code:                &Code{Code: LOINCSummary, CodeSystem: OIDLOINC, CodeSystemName: "LOINC", DisplayName: docLOINCDis},
		Title:               docTitle,
		EffectiveTime:       effective,
		ConfidentialityCode: &Code{Code: "N", CodeSystem: OIDConfidential},
		LanguageCode:        &Code{Code: "en-GB"},
		RecordTarget:        recordTarget(nhs, p),
		Author: &Author{
			Time: effective,
			AssignedAuthor: &AssignedAuthor{
				ID:                      &InstanceID{NullFlavor: "NA"},
				AssignedAuthoringDevice: &AuthoringDevice{ManufacturerModelName: deviceName, SoftwareName: deviceName},
			},
		},
		DocumentationOf: &DocumentationOf{ServiceEvent: &ServiceEvent{
			ClassCode:     "PCPR",
			EffectiveTime: &TimeRange{Low: effective, High: effective},
		}},
	}
}

func recordTarget(nhs domain.NHSNumber, p *fhir.Patient) *RecordTarget {
	role := &PatientRole{
		IDs: []InstanceID{{Root: domain.NHSNumberOID, Extension: nhs.String()}},
		Patient: &Patient{
			AdministrativeGenderCode: mapGender(p.Gender),
			BirthTime:                timeValue(p.BirthDate),
		},
	}
	if n, ok := p.PreferredName(); ok {
		name := &Name{Use: "L", Given: n.Given, Family: n.Family}
		if len(n.Prefix) > 0 {
			name.Prefix = n.Prefix[0]
		}
		role.Patient.Name = name
	}
	if a, ok := homeAddress(p.Address); ok {
		role.Addr = &Address{
			Use:               "HP",
			StreetAddressLine: a.Line,
			City:              a.City,
			PostalCode:        a.PostalCode,
			Country:           a.Country,
		}
	}
	return &RecordTarget{PatientRole: role}
}

func homeAddress(as []fhir.Address) (fhir.Address, bool) {
	for _, a := range as {
		if a.Use == "home" {
			return a, true
		}
	}
	if len(as) > 0 {
		return as[0], true
	}
	return fhir.Address{}, false
}

// custodian names the first Organization with an ODS code.
func custodian(b *fhir.Bundle) *Custodian {
	org := &Organization{IDs: []InstanceID{{NullFlavor: nullUnknown}}}
	for _, r := range b.OfType("Organization") {
		o, err := fhir.Decode[organization](r)
		if err != nil {
			continue
		}
		for _, id := range o.Identifier {
			if id.System == odsSystem && id.Value != "" {
				org = &Organization{IDs: []InstanceID{{Root: OIDODSCode, Extension: id.Value}}}
				if o.Name != "" {
					org.Names = []string{o.Name}
				}
				return &Custodian{AssignedCustodian: &AssignedCustodian{RepresentedCustodianOrganization: org}}
			}
		}
	}
	return &Custodian{AssignedCustodian: &AssignedCustodian{RepresentedCustodianOrganization: org}}
}

type organization struct {
	Identifier []fhir.Identifier `json:"identifier"`
	Name       string            `json:"name"`
}
