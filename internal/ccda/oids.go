package ccda

const (
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

	OIDUSRealmHeader = "2.16.840.1.113883.10.20.22.1.1"
	OIDCCDDocument   = "2.16.840.1.113883.10.20.22.1.2"
	ExtCCDDocument   = "2015-08-01"

	OIDAllergiesSection     = "2.16.840.1.113883.10.20.22.2.6.1"
	OIDMedicationsSection   = "2.16.840.1.113883.10.20.22.2.1.1"
	OIDProblemsSection      = "2.16.840.1.113883.10.20.22.2.5.1"
	OIDImmunizationsSection = "2.16.840.1.113883.10.20.22.2.2.1"
	OIDResultsSection       = "2.16.840.1.113883.10.20.22.2.3.1"
	OIDEncountersSection    = "2.16.840.1.113883.10.20.22.2.22.1"

	OIDAllergyConcernAct     = "2.16.840.1.113883.10.20.22.4.30"
	OIDAllergyObservation    = "2.16.840.1.113883.10.20.22.4.7"
	OIDReactionObservation   = "2.16.840.1.113883.10.20.22.4.9"
	OIDProblemConcernAct     = "2.16.840.1.113883.10.20.22.4.3"
	OIDProblemObservation    = "2.16.840.1.113883.10.20.22.4.4"
	OIDMedicationActivity    = "2.16.840.1.113883.10.20.22.4.16"
	OIDMedicationInformation = "2.16.840.1.113883.10.20.22.4.23"
	OIDImmunizationActivity  = "2.16.840.1.113883.10.20.22.4.52"
	OIDImmunizationMedInfo   = "2.16.840.1.113883.10.20.22.4.54"
	OIDResultOrganizer       = "2.16.840.1.113883.10.20.22.4.1"
	OIDResultObservation     = "2.16.840.1.113883.10.20.22.4.2"
	OIDEncounterActivity     = "2.16.840.1.113883.10.20.22.4.49"

	LOINCSummary       = "34133-9"
	LOINCAllergies     = "48765-2"
	LOINCMedications   = "10160-0"
	LOINCProblems      = "11450-4"
	LOINCImmunizations = "11369-6"
	LOINCResults       = "30954-2"
	LOINCEncounters    = "46240-8"

	OIDLOINC        = "2.16.840.1.113883.6.1"
	OIDSNOMED       = "2.16.840.1.113883.6.96"
	OIDRxNorm       = "2.16.840.1.113883.6.88"
	OIDICD10        = "2.16.840.1.113883.6.3"
	OIDCVX          = "2.16.840.1.113883.12.292"
	OIDActClass     = "2.16.840.1.113883.5.6"
	OIDActCode      = "2.16.840.1.113883.5.4"
	OIDAdminGender  = "2.16.840.1.113883.5.1"
	OIDConfidential = "2.16.840.1.113883.5.25"
	OIDODSCode      = "2.16.840.1.113883.2.1.4.3"
)

// codeSystems maps FHIR system URIs to CDA code system OIDs.
var codeSystems = map[string]struct{ oid, name string }{
	"http://snomed.info/sct":                      {OIDSNOMED, "SNOMED CT"},
	"http://loinc.org":                            {OIDLOINC, "LOINC"},
	"http://www.nlm.nih.gov/research/umls/rxnorm": {OIDRxNorm, "RxNorm"},
	"http://hl7.org/fhir/sid/icd-10":              {OIDICD10, "ICD-10"},
	"http://hl7.org/fhir/sid/cvx":                 {OIDCVX, "CVX"},
}
