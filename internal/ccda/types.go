package ccda

import "encoding/xml"

// ClinicalDocument is the CDA R2 root. Field order is output order.
type ClinicalDocument struct {
	XMLName             xml.Name         `xml:"urn:hl7-org:v3 ClinicalDocument"`
	XSI                 string           `xml:"xmlns:xsi,attr"`
	RealmCode           *Code            `xml:"realmCode"`
	TypeID              *TypeID          `xml:"typeId"`
	TemplateIDs         []TemplateID     `xml:"templateId"`
	ID                  *InstanceID      `xml:"id"`
	Code                *Code            `xml:"code"`
	Title               string           `xml:"title"`
	EffectiveTime       *TimeValue       `xml:"effectiveTime"`
	ConfidentialityCode *Code            `xml:"confidentialityCode"`
	LanguageCode        *Code            `xml:"languageCode"`
	RecordTarget        *RecordTarget    `xml:"recordTarget"`
	Author              *Author          `xml:"author"`
	Custodian           *Custodian       `xml:"custodian"`
	DocumentationOf     *DocumentationOf `xml:"documentationOf"`
	Component           *Component       `xml:"component"`
}

type TypeID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

type TemplateID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr,omitempty"`
}

type InstanceID struct {
	Root       string `xml:"root,attr,omitempty"`
	Extension  string `xml:"extension,attr,omitempty"`
	NullFlavor string `xml:"nullFlavor,attr,omitempty"`
}

type Code struct {
	Code           string        `xml:"code,attr,omitempty"`
	CodeSystem     string        `xml:"codeSystem,attr,omitempty"`
	CodeSystemName string        `xml:"codeSystemName,attr,omitempty"`
	DisplayName    string        `xml:"displayName,attr,omitempty"`
	NullFlavor     string        `xml:"nullFlavor,attr,omitempty"`
	OriginalText   *OriginalText `xml:"originalText,omitempty"`
}

type OriginalText struct {
	Text string `xml:",chardata"`
}

// TimeValue is a TS: either a value or a nullFlavor.
type TimeValue struct {
	Value      string `xml:"value,attr,omitempty"`
	NullFlavor string `xml:"nullFlavor,attr,omitempty"`
}

// TimeRange is an IVL_TS.
type TimeRange struct {
	Type string     `xml:"xsi:type,attr,omitempty"`
	Low  *TimeValue `xml:"low,omitempty"`
	High *TimeValue `xml:"high,omitempty"`
}

type RecordTarget struct {
	PatientRole *PatientRole `xml:"patientRole"`
}

type PatientRole struct {
	IDs     []InstanceID `xml:"id"`
	Addr    *Address     `xml:"addr,omitempty"`
	Patient *Patient     `xml:"patient"`
}

type Patient struct {
	Name                     *Name      `xml:"name,omitempty"`
	AdministrativeGenderCode *Code      `xml:"administrativeGenderCode"`
	BirthTime                *TimeValue `xml:"birthTime"`
}

type Name struct {
	Use    string   `xml:"use,attr,omitempty"`
	Prefix string   `xml:"prefix,omitempty"`
	Given  []string `xml:"given,omitempty"`
	Family string   `xml:"family,omitempty"`
}

type Address struct {
	Use               string   `xml:"use,attr,omitempty"`
	StreetAddressLine []string `xml:"streetAddressLine,omitempty"`
	City              string   `xml:"city,omitempty"`
	PostalCode        string   `xml:"postalCode,omitempty"`
	Country           string   `xml:"country,omitempty"`
}

type Author struct {
	Time           *TimeValue      `xml:"time"`
	AssignedAuthor *AssignedAuthor `xml:"assignedAuthor"`
}

type AssignedAuthor struct {
	ID                      *InstanceID      `xml:"id"`
	AssignedAuthoringDevice *AuthoringDevice `xml:"assignedAuthoringDevice,omitempty"`
	RepresentedOrganization *Organization    `xml:"representedOrganization,omitempty"`
}

type AuthoringDevice struct {
	ManufacturerModelName string `xml:"manufacturerModelName,omitempty"`
	SoftwareName          string `xml:"softwareName,omitempty"`
}

type Organization struct {
	IDs   []InstanceID `xml:"id"`
	Names []string     `xml:"name,omitempty"`
}

type Custodian struct {
	AssignedCustodian *AssignedCustodian `xml:"assignedCustodian"`
}

type AssignedCustodian struct {
	RepresentedCustodianOrganization *Organization `xml:"representedCustodianOrganization"`
}

type DocumentationOf struct {
	ServiceEvent *ServiceEvent `xml:"serviceEvent"`
}

type ServiceEvent struct {
	ClassCode     string     `xml:"classCode,attr"`
	EffectiveTime *TimeRange `xml:"effectiveTime"`
}

type Component struct {
	StructuredBody *StructuredBody `xml:"structuredBody"`
}

type StructuredBody struct {
	Components []SectionComponent `xml:"component"`
}

type SectionComponent struct {
	Section *Section `xml:"section"`
}

type Section struct {
	TemplateIDs []TemplateID `xml:"templateId"`
	Code        *Code        `xml:"code"`
	Title       string       `xml:"title"`
	Text        *Narrative   `xml:"text"`
	Entries     []Entry      `xml:"entry,omitempty"`
}

// Narrative is the section's human-readable block.
type Narrative struct {
	Paragraph string          `xml:"paragraph,omitempty"`
	Table     *NarrativeTable `xml:"table,omitempty"`
}

type NarrativeTable struct {
	Border string          `xml:"border,attr,omitempty"`
	Thead  *NarrativeThead `xml:"thead"`
	Tbody  *NarrativeTbody `xml:"tbody"`
}

type NarrativeThead struct {
	Tr NarrativeTr `xml:"tr"`
}

type NarrativeTbody struct {
	Trs []NarrativeTr `xml:"tr"`
}

type NarrativeTr struct {
	Ths []string `xml:"th,omitempty"`
	Tds []string `xml:"td,omitempty"`
}

// Entry holds exactly one clinical statement.
type Entry struct {
	TypeCode                string                   `xml:"typeCode,attr,omitempty"`
	Act                     *Act                     `xml:"act,omitempty"`
	Organizer               *Organizer               `xml:"organizer,omitempty"`
	SubstanceAdministration *SubstanceAdministration `xml:"substanceAdministration,omitempty"`
	Encounter               *EncounterActivity       `xml:"encounter,omitempty"`
}

type Act struct {
	ClassCode          string              `xml:"classCode,attr"`
	MoodCode           string              `xml:"moodCode,attr"`
	TemplateIDs        []TemplateID        `xml:"templateId"`
	IDs                []InstanceID        `xml:"id"`
	Code               *Code               `xml:"code"`
	StatusCode         *Code               `xml:"statusCode"`
	EffectiveTime      *TimeRange          `xml:"effectiveTime,omitempty"`
	EntryRelationships []EntryRelationship `xml:"entryRelationship,omitempty"`
}

type EntryRelationship struct {
	TypeCode     string       `xml:"typeCode,attr"`
	InversionInd string       `xml:"inversionInd,attr,omitempty"`
	Observation  *Observation `xml:"observation,omitempty"`
}

type Observation struct {
	ClassCode          string              `xml:"classCode,attr"`
	MoodCode           string              `xml:"moodCode,attr"`
	NegationInd        string              `xml:"negationInd,attr,omitempty"`
	TemplateIDs        []TemplateID        `xml:"templateId"`
	IDs                []InstanceID        `xml:"id"`
	Code               *Code               `xml:"code"`
	Text               string              `xml:"text,omitempty"`
	StatusCode         *Code               `xml:"statusCode"`
	EffectiveTime      *TimeRange          `xml:"effectiveTime,omitempty"`
	Value              *Value              `xml:"value,omitempty"`
	InterpretationCode *Code               `xml:"interpretationCode,omitempty"`
	Participants       []Participant       `xml:"participant,omitempty"`
	EntryRelationships []EntryRelationship `xml:"entryRelationship,omitempty"`
	ReferenceRange     *ReferenceRange     `xml:"referenceRange,omitempty"`
}

// Value is an ANY-typed value; Type carries the xsi:type (CD, PQ, ST).
type Value struct {
	Type        string `xml:"xsi:type,attr"`
	Value       string `xml:"value,attr,omitempty"`
	Unit        string `xml:"unit,attr,omitempty"`
	Code        string `xml:"code,attr,omitempty"`
	CodeSystem  string `xml:"codeSystem,attr,omitempty"`
	DisplayName string `xml:"displayName,attr,omitempty"`
	NullFlavor  string `xml:"nullFlavor,attr,omitempty"`
	Text        string `xml:",chardata"`
}

type ReferenceRange struct {
	ObservationRange ObservationRange `xml:"observationRange"`
}

type ObservationRange struct {
	Text string `xml:"text"`
}

type Participant struct {
	TypeCode        string           `xml:"typeCode,attr"`
	ParticipantRole *ParticipantRole `xml:"participantRole"`
}

type ParticipantRole struct {
	ClassCode     string         `xml:"classCode,attr"`
	PlayingEntity *PlayingEntity `xml:"playingEntity"`
}

type PlayingEntity struct {
	ClassCode string `xml:"classCode,attr"`
	Code      *Code  `xml:"code"`
}

type SubstanceAdministration struct {
	ClassCode     string       `xml:"classCode,attr"`
	MoodCode      string       `xml:"moodCode,attr"`
	NegationInd   string       `xml:"negationInd,attr,omitempty"`
	TemplateIDs   []TemplateID `xml:"templateId"`
	IDs           []InstanceID `xml:"id"`
	Text          string       `xml:"text,omitempty"`
	StatusCode    *Code        `xml:"statusCode"`
	EffectiveTime *TimeRange   `xml:"effectiveTime,omitempty"`
	RouteCode     *Code        `xml:"routeCode,omitempty"`
	DoseQuantity  *Quantity    `xml:"doseQuantity,omitempty"`
	Consumable    *Consumable  `xml:"consumable"`
}

type Quantity struct {
	Value string `xml:"value,attr,omitempty"`
	Unit  string `xml:"unit,attr,omitempty"`
}

type Consumable struct {
	ManufacturedProduct *ManufacturedProduct `xml:"manufacturedProduct"`
}

type ManufacturedProduct struct {
	ClassCode            string                `xml:"classCode,attr"`
	TemplateIDs          []TemplateID          `xml:"templateId"`
	ManufacturedMaterial *ManufacturedMaterial `xml:"manufacturedMaterial"`
}

type ManufacturedMaterial struct {
	Code          *Code  `xml:"code"`
	LotNumberText string `xml:"lotNumberText,omitempty"`
}

type Organizer struct {
	ClassCode     string               `xml:"classCode,attr"`
	MoodCode      string               `xml:"moodCode,attr"`
	TemplateIDs   []TemplateID         `xml:"templateId"`
	IDs           []InstanceID         `xml:"id"`
	Code          *Code                `xml:"code"`
	StatusCode    *Code                `xml:"statusCode"`
	EffectiveTime *TimeRange           `xml:"effectiveTime,omitempty"`
	Components    []OrganizerComponent `xml:"component"`
}

type OrganizerComponent struct {
	Observation *Observation `xml:"observation"`
}

type EncounterActivity struct {
	ClassCode          string              `xml:"classCode,attr"`
	MoodCode           string              `xml:"moodCode,attr"`
	TemplateIDs        []TemplateID        `xml:"templateId"`
	IDs                []InstanceID        `xml:"id"`
	Code               *Code               `xml:"code"`
	EffectiveTime      *TimeRange          `xml:"effectiveTime"`
	EntryRelationships []EntryRelationship `xml:"entryRelationship,omitempty"`
}
