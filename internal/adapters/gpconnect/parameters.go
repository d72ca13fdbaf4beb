package gpconnect

import "xhuma/pkg/domain"

type parameters struct {
	ResourceType string      `json:"resourceType"`
	Parameter    []parameter `json:"parameter"`
}

type parameter struct {
	Name            string      `json:"name"`
	ValueIdentifier *identifier `json:"valueIdentifier,omitempty"`
	Part            []part      `json:"part,omitempty"`
}

type identifier struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type part struct {
	Name         string `json:"name"`
	ValueBoolean *bool  `json:"valueBoolean,omitempty"`
}

func boolPart(name string, v bool) part {
	return part{Name: name, ValueBoolean: &v}
}

// structuredRecordParameters requests every clinical area the CCDA document
// renders. Resolved allergies and prescription issues are excluded.
func structuredRecordParameters(nhs domain.NHSNumber) parameters {
	return parameters{
		ResourceType: "Parameters",
		Parameter: []parameter{
			{Name: "patientNHSNumber", ValueIdentifier: &identifier{System: domain.NHSNumberSystem, Value: nhs.String()}},
			{Name: "includeAllergies", Part: []part{boolPart("includeResolvedAllergies", false)}},
			{Name: "includeMedication", Part: []part{boolPart("includePrescriptionIssues", false)}},
			{Name: "includeProblems"},
			{Name: "includeImmunisations"},
			{Name: "includeInvestigations"},
			{Name: "includeConsultations"},
		},
	}
}
