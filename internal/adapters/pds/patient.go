package pds

import (
	"encoding/json"

	"xhuma/internal/adapters"
	"xhuma/pkg/domain"
)

type patientResource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Meta         struct {
		VersionID string `json:"versionId"`
	} `json:"meta"`
	Identifier []struct {
		System string `json:"system"`
		Value  string `json:"value"`
	} `json:"identifier"`
	Name []struct {
		Use    string   `json:"use"`
		Family string   `json:"family"`
		Given  []string `json:"given"`
		Prefix []string `json:"prefix"`
	} `json:"name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birthDate"`
	Address   []struct {
		Use        string   `json:"use"`
		Line       []string `json:"line"`
		PostalCode string   `json:"postalCode"`
	} `json:"address"`
	GeneralPractitioner []struct {
		Identifier struct {
			System string `json:"system"`
			Value  string `json:"value"`
		} `json:"identifier"`
	} `json:"generalPractitioner"`
}

func parsePatient(body []byte) (*adapters.Demographics, error) {
	var p patientResource
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, adapters.InvalidResponse(adapterName, "decode patient", err)
	}
	if p.ResourceType != "Patient" {
		return nil, adapters.InvalidResponse(adapterName, "unexpected resourceType "+p.ResourceType, nil)
	}

	d := &adapters.Demographics{
		NHSNumber: p.ID,
		Gender:    p.Gender,
		BirthDate: p.BirthDate,
		Version:   p.Meta.VersionID,
	}
	for _, id := range p.Identifier {
		if id.System == domain.NHSNumberSystem && id.Value != "" {
			d.NHSNumber = id.Value
			break
		}
	}
	if d.NHSNumber == "" {
		return nil, adapters.InvalidResponse(adapterName, "patient has no NHS number", nil)
	}

	// usual name first, then official, then whatever is listed first
	nameIdx := -1
	for _, use := range []string{"usual", "official"} {
		for i, n := range p.Name {
			if n.Use == use {
				nameIdx = i
				break
			}
		}
		if nameIdx >= 0 {
			break
		}
	}
	if nameIdx < 0 && len(p.Name) > 0 {
		nameIdx = 0
	}
	if nameIdx >= 0 {
		n := p.Name[nameIdx]
		d.Family = n.Family
		d.Given = n.Given
		if len(n.Prefix) > 0 {
			d.Prefix = n.Prefix[0]
		}
	}

	for i, a := range p.Address {
		if a.Use == "home" || i == len(p.Address)-1 {
			d.AddressLines = a.Line
			d.Postcode = a.PostalCode
			break
		}
	}

	if len(p.GeneralPractitioner) > 0 {
		d.GPODSCode = p.GeneralPractitioner[0].Identifier.Value
	}
	return d, nil
}
