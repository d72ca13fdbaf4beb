package adapters

// Demographics is the subset of the PDS Patient resource xhuma uses.
type Demographics struct {
	NHSNumber    string   `json:"nhs_number"`
	Given        []string `json:"given,omitempty"`
	Family       string   `json:"family,omitempty"`
	Prefix       string   `json:"prefix,omitempty"`
	Gender       string   `json:"gender,omitempty"`
	BirthDate    string   `json:"birth_date,omitempty"`
	AddressLines []string `json:"address_lines,omitempty"`
	Postcode     string   `json:"postcode,omitempty"`
	// GPODSCode is the registered GP practice, used as the routing
	// organization for ITI-38.
	GPODSCode string `json:"gp_ods_code,omitempty"`
	Version   string `json:"version,omitempty"`
}

// RoutingInfo is the spine endpoint for an organization's GP Connect service.
type RoutingInfo struct {
	Organization string `json:"organization"`
	ASID         string `json:"asid"`
	PartyKey     string `json:"party_key,omitempty"`
	EndpointURL  string `json:"endpoint_url"`
}
