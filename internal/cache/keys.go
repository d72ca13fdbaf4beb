package cache

import (
	"strings"

	"xhuma/pkg/domain"
)

// Kind groups keys that share a lifetime policy.
type Kind string

const (
	KindRoutingInfo      Kind = "routing-info"
	KindClinicalDocument Kind = "clinical-document"
	KindPatientAlias     Kind = "patient-alias"
)

// RoutingKey addresses the routing info for a patient's registered practice.
func RoutingKey(patient domain.NHSNumber, organization string) string {
	return "routing:" + patient.String() + ":" + strings.ToUpper(organization)
}

// DocumentKey addresses the converted CCDA document for a patient.
func DocumentKey(patient domain.NHSNumber) string {
	return "document:" + patient.String()
}

// AliasKey addresses the NHS number recorded for a caller-local patient id.
func AliasKey(ceid string) string {
	return "ceid:" + ceid
}

// KindOf derives the kind from a key's prefix, for metrics labels.
func KindOf(key string) Kind {
	prefix, _, _ := strings.Cut(key, ":")
	switch prefix {
	case "routing":
		return KindRoutingInfo
	case "document":
		return KindClinicalDocument
	case "ceid":
		return KindPatientAlias
	default:
		return Kind(prefix)
	}
}
