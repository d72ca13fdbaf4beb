package ccda

import (
	"crypto/sha256"

	"github.com/google/uuid"

	"xhuma/internal/fhir"
)

// namespace roots every name-based id the converter issues.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:xhuma:ccda"))

// documentIDFor hashes the bundle header and every entry in order so the id
// changes whenever the content does.
func documentIDFor(b *fhir.Bundle) uuid.UUID {
	h := sha256.New()
	h.Write([]byte(b.ID))
	h.Write([]byte{0})
	h.Write([]byte(b.Meta.LastUpdated))
	for _, r := range b.Resources() {
		h.Write([]byte{0})
		h.Write([]byte(r.Key()))
		h.Write([]byte{0})
		h.Write(r.Raw)
	}
	return uuid.NewSHA1(namespace, h.Sum(nil))
}

// idSource issues entry ids scoped to one document.
type idSource struct {
	doc uuid.UUID
}

// id names a statement by the resource it renders and its role, so the
// act and the observation for the same resource get distinct ids.
func (s idSource) id(resourceKey, role string) []InstanceID {
	return []InstanceID{{Root: uuid.NewSHA1(s.doc, []byte(resourceKey+"#"+role)).String()}}
}
