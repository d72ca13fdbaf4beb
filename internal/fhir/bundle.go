// Package fhir parses the GP Connect structured record bundle. It decodes
// STU3 and R4 payloads into one set of structs and indexes every entry so
// List items can be resolved by reference.
package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBundle is returned when the payload is not a FHIR Bundle.
var ErrInvalidBundle = errors.New("invalid FHIR bundle")

// Resource is one bundle entry with its raw JSON kept for typed decoding.
type Resource struct {
	Type    string
	ID      string
	FullURL string
	Raw     json.RawMessage
}

// Key is "Type/id".
func (r Resource) Key() string { return r.Type + "/" + r.ID }

// Bundle is an immutable parsed bundle.
type Bundle struct {
	ID        string
	Type      string
	Meta      Meta
	resources []Resource
	index     map[string]int
}

type bundleJSON struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Type         string `json:"type"`
	Meta         *Meta  `json:"meta"`
	Entry        []struct {
		FullURL  string          `json:"fullUrl"`
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

type resourceHeader struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
}

// ParseBundle decodes raw JSON. Entries without a resource are ignored;
// unknown elements such as fhir_comments are dropped by the typed decoders.
func ParseBundle(raw []byte) (*Bundle, error) {
	var bj bundleJSON
	if err := json.Unmarshal(raw, &bj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if bj.ResourceType != "Bundle" {
		return nil, fmt.Errorf("%w: resourceType %q", ErrInvalidBundle, bj.ResourceType)
	}

	b := &Bundle{
		ID:    bj.ID,
		Type:  bj.Type,
		index: make(map[string]int, len(bj.Entry)*2),
	}
	if bj.Meta != nil {
		b.Meta = *bj.Meta
	}
	for i, e := range bj.Entry {
		if len(e.Resource) == 0 || string(e.Resource) == "null" {
			continue
		}
		var h resourceHeader
		if err := json.Unmarshal(e.Resource, &h); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidBundle, i, err)
		}
		if h.ResourceType == "" {
			return nil, fmt.Errorf("%w: entry %d has no resourceType", ErrInvalidBundle, i)
		}
		r := Resource{Type: h.ResourceType, ID: h.ID, FullURL: e.FullURL, Raw: e.Resource}
		pos := len(b.resources)
		b.resources = append(b.resources, r)
		if h.ID != "" {
			if _, dup := b.index[r.Key()]; !dup {
				b.index[r.Key()] = pos
			}
		}
		if e.FullURL != "" {
			if _, dup := b.index[e.FullURL]; !dup {
				b.index[e.FullURL] = pos
			}
		}
	}
	return b, nil
}

// Resources returns the entries in source order.
func (b *Bundle) Resources() []Resource {
	out := make([]Resource, len(b.resources))
	copy(out, b.resources)
	return out
}

// OfType returns entries of resourceType in source order.
func (b *Bundle) OfType(resourceType string) []Resource {
	var out []Resource
	for _, r := range b.resources {
		if r.Type == resourceType {
			out = append(out, r)
		}
	}
	return out
}

// Resolve finds the entry a reference points at. It accepts "Type/id",
// absolute URLs ending in Type/id and fullUrl values such as urn:uuid:...
func (b *Bundle) Resolve(ref string) (Resource, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resource{}, false
	}
	if i, ok := b.index[ref]; ok {
		return b.resources[i], true
	}
	// drop any _history suffix and keep the trailing Type/id
	if i := strings.Index(ref, "/_history/"); i >= 0 {
		ref = ref[:i]
	}
	parts := strings.Split(ref, "/")
	if len(parts) >= 2 {
		key := parts[len(parts)-2] + "/" + parts[len(parts)-1]
		if i, ok := b.index[key]; ok {
			return b.resources[i], true
		}
	}
	return Resource{}, false
}

// Decode unmarshals a resource into T.
func Decode[T any](r Resource) (*T, error) {
	var v T
	if err := json.Unmarshal(r.Raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Key(), err)
	}
	return &v, nil
}

// Patient returns the first Patient entry.
func (b *Bundle) Patient() (*Patient, bool, error) {
	ps := b.OfType("Patient")
	if len(ps) == 0 {
		return nil, false, nil
	}
	p, err := Decode[Patient](ps[0])
	if err != nil {
		return nil, true, err
	}
	return p, true, nil
}
