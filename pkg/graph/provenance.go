package graph

import "fmt"

// Provenance records why a node is present in a store.
type Provenance uint8

const (
	Unspecified Provenance = iota
	Reference
	Alternate
)

// String returns the tag written into interchange documents.
func (p Provenance) String() string {
	switch p {
	case Reference:
		return "REF"
	case Alternate:
		return "ALT"
	default:
		return ""
	}
}

// ParseProvenance is the inverse of Provenance.String.
func ParseProvenance(s string) (Provenance, error) {
	switch s {
	case "REF":
		return Reference, nil
	case "ALT":
		return Alternate, nil
	case "":
		return Unspecified, nil
	}
	return Unspecified, fmt.Errorf("unknown provenance %q", s)
}
