// Package extract is the regex-driven field extraction engine. Each field
// has one extraction function over the normalized and/or pretty text; fields
// are extracted independently and composed into a single record.
package extract

import (
	"github.com/cbp-tools/rulings-review/constants"
)

// Record holds the fields extracted from one ruling. It is built once per
// extraction and never mutated; an empty value means "not found", which is a
// valid outcome rather than an error.
type Record struct {
	rulingID   string
	provenance string
	values     map[string]string
}

// NewRecord builds an immutable record. The values map is copied.
func NewRecord(rulingID, provenance string, values map[string]string) Record {
	copied := make(map[string]string, len(values)+1)
	for k, v := range values {
		copied[k] = v
	}
	copied[constants.FieldRulingID] = rulingID
	return Record{rulingID: rulingID, provenance: provenance, values: copied}
}

// RulingID returns the identifier this record was extracted from.
func (r Record) RulingID() string { return r.rulingID }

// Provenance reports which extraction path produced the record
// (constants.ProvenanceRegex or constants.ProvenanceLLM).
func (r Record) Provenance() string { return r.provenance }

// Value returns a field value; found is false when the field was not
// extracted (absent or empty).
func (r Record) Value(field string) (value string, found bool) {
	v, ok := r.values[field]
	return v, ok && v != ""
}

// Values returns a copy of the field map.
func (r Record) Values() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
