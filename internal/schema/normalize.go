package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cbp-tools/rulings-review/constants"
	"github.com/cbp-tools/rulings-review/internal/common"
	"github.com/cbp-tools/rulings-review/internal/extract"
)

// GoalRecord is a record normalized to the goal schema: fields restricted to
// the declared order with per-field formatting applied. JSON output keeps
// the declared field ordering; missing values serialize as null.
type GoalRecord struct {
	order      []string
	values     map[string]string
	provenance string
}

// RulingID returns the record's identifier.
func (g GoalRecord) RulingID() string { return g.values[constants.FieldRulingID] }

// Provenance reports the extraction path that produced the record.
func (g GoalRecord) Provenance() string { return g.provenance }

// Value returns a field value; found is false for missing/empty fields.
func (g GoalRecord) Value(field string) (string, bool) {
	v, ok := g.values[field]
	return v, ok && v != ""
}

// Fields returns the declared field order.
func (g GoalRecord) Fields() []string { return append([]string(nil), g.order...) }

// Values returns a copy of the field map.
func (g GoalRecord) Values() map[string]string {
	out := make(map[string]string, len(g.values))
	for k, v := range g.values {
		out[k] = v
	}
	return out
}

func (g GoalRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if v, ok := g.values[field]; ok && v != "" {
			val, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NormalizeSigner formats the signer field to the benchmark's expectations:
// a literal <br> between signature lines. Handles already-tagged values
// (variant spacing normalized), multiline plain text, and single lines.
func NormalizeSigner(val string) string {
	v := strings.TrimSpace(val)
	if v == "" {
		return ""
	}

	if strings.Contains(strings.ToLower(v), "<br") {
		v = strings.ReplaceAll(v, "<br />", "<br>")
		v = strings.ReplaceAll(v, "<br/>", "<br>")
		parts := make([]string, 0, 4)
		for _, p := range strings.Split(v, "<br>") {
			if p = common.CollapseWS(p); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, "<br>")
	}

	var lines []string
	for _, ln := range strings.Split(v, "\n") {
		if ln = common.CollapseWS(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) >= 2 {
		return strings.Join(lines, "<br>")
	}
	return common.CollapseWS(v)
}

// ToGoalSchema converts an extracted record to the goal schema: fields
// restricted and ordered per the benchmark spec, signer formatting normalized,
// whitespace collapsed on every field not flagged exact. Idempotent.
func ToGoalSchema(rec extract.Record, spec *Spec) (GoalRecord, error) {
	if rec.RulingID() == "" {
		return GoalRecord{}, fmt.Errorf("%w: %s is empty", common.ErrSchemaViolation, constants.FieldRulingID)
	}

	src := rec.Values()
	values := make(map[string]string, len(spec.FieldOrder))
	for _, field := range spec.FieldOrder {
		v := src[field]
		switch {
		case field == constants.FieldReplyingPerson:
			values[field] = NormalizeSigner(v)
		case spec.Exact(field):
			// Exact fields compare byte-for-byte, so internal spacing
			// must survive normalization.
			values[field] = strings.TrimSpace(v)
		default:
			values[field] = common.CollapseWS(v)
		}
	}

	return GoalRecord{
		order:      append([]string(nil), spec.FieldOrder...),
		values:     values,
		provenance: rec.Provenance(),
	}, nil
}

// RestrictFields builds a GoalRecord that keeps the record's values verbatim,
// only restricting and ordering them per the spec. Benchmark records go
// through here: their formatting is the comparison target and must never be
// rewritten.
func RestrictFields(rec extract.Record, spec *Spec) (GoalRecord, error) {
	if rec.RulingID() == "" {
		return GoalRecord{}, fmt.Errorf("%w: %s is empty", common.ErrSchemaViolation, constants.FieldRulingID)
	}

	src := rec.Values()
	values := make(map[string]string, len(spec.FieldOrder))
	for _, field := range spec.FieldOrder {
		values[field] = src[field]
	}

	return GoalRecord{
		order:      append([]string(nil), spec.FieldOrder...),
		values:     values,
		provenance: rec.Provenance(),
	}, nil
}
