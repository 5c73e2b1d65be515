// Package schema enforces the benchmark goal schema: canonical field order
// and per-field formatting rules. Every record, regex- or LLM-derived,
// passes through here identically before any comparison or export.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cbp-tools/rulings-review/constants"
)

// Spec declares the canonical field order and per-field comparison modes.
type Spec struct {
	// FieldOrder is the exact output ordering required by the benchmark.
	FieldOrder []string

	// ExactFields compare line-exact, preserving embedded <br> delimiters,
	// and are exempt from whitespace collapsing. Everything else compares
	// whitespace-insensitively.
	ExactFields map[string]bool
}

// DefaultSpec returns the built-in field order with the signer field marked
// exact. Used when no benchmark spec file is configured.
func DefaultSpec() *Spec {
	return &Spec{
		FieldOrder:  append([]string(nil), constants.DefaultFieldOrder...),
		ExactFields: map[string]bool{constants.FieldReplyingPerson: true},
	}
}

// specFileSchema validates the benchmark spec file shape before we trust
// its contents. An unparseable spec aborts the whole run.
const specFileSchema = `{
  "type": "object",
  "required": ["output"],
  "properties": {
    "output": {
      "type": "object",
      "required": ["field_order"],
      "properties": {
        "field_order": {
          "type": "array",
          "minItems": 1,
          "items": {"type": "string", "minLength": 1}
        },
        "exact_fields": {
          "type": "array",
          "items": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

type specFile struct {
	Output struct {
		FieldOrder  []string `json:"field_order"`
		ExactFields []string `json:"exact_fields"`
	} `json:"output"`
}

// LoadSpec reads and validates the benchmark spec file. Any parse or
// validation failure here is fatal for the run.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark spec: %w", err)
	}

	compiled, err := jsonschema.CompileString("benchmark_spec.json", specFileSchema)
	if err != nil {
		return nil, fmt.Errorf("compile spec schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse benchmark spec: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid benchmark spec: %w", err)
	}

	var sf specFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decode benchmark spec: %w", err)
	}

	spec := &Spec{
		FieldOrder:  sf.Output.FieldOrder,
		ExactFields: map[string]bool{constants.FieldReplyingPerson: true},
	}
	for _, f := range sf.Output.ExactFields {
		spec.ExactFields[strings.TrimSpace(f)] = true
	}
	return spec, nil
}

// Exact reports whether a field uses line-exact comparison.
func (s *Spec) Exact(field string) bool { return s.ExactFields[field] }
