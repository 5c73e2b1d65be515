// Package llm is the optional LLM-assisted extraction path. It fills the
// same field set as the regex engine from the same text inputs, so the two
// candidate records can be compared field by field.
package llm

import (
	"context"
	"fmt"

	"github.com/cbp-tools/rulings-review/internal/extract"
)

// ExtractRequest carries the text pair and the exact field set the model
// must return, in order.
type ExtractRequest struct {
	RulingID       string
	NormalizedText string
	PrettyText     string
	FieldOrder     []string
}

// FieldExtractor is the interface the pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (extract.Record, []byte /*rawJSON*/, error)
}

// Error is a per-identifier LLM failure: API, network, auth, or response
// parsing. Never fatal for the batch; the regex record is still used.
type Error struct {
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm extraction failed: %s: %v", e.Reason, e.Cause)
	}
	return "llm extraction failed: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Cause }
