package extract

import (
	"log/slog"
	"time"

	"github.com/cbp-tools/rulings-review/constants"
	"github.com/cbp-tools/rulings-review/internal/fetch"
)

// Engine composes the per-field extractors into one structured record.
type Engine struct {
	extractors []NamedExtractor
	logger     *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{extractors: Extractors(), logger: logger}
}

// ExtractRecord runs every field extractor over the fetched text pair.
// A field with no matching pattern stays empty; that is a valid outcome,
// never an error, so this cannot fail.
func (e *Engine) ExtractRecord(res fetch.Result) Record {
	start := time.Now()

	values := make(map[string]string, len(e.extractors))
	found := 0
	for _, ex := range e.extractors {
		v := ex.Extract(res.NormalizedText, res.PrettyText)
		values[ex.Field] = v
		if v != "" {
			found++
		}
	}

	e.logger.Debug("extract.record.ok",
		"ruling_id", res.RulingID,
		"fields_found", found,
		"fields_total", len(e.extractors),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return NewRecord(res.RulingID, constants.ProvenanceRegex, values)
}
