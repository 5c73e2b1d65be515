package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cbp-tools/rulings-review/internal/fetch"
)

// TierResult is one (ruling, tier) probe outcome for the diagnostics report.
type TierResult struct {
	RulingID      string
	Tier          fetch.Tier
	TextLength    int
	HasLineBreaks bool
	Status        string
}

// RunAllTiers probes every source for every ruling id, ignoring the cache
// and the usual first-success-wins rule. The point is to see what each tier
// actually returns so tier ordering and text quality can be judged.
func RunAllTiers(ctx context.Context, ids []string, sources []fetch.Source, logger *slog.Logger) []TierResult {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]TierResult, 0, len(ids)*len(sources))
	for _, id := range ids {
		for _, src := range sources {
			start := time.Now()
			entry, err := src.Fetch(ctx, id)
			if err != nil {
				results = append(results, TierResult{
					RulingID: id,
					Tier:     src.Tier(),
					Status:   "Failed: " + truncateErr(err, 50),
				})
				logger.Warn("report.fetchers.tier_failed",
					"ruling_id", id, "tier", string(src.Tier()), "error", err,
					"elapsed_ms", time.Since(start).Milliseconds())
				continue
			}
			results = append(results, TierResult{
				RulingID:      id,
				Tier:          src.Tier(),
				TextLength:    len(entry.NormalizedText),
				HasLineBreaks: strings.ContainsAny(entry.PrettyText, "\r\n"),
				Status:        "Success",
			})
			logger.Info("report.fetchers.tier_ok",
				"ruling_id", id, "tier", string(src.Tier()),
				"text_length", len(entry.NormalizedText),
				"elapsed_ms", time.Since(start).Milliseconds())
		}
	}
	return results
}

// WriteFetchersReport renders the tier-comparison workbook.
func WriteFetchersReport(path string, results []TierResult) error {
	f := excelize.NewFile()
	const sheet = "tier_comparison"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}
	styles, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("workbook styles: %w", err)
	}

	header := []any{"ruling_id", "tier", "text_length", "has_line_breaks", "status"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, res := range results {
		row := []any{res.RulingID, string(res.Tier), res.TextLength, res.HasLineBreaks, res.Status}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
		// Line-break quality at a glance.
		style := styles.red
		if res.HasLineBreaks {
			style = styles.green
		}
		paint(f, sheet, 4, i+2, style)
	}
	if err := styleHeader(f, sheet, styles.header, len(header)); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "B", 16)
	_ = f.SetColWidth(sheet, "C", "D", 16)
	_ = f.SetColWidth(sheet, "E", "E", 50)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	if err := os.WriteFile(path, data.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write fetchers report: %w", err)
	}
	return nil
}

func truncateErr(err error, n int) string {
	s := err.Error()
	if len(s) <= n {
		return s
	}
	return s[:n]
}
