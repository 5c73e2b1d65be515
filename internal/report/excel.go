// Package report renders review artifacts for human triage: the XLSX review
// workbook and the fetcher diagnostics workbook.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cbp-tools/rulings-review/constants"
	"github.com/cbp-tools/rulings-review/internal/bench"
	"github.com/cbp-tools/rulings-review/internal/schema"
)

const (
	noDataPlaceholder = "[No Data Extracted]"
	noBenchLabel      = "No Bench"

	fillGreen  = "C6EFCE"
	fillRed    = "FFC7CE"
	fillYellow = "FFEB9C"
)

const rulingSearchURL = "https://rulings.cbp.gov/search?term="

// ReviewInput bundles everything the review workbook shows.
type ReviewInput struct {
	Triage     bench.TriageReport
	Spec       *schema.Spec
	Regex      []schema.GoalRecord
	LLM        []schema.GoalRecord
	Bench      []schema.GoalRecord
	LLMEnabled bool
	Timestamp  time.Time
}

// Reviewer produces XLSX bytes for the review workbook.
type Reviewer struct {
	logger *slog.Logger
}

func NewReviewer(logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{logger: logger}
}

type workbookStyles struct {
	header int
	green  int
	red    int
	yellow int
}

func newStyles(f *excelize.File) (workbookStyles, error) {
	var s workbookStyles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"000000"}},
		Alignment: &excelize.Alignment{
			Horizontal: "left", Vertical: "top",
		},
	})
	if err != nil {
		return s, err
	}
	fill := func(color string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
	}
	if s.green, err = fill(fillGreen); err != nil {
		return s, err
	}
	if s.red, err = fill(fillRed); err != nil {
		return s, err
	}
	s.yellow, err = fill(fillYellow)
	return s, err
}

// BuildReviewWorkbook renders the three-sheet review workbook: metadata,
// summary (one row per ruling with disagreement counts) and details (long
// format, one row per method per ruling, diff cells highlighted).
func (r *Reviewer) BuildReviewWorkbook(in ReviewInput) ([]byte, error) {
	start := time.Now()
	if in.Spec == nil {
		in.Spec = schema.DefaultSpec()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	f := excelize.NewFile()
	styles, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("workbook styles: %w", err)
	}

	if err := r.writeMetadataSheet(f, styles, in); err != nil {
		return nil, err
	}
	if err := r.writeSummarySheet(f, styles, in); err != nil {
		return nil, err
	}
	if err := r.writeDetailsSheet(f, styles, in); err != nil {
		return nil, err
	}

	// excelize starts with a default sheet; the metadata sheet replaces it.
	if idx, _ := f.GetSheetIndex("metadata"); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	r.logger.Info("report.review.ok",
		"rulings", len(in.Triage),
		"llm_enabled", in.LLMEnabled,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteReviewWorkbook builds the workbook and writes it to path, creating
// parent directories as needed.
func (r *Reviewer) WriteReviewWorkbook(path string, in ReviewInput) error {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return fmt.Errorf("review workbook path must end in .xlsx, got %q", path)
	}
	data, err := r.BuildReviewWorkbook(in)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write review workbook: %w", err)
	}
	return nil
}

func (r *Reviewer) writeMetadataSheet(f *excelize.File, styles workbookStyles, in ReviewInput) error {
	const sheet = "metadata"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Key", "Value"},
		{"Execution Timestamp", in.Timestamp.Format("2006-01-02 15:04:05")},
		{"LLM Extraction Enabled", yesNo(in.LLMEnabled)},
		{"LLM Extraction Available", yesNo(len(in.LLM) > 0)},
		{"Total Rulings Processed", len(in.Regex)},
		{"Rulings with LLM Results", len(in.LLM)},
		{"Rulings without LLM Results", len(in.Regex) - len(in.LLM)},
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	if err := styleHeader(f, sheet, styles.header, 2); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "A", 30)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	return nil
}

func (r *Reviewer) writeSummarySheet(f *excelize.File, styles workbookStyles, in ReviewInput) error {
	const sheet = "summary"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}

	header := []any{
		"ruling_id", "has_bench", "has_llm",
		"n_disagree_regex_llm", "disagree_fields_regex_llm",
		"n_disagree_regex_bench", "disagree_fields_regex_bench",
		"n_disagree_llm_bench", "disagree_fields_llm_bench",
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	benchByID := goalRecordsByID(in.Bench)
	llmByID := goalRecordsByID(in.LLM)

	ids := make([]string, 0, len(in.Triage))
	for id := range in.Triage {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rowNum := 2
	for _, id := range ids {
		fields := in.Triage[id]
		_, hasBench := benchByID[id]
		_, hasLLM := llmByID[id]

		var regexLLM, regexBench, llmBench []string
		for _, field := range in.Spec.FieldOrder {
			entry, flagged := fields[field]
			if !flagged {
				continue
			}
			if entry.LLM != "" && entry.Regex != entry.LLM {
				regexLLM = append(regexLLM, field)
			}
			if entry.Bench != "" && entry.Regex != entry.Bench {
				regexBench = append(regexBench, field)
			}
			if entry.Bench != "" && entry.LLM != "" && entry.LLM != entry.Bench {
				llmBench = append(llmBench, field)
			}
		}

		row := []any{
			id, yesNo(hasBench), yesNo(hasLLM),
			len(regexLLM), joinOrNA(regexLLM),
		}
		if hasBench {
			row = append(row,
				len(regexBench), joinOrNA(regexBench),
				len(llmBench), joinOrNA(llmBench))
		} else {
			row = append(row, noBenchLabel, noBenchLabel, noBenchLabel, noBenchLabel)
		}
		if err := setRow(f, sheet, rowNum, row); err != nil {
			return err
		}

		// Yes/No fills on the has_bench and has_llm columns.
		for col, yes := range map[int]bool{2: hasBench, 3: hasLLM} {
			cell, _ := excelize.CoordinatesToCellName(col, rowNum)
			style := styles.red
			if yes {
				style = styles.green
			}
			_ = f.SetCellStyle(sheet, cell, cell, style)
		}
		rowNum++
	}

	if err := styleHeader(f, sheet, styles.header, len(header)); err != nil {
		return err
	}
	if rowNum > 2 {
		last, _ := excelize.CoordinatesToCellName(len(header), rowNum-1)
		_ = f.AutoFilter(sheet, "A1:"+last, nil)
	}
	_ = f.SetColWidth(sheet, "A", "C", 14)
	_ = f.SetColWidth(sheet, "D", "I", 28)
	return nil
}

func (r *Reviewer) writeDetailsSheet(f *excelize.File, styles workbookStyles, in ReviewInput) error {
	const sheet = "details"
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}

	fieldCols := make([]string, 0, len(in.Spec.FieldOrder))
	for _, field := range in.Spec.FieldOrder {
		if field != constants.FieldRulingID {
			fieldCols = append(fieldCols, field)
		}
	}

	header := append([]any{"ruling_id", "extraction_type", "url"}, toAnys(fieldCols)...)
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	regexByID := goalRecordsByID(in.Regex)
	llmByID := goalRecordsByID(in.LLM)
	benchByID := goalRecordsByID(in.Bench)

	ids := make([]string, 0, len(in.Triage))
	for id := range in.Triage {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	methodStyle := map[string]int{"regex": styles.red, "llm": styles.yellow, "bench": styles.green}

	rowNum := 2
	for _, id := range ids {
		url := rulingSearchURL + id
		benchRec, hasBench := benchByID[id]

		type methodRow struct {
			name string
			rec  schema.GoalRecord
			row  int
		}
		var methods []methodRow
		if rec, ok := regexByID[id]; ok {
			methods = append(methods, methodRow{"regex", rec, 0})
		}
		if rec, ok := llmByID[id]; ok {
			methods = append(methods, methodRow{"llm", rec, 0})
		}
		if hasBench {
			methods = append(methods, methodRow{"bench", benchRec, 0})
		}

		for mi := range methods {
			m := &methods[mi]
			m.row = rowNum
			row := []any{id, m.name, url}
			for _, field := range fieldCols {
				row = append(row, displayValue(m.rec, field))
			}
			if err := setRow(f, sheet, rowNum, row); err != nil {
				return err
			}
			cell, _ := excelize.CoordinatesToCellName(2, rowNum)
			_ = f.SetCellStyle(sheet, cell, cell, methodStyle[m.name])
			rowNum++
		}

		// Diff highlighting per field column. With a benchmark the bench row
		// is the anchor; without one regex and llm are compared directly.
		for ci, field := range fieldCols {
			col := ci + 4
			var regexRow, llmRow, benchRow int
			for _, m := range methods {
				switch m.name {
				case "regex":
					regexRow = m.row
				case "llm":
					llmRow = m.row
				case "bench":
					benchRow = m.row
				}
			}
			var benchVal string
			if hasBench {
				benchVal, _ = benchRec.Value(field)
				paint(f, sheet, col, benchRow, styles.green)
			}
			if regexRow > 0 {
				v, _ := regexByID[id].Value(field)
				switch {
				case hasBench && v == benchVal:
					paint(f, sheet, col, regexRow, styles.green)
				case hasBench:
					paint(f, sheet, col, regexRow, styles.red)
				}
			}
			if llmRow > 0 {
				v, _ := llmByID[id].Value(field)
				switch {
				case hasBench && v == benchVal:
					paint(f, sheet, col, llmRow, styles.green)
				case hasBench:
					paint(f, sheet, col, llmRow, styles.yellow)
				}
			}
			if !hasBench && regexRow > 0 && llmRow > 0 {
				rv, _ := regexByID[id].Value(field)
				lv, _ := llmByID[id].Value(field)
				if rv == lv {
					paint(f, sheet, col, regexRow, styles.green)
					paint(f, sheet, col, llmRow, styles.green)
				} else {
					paint(f, sheet, col, regexRow, styles.red)
					paint(f, sheet, col, llmRow, styles.yellow)
				}
			}
		}
	}

	if err := styleHeader(f, sheet, styles.header, len(header)); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "B", 14)
	_ = f.SetColWidth(sheet, "C", "C", 44)
	if n := len(header); n > 3 {
		startCol, _ := excelize.ColumnNumberToName(4)
		endCol, _ := excelize.ColumnNumberToName(n)
		_ = f.SetColWidth(sheet, startCol, endCol, 32)
	}
	return nil
}

// displayValue renders a field for the details sheet. Signer line breaks
// become double CRLF so Excel keeps the sub-lines splittable.
func displayValue(rec schema.GoalRecord, field string) string {
	v, ok := rec.Value(field)
	if !ok {
		return noDataPlaceholder
	}
	if field == constants.FieldReplyingPerson {
		return brToExcelBreaks(v)
	}
	return v
}

func brToExcelBreaks(val string) string {
	for _, br := range []string{"<br />", "<br/>", "<br>"} {
		val = strings.ReplaceAll(val, br, "\n")
	}
	var lines []string
	for _, ln := range strings.Split(strings.ReplaceAll(val, "\r\n", "\n"), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return strings.Join(lines, "\r\n\r\n")
}

func paint(f *excelize.File, sheet string, col, row, style int) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellStyle(sheet, cell, cell, style)
}

func ensureSheet(f *excelize.File, name string) error {
	if idx, _ := f.GetSheetIndex(name); idx >= 0 {
		return nil
	}
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	// Drop the default sheet once a real one exists.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 && name != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func styleHeader(f *excelize.File, sheet string, style, cols int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func goalRecordsByID(recs []schema.GoalRecord) map[string]schema.GoalRecord {
	m := make(map[string]schema.GoalRecord, len(recs))
	for _, rec := range recs {
		if id := rec.RulingID(); id != "" {
			m[id] = rec
		}
	}
	return m
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func joinOrNA(fields []string) string {
	if len(fields) == 0 {
		return "N/A"
	}
	return strings.Join(fields, "; ")
}

func toAnys(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
