// Package inputs locates and loads the run inputs under a base directory:
// ruling-id lists and benchmark files. The rest of the pipeline stays
// independent of file formats.
package inputs

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cbp-tools/rulings-review/constants"
	"github.com/cbp-tools/rulings-review/internal/extract"
	"github.com/cbp-tools/rulings-review/internal/schema"
)

// Standard input locations relative to the base directory.
const (
	rulingIDsJSON      = "in/02_rulings/01_ruling_ids.json"
	rulingIDsCSV       = "in/02_rulings/01_ruling_ids.csv"
	rulingIDsXLSX      = "in/02_rulings/01_ruling_ids.xlsx"
	benchmarkSpecPath  = "in/01_benchmarks/01_benchmark_spec.json"
	benchmarkValuesLoc = "in/01_benchmarks/02_benchmark_values.json"
)

// LoadRulingIDs returns the ruling IDs for a run. Search order: JSON, CSV,
// XLSX, then the fallback list. The first file that exists wins; a file that
// exists but cannot be read or parsed is an error, not a fallthrough.
func LoadRulingIDs(baseDir string, fallback []string) ([]string, error) {
	jsonPath := filepath.Join(baseDir, filepath.FromSlash(rulingIDsJSON))
	if _, err := os.Stat(jsonPath); err == nil {
		return loadIDsJSON(jsonPath)
	}
	csvPath := filepath.Join(baseDir, filepath.FromSlash(rulingIDsCSV))
	if _, err := os.Stat(csvPath); err == nil {
		return loadIDsCSV(csvPath)
	}
	xlsxPath := filepath.Join(baseDir, filepath.FromSlash(rulingIDsXLSX))
	if _, err := os.Stat(xlsxPath); err == nil {
		return loadIDsXLSX(xlsxPath)
	}
	return normalizeIDs(fallback), nil
}

// loadIDsJSON accepts either a bare list or {"ruling_ids": [...]}.
func loadIDsJSON(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		return normalizeAnyIDs(list), nil
	}
	var obj struct {
		RulingIDs []any `json:"ruling_ids"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.RulingIDs != nil {
		return normalizeAnyIDs(obj.RulingIDs), nil
	}
	return nil, fmt.Errorf("%s must be a list or an object with a 'ruling_ids' list", path)
}

// loadIDsCSV prefers a "ruling_id" column by header name; a headerless file
// is read from the first column. The header row itself is never an ID.
func loadIDsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := 0
	start := 0
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), constants.FieldRulingID) {
			col = i
			start = 1
			break
		}
	}
	var ids []string
	for _, row := range rows[start:] {
		if col < len(row) {
			ids = append(ids, row[col])
		}
	}
	return normalizeIDs(ids), nil
}

// loadIDsXLSX reads the first sheet, preferring a "ruling_id" column.
func loadIDsXLSX(path string) ([]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := 0
	start := 0
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), constants.FieldRulingID) {
			col = i
			start = 1
			break
		}
	}
	var ids []string
	for _, row := range rows[start:] {
		if col < len(row) {
			ids = append(ids, row[col])
		}
	}
	return normalizeIDs(ids), nil
}

// normalizeIDs trims, drops empties and deduplicates preserving first
// occurrence order.
func normalizeIDs(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	cleaned := make([]string, 0, len(items))
	for _, rid := range items {
		rid = strings.TrimSpace(rid)
		if rid == "" {
			continue
		}
		if _, dup := seen[rid]; dup {
			continue
		}
		seen[rid] = struct{}{}
		cleaned = append(cleaned, rid)
	}
	return cleaned
}

func normalizeAnyIDs(items []any) []string {
	strs := make([]string, 0, len(items))
	for _, v := range items {
		switch t := v.(type) {
		case nil:
		case string:
			strs = append(strs, t)
		default:
			strs = append(strs, fmt.Sprint(t))
		}
	}
	return normalizeIDs(strs)
}

// LoadBenchmarkSpec reads the benchmark specification from its standard
// location. A missing file yields the built-in default spec.
func LoadBenchmarkSpec(baseDir string) (*schema.Spec, error) {
	path := filepath.Join(baseDir, filepath.FromSlash(benchmarkSpecPath))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return schema.DefaultSpec(), nil
	}
	return schema.LoadSpec(path)
}

// LoadBenchmarkValues reads the gold records used for comparison. A missing
// file returns an empty slice; benchmark comparison is optional.
func LoadBenchmarkValues(baseDir string, spec *schema.Spec) ([]schema.GoalRecord, error) {
	path := filepath.Join(baseDir, filepath.FromSlash(benchmarkValuesLoc))
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return decodeBenchmarkValues(f, spec)
}

func decodeBenchmarkValues(r io.Reader, spec *schema.Spec) ([]schema.GoalRecord, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode benchmark values: %w", err)
	}
	records := make([]schema.GoalRecord, 0, len(rows))
	for i, row := range rows {
		values := make(map[string]string, len(row))
		for k, v := range row {
			switch t := v.(type) {
			case nil:
				values[k] = ""
			case string:
				values[k] = t
			default:
				values[k] = fmt.Sprint(t)
			}
		}
		rid := strings.TrimSpace(values[constants.FieldRulingID])
		if rid == "" {
			return nil, fmt.Errorf("benchmark record %d has no ruling_id", i)
		}
		// Benchmark values are the comparison target; restrict to the goal
		// fields but never reformat them.
		rec := extract.NewRecord(rid, constants.ProvenanceBenchmark, values)
		goal, err := schema.RestrictFields(rec, spec)
		if err != nil {
			return nil, fmt.Errorf("benchmark record %s: %w", rid, err)
		}
		records = append(records, goal)
	}
	return records, nil
}
