// Package pipeline orchestrates a full extraction run: tiered fetch, regex
// extraction, optional LLM extraction, benchmark triage and report export.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cbp-tools/rulings-review/constants"
	"github.com/cbp-tools/rulings-review/internal/bench"
	"github.com/cbp-tools/rulings-review/internal/cache"
	"github.com/cbp-tools/rulings-review/internal/common"
	"github.com/cbp-tools/rulings-review/internal/extract"
	"github.com/cbp-tools/rulings-review/internal/fetch"
	"github.com/cbp-tools/rulings-review/internal/fetch/convert"
	"github.com/cbp-tools/rulings-review/internal/inputs"
	"github.com/cbp-tools/rulings-review/internal/jurisdiction"
	"github.com/cbp-tools/rulings-review/internal/llm"
	"github.com/cbp-tools/rulings-review/internal/llm/openai"
	"github.com/cbp-tools/rulings-review/internal/perflog"
	"github.com/cbp-tools/rulings-review/internal/report"
	"github.com/cbp-tools/rulings-review/internal/schema"
)

// Standard output locations relative to the out directory.
const (
	rawDirName      = "02_extractions_raw"
	checksDirName   = "03_checks"
	reviewDirName   = "04_review"
	regexRawName    = "extract__regex__raw__all.json"
	llmRawName      = "extract__llm__raw__all.json"
	triageName      = "check__triage__bench_regex_llm__goal__all.json"
	reviewBookName  = "review.xlsx"
	fetchersPattern = "fetchers_report_%s.xlsx"
)

// Options selects the optional stages of a run.
type Options struct {
	LLM            bool
	Excel          bool
	FetchersReport bool
}

// Paths are the artifact locations a run wrote (empty when skipped).
type Paths struct {
	RegexRaw       string
	LLMRaw         string
	Triage         string
	Review         string
	FetchersReport string
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RegexRecords []schema.GoalRecord
	LLMRecords   []schema.GoalRecord
	BenchRecords []schema.GoalRecord
	Triage       bench.TriageReport
	Failures     map[string]string // ruling id -> reason
	Paths        Paths
}

// Pipeline wires the stages together. Build one with New, then call Run.
type Pipeline struct {
	cfg       *common.Config
	profile   jurisdiction.Profile
	store     *cache.Store
	sources   []fetch.Source
	fetcher   *fetch.Fetcher
	engine    *extract.Engine
	extractor llm.FieldExtractor
	perf      *perflog.Log
	logger    *slog.Logger
}

// New builds a pipeline from configuration. The LLM extractor is wired only
// when an API key is configured; without one --llm runs degrade to regex
// extraction with a warning.
func New(cfg *common.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	profile, ok := jurisdiction.ByName(cfg.Paths.Jurisdiction)
	if !ok {
		return nil, common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("unknown jurisdiction %q", cfg.Paths.Jurisdiction), common.ErrInvalidInput)
	}

	store, err := cache.NewStore(cfg.Paths.CacheDir, profile.Name, logger)
	if err != nil {
		return nil, err
	}

	conv := convert.NewExecConverter(convert.Config{}, nil, logger)
	sources := []fetch.Source{
		fetch.NewAPISource(profile, store, cfg.Fetch.UserAgent, cfg.Fetch.APITimeout, logger),
		fetch.NewHTMLSource(profile, store, cfg.Fetch.UserAgent, cfg.Fetch.PageTimeout, logger),
		fetch.NewDocSource(profile, store, conv, cfg.Fetch.UserAgent, cfg.Fetch.DocTimeout, logger),
	}

	perf, err := perflog.Open(cfg.PerfLog.Path, logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		profile: profile,
		store:   store,
		sources: sources,
		fetcher: fetch.NewFetcher(sources, store, logger),
		engine:  extract.NewEngine(logger),
		perf:    perf,
		logger:  logger,
	}
	if cfg.LLM.APIKey != "" {
		p.extractor = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger, perf)
	}
	return p, nil
}

// Close releases the performance log.
func (p *Pipeline) Close() error {
	if p.perf != nil {
		return p.perf.Close()
	}
	return nil
}

// Run executes the extraction workflow. Per-ruling failures are collected,
// never fatal; the run only errors on setup or output problems.
func (p *Pipeline) Run(ctx context.Context, opts Options) (RunResult, error) {
	start := time.Now()
	res := RunResult{Failures: make(map[string]string)}

	spec, err := inputs.LoadBenchmarkSpec(p.cfg.Paths.BaseDir)
	if err != nil {
		return res, err
	}
	benchRecs, err := inputs.LoadBenchmarkValues(p.cfg.Paths.BaseDir, spec)
	if err != nil {
		return res, err
	}
	res.BenchRecords = benchRecs

	ids, err := inputs.LoadRulingIDs(p.cfg.Paths.BaseDir, constants.FallbackRulingIDs)
	if err != nil {
		return res, err
	}
	p.logger.Info("pipeline.run.start",
		"jurisdiction", p.profile.Name,
		"rulings", len(ids),
		"llm", opts.LLM,
		"excel", opts.Excel,
	)

	outDir := p.cfg.Paths.OutDir
	rawDir := filepath.Join(outDir, rawDirName)
	checksDir := filepath.Join(outDir, checksDirName)
	reviewDir := filepath.Join(outDir, reviewDirName)
	for _, d := range []string{rawDir, checksDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return res, fmt.Errorf("create output dir: %w", err)
		}
	}

	llmRawPath := filepath.Join(rawDir, llmRawName)

	// Prior LLM results are reused for comparison whenever this run cannot
	// produce fresh ones: without --llm, or with --llm but no extractor wired.
	llmUpdated := false
	if !opts.LLM || p.extractor == nil {
		if cached, err := p.loadGoalRecords(llmRawPath, spec, constants.ProvenanceLLM); err != nil {
			p.logger.Warn("pipeline.llm_cache.unreadable", "path", llmRawPath, "error", err)
		} else {
			res.LLMRecords = cached
		}
	}

	// Regex phase: fetch then extract, one ruling at a time.
	fetched := make(map[string]fetch.Result, len(ids))
	for _, rid := range ids {
		fres, ferr := p.fetcher.Fetch(ctx, rid)
		p.perf.RecordFetch(ctx, rid, string(fres.TierUsed), fres.FetchDuration, fres.CacheHit, ferr == nil)
		if ferr != nil {
			res.Failures[fetch.NormalizeID(rid)] = ferr.Error()
			continue
		}
		fetched[fres.RulingID] = fres

		rec := p.engine.ExtractRecord(fres)
		goal, gerr := schema.ToGoalSchema(rec, spec)
		if gerr != nil {
			res.Failures[fres.RulingID] = gerr.Error()
			continue
		}
		res.RegexRecords = append(res.RegexRecords, goal)
	}

	// LLM phase: bounded concurrency, order preserved, failures collected.
	if opts.LLM {
		if p.extractor == nil {
			p.logger.Warn("pipeline.llm.disabled", "reason", "no API key configured")
		} else {
			recs, failures := p.runLLM(ctx, spec, res.RegexRecords, fetched)
			res.LLMRecords = recs
			llmUpdated = len(recs) > 0
			for id, reason := range failures {
				res.Failures[id] = reason
			}
		}
	}

	// Persist raw extractions and the triage report.
	res.Paths.RegexRaw = filepath.Join(rawDir, regexRawName)
	if err := writeJSON(res.Paths.RegexRaw, res.RegexRecords); err != nil {
		return res, err
	}
	if llmUpdated {
		res.Paths.LLMRaw = llmRawPath
		if err := writeJSON(llmRawPath, res.LLMRecords); err != nil {
			return res, err
		}
	}

	res.Triage = bench.Triage(res.RegexRecords, res.LLMRecords, benchRecs, spec, true)
	res.Paths.Triage = filepath.Join(checksDir, triageName)
	if err := writeJSON(res.Paths.Triage, res.Triage); err != nil {
		return res, err
	}

	if opts.Excel {
		res.Paths.Review = filepath.Join(reviewDir, reviewBookName)
		reviewer := report.NewReviewer(p.logger)
		err := reviewer.WriteReviewWorkbook(res.Paths.Review, report.ReviewInput{
			Triage:     res.Triage,
			Spec:       spec,
			Regex:      res.RegexRecords,
			LLM:        res.LLMRecords,
			Bench:      benchRecs,
			LLMEnabled: opts.LLM && llmUpdated,
			Timestamp:  time.Now(),
		})
		if err != nil {
			return res, err
		}
	}

	if opts.FetchersReport {
		name := fmt.Sprintf(fetchersPattern, time.Now().Format("20060102_150405"))
		res.Paths.FetchersReport = filepath.Join(reviewDir, name)
		tierResults := report.RunAllTiers(ctx, ids, p.sources, p.logger)
		if err := report.WriteFetchersReport(res.Paths.FetchersReport, tierResults); err != nil {
			return res, err
		}
	}

	if err := p.perf.WriteSummary(ctx, p.profile.Name); err != nil {
		p.logger.Warn("pipeline.perflog.summary_failed", "error", err)
	}

	p.logger.Info("pipeline.run.ok",
		"rulings", len(ids),
		"extracted", len(res.RegexRecords),
		"llm_records", len(res.LLMRecords),
		"failures", len(res.Failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// runLLM extracts fields for every fetched ruling through the model, at
// most MaxConcurrency requests in flight. Result order follows the regex
// record order.
func (p *Pipeline) runLLM(ctx context.Context, spec *schema.Spec, regexRecs []schema.GoalRecord, fetched map[string]fetch.Result) ([]schema.GoalRecord, map[string]string) {
	limit := p.cfg.LLM.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	type slot struct {
		rec schema.GoalRecord
		ok  bool
	}
	slots := make([]slot, len(regexRecs))
	failures := make(map[string]string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, rr := range regexRecs {
		fres, ok := fetched[rr.RulingID()]
		if !ok {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, fres fetch.Result) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, _, err := p.extractor.ExtractFields(ctx, llm.ExtractRequest{
				RulingID:       fres.RulingID,
				NormalizedText: fres.NormalizedText,
				PrettyText:     fres.PrettyText,
				FieldOrder:     spec.FieldOrder,
			})
			if err != nil {
				mu.Lock()
				failures[fres.RulingID] = "llm: " + err.Error()
				mu.Unlock()
				var lerr *llm.Error
				// A parse failure still yields an all-null record worth keeping;
				// transport failures yield nothing.
				if !errors.As(err, &lerr) || lerr.Reason != "parse reply" {
					return
				}
			}
			goal, gerr := schema.ToGoalSchema(rec, spec)
			if gerr != nil {
				mu.Lock()
				failures[fres.RulingID] = "llm: " + gerr.Error()
				mu.Unlock()
				return
			}
			slots[i] = slot{rec: goal, ok: true}
		}(i, fres)
	}
	wg.Wait()

	recs := make([]schema.GoalRecord, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			recs = append(recs, s.rec)
		}
	}
	return recs, failures
}

// loadGoalRecords reads a previously written raw-extraction JSON array.
// A missing file is not an error.
func (p *Pipeline) loadGoalRecords(path string, spec *schema.Spec, provenance string) ([]schema.GoalRecord, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	recs := make([]schema.GoalRecord, 0, len(rows))
	for _, row := range rows {
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
		rid := values[constants.FieldRulingID]
		if rid == "" {
			continue
		}
		goal, gerr := schema.ToGoalSchema(extract.NewRecord(rid, provenance, values), spec)
		if gerr != nil {
			continue
		}
		recs = append(recs, goal)
	}
	return recs, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
