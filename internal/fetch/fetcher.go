// Package fetch acquires ruling document text through a tiered strategy:
// structured API first, then the public HTML page, then the legacy document
// download. Every tier produces the same normalized/pretty text pair, so
// downstream extraction never cares where the text came from.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cbp-tools/rulings-review/internal/cache"
)

// Tier identifies one acquisition strategy.
type Tier string

const (
	TierAPI       Tier = "api"
	TierHTML      Tier = "html"
	TierLegacyDoc Tier = "legacy_doc"
)

// Result is the outcome of acquiring one ruling's text.
//
// NormalizedText is the fully whitespace-collapsed form of PrettyText;
// PrettyText preserves the document's line structure. Both always derive
// from the same source payload.
type Result struct {
	RulingID       string
	NormalizedText string
	PrettyText     string
	TierUsed       Tier // empty on a cache hit
	FetchDuration  time.Duration
	CacheHit       bool
}

// Error reports that every tier failed for one identifier.
type Error struct {
	Identifier string
	TriedTiers []Tier
	TierErrors map[Tier]error
	LastError  error
}

func (e *Error) Error() string {
	tiers := make([]string, 0, len(e.TriedTiers))
	for _, t := range e.TriedTiers {
		tiers = append(tiers, string(t))
	}
	return fmt.Sprintf("all tiers failed for %s (tried %s): %v",
		e.Identifier, strings.Join(tiers, ", "), e.LastError)
}

func (e *Error) Unwrap() error { return e.LastError }

// Source is one acquisition tier. Implementations must derive both text
// forms from their own raw payload and honor context timeouts.
type Source interface {
	Tier() Tier
	Fetch(ctx context.Context, rulingID string) (cache.Entry, error)
}

// Fetcher tries sources in priority order and caches the first success.
type Fetcher struct {
	sources []Source
	store   *cache.Store
	logger  *slog.Logger
}

// NewFetcher builds a fetcher over the given sources. Order matters: the
// first source that succeeds wins.
func NewFetcher(sources []Source, store *cache.Store, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{sources: sources, store: store, logger: logger}
}

// NormalizeID canonicalizes a ruling identifier for lookups and cache keys.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Fetch returns the text pair for one ruling, from cache when available.
// It fails only when every tier has failed; the returned error is *Error.
func (f *Fetcher) Fetch(ctx context.Context, rulingID string) (Result, error) {
	id := NormalizeID(rulingID)
	start := time.Now()

	if f.store != nil {
		if ent, ok := f.store.Get(id); ok {
			f.logger.Debug("fetch.cache.hit", "ruling_id", id)
			return Result{
				RulingID:       id,
				NormalizedText: ent.NormalizedText,
				PrettyText:     ent.PrettyText,
				FetchDuration:  time.Since(start),
				CacheHit:       true,
			}, nil
		}
	}

	tried := make([]Tier, 0, len(f.sources))
	tierErrs := make(map[Tier]error, len(f.sources))
	var lastErr error

	for _, src := range f.sources {
		tier := src.Tier()
		tried = append(tried, tier)
		tierStart := time.Now()

		ent, err := src.Fetch(ctx, id)
		if err != nil {
			f.logger.Warn("fetch.tier.failed",
				"ruling_id", id, "tier", string(tier),
				"elapsed_ms", time.Since(tierStart).Milliseconds(),
				"error", err,
			)
			tierErrs[tier] = err
			lastErr = err
			continue
		}

		f.logger.Info("fetch.tier.ok",
			"ruling_id", id, "tier", string(tier),
			"normalized_len", len(ent.NormalizedText),
			"pretty_len", len(ent.PrettyText),
			"elapsed_ms", time.Since(tierStart).Milliseconds(),
		)

		if f.store != nil {
			if err := f.store.Put(id, ent); err != nil {
				// Non-fatal: the pipeline proceeds without caching this id.
				f.logger.Warn("fetch.cache.write_failed", "ruling_id", id, "error", err)
			}
		}

		return Result{
			RulingID:       id,
			NormalizedText: ent.NormalizedText,
			PrettyText:     ent.PrettyText,
			TierUsed:       tier,
			FetchDuration:  time.Since(start),
		}, nil
	}

	return Result{}, &Error{
		Identifier: id,
		TriedTiers: tried,
		TierErrors: tierErrs,
		LastError:  lastErr,
	}
}
