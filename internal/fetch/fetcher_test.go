package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbp-tools/rulings-review/internal/cache"
	"github.com/cbp-tools/rulings-review/internal/common"
)

type stubSource struct {
	tier  Tier
	entry cache.Entry
	err   error
	calls int
}

func (s *stubSource) Tier() Tier { return s.tier }

func (s *stubSource) Fetch(_ context.Context, _ string) (cache.Entry, error) {
	s.calls++
	return s.entry, s.err
}

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.NewStore(t.TempDir(), "ny", nil)
	require.NoError(t, err)
	return store
}

func TestFetcherFallsThroughTiers(t *testing.T) {
	entry := cache.Entry{
		NormalizedText: "Dear Ms. Barry: The applicable subheading will be 6110.20.2079.",
		PrettyText:     "Dear Ms. Barry:\nThe applicable subheading will be 6110.20.2079.",
	}
	apiSrc := &stubSource{tier: TierAPI, err: errors.New("api 404")}
	htmlSrc := &stubSource{tier: TierHTML, entry: entry}
	docSrc := &stubSource{tier: TierLegacyDoc, entry: cache.Entry{NormalizedText: "never reached"}}

	store := newTestStore(t)
	f := NewFetcher([]Source{apiSrc, htmlSrc, docSrc}, store, nil)

	res, err := f.Fetch(context.Background(), "n340865")
	require.NoError(t, err)

	assert.Equal(t, "N340865", res.RulingID, "identifier is upper-cased")
	assert.Equal(t, TierHTML, res.TierUsed)
	assert.False(t, res.CacheHit)
	assert.Equal(t, entry.PrettyText, res.PrettyText)
	assert.Equal(t, entry.NormalizedText, res.NormalizedText)
	assert.Zero(t, docSrc.calls, "first success wins, later tiers never run")

	cached, ok := store.Get("N340865")
	require.True(t, ok, "success must be cached")
	assert.Equal(t, entry, cached)
}

func TestFetcherCacheHitSkipsSources(t *testing.T) {
	store := newTestStore(t)
	entry := cache.Entry{NormalizedText: "cached text", PrettyText: "cached\ntext"}
	require.NoError(t, store.Put("N275583", entry))

	src := &stubSource{tier: TierAPI, err: errors.New("unreachable")}
	f := NewFetcher([]Source{src}, store, nil)

	res, err := f.Fetch(context.Background(), "  N275583 ")
	require.NoError(t, err)

	assert.True(t, res.CacheHit)
	assert.Empty(t, string(res.TierUsed), "tier is empty on a cache hit")
	assert.Equal(t, entry.NormalizedText, res.NormalizedText)
	assert.Zero(t, src.calls, "cache hit must not touch the network")
}

func TestFetcherAllTiersFail(t *testing.T) {
	apiErr := errors.New("api down")
	docErr := errors.New("doc not found in any year")
	f := NewFetcher([]Source{
		&stubSource{tier: TierAPI, err: apiErr},
		&stubSource{tier: TierLegacyDoc, err: docErr},
	}, newTestStore(t), nil)

	_, err := f.Fetch(context.Background(), "N000000")
	require.Error(t, err)

	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "N000000", ferr.Identifier)
	assert.Equal(t, []Tier{TierAPI, TierLegacyDoc}, ferr.TriedTiers)
	assert.Equal(t, apiErr, ferr.TierErrors[TierAPI])
	assert.ErrorIs(t, err, docErr, "last tier error is the unwrap target")
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "N340865", NormalizeID(" n340865 "))
	assert.Equal(t, "N340865", NormalizeID("N340865"))
}

func TestTextPairInvariant(t *testing.T) {
	page := []byte(`<html><head><style>p{color:red}</style>
<script>var tracking = "noise";</script></head>
<body>
<p>NY N340865</p>
<p>March 14, 2025</p>
<p>Dear Ms. Barry:</p>
<p>The applicable subheading   will be
6110.20.2079.</p>
</body></html>`)

	entry, err := TextPairFromHTML(page)
	require.NoError(t, err)

	assert.Equal(t, common.CollapseWS(entry.PrettyText), entry.NormalizedText,
		"normalized text must be the collapsed form of pretty text")
	assert.Contains(t, entry.PrettyText, "NY N340865\n")
	assert.Contains(t, entry.NormalizedText, "6110.20.2079")
	assert.NotContains(t, entry.NormalizedText, "tracking", "script content is dropped")
	assert.NotContains(t, entry.NormalizedText, "color:red", "style content is dropped")
}

func TestTextPairStripsMergeformat(t *testing.T) {
	entry, err := TextPairFromHTML([]byte(`<html><body><p>PAGE \* MERGEFORMAT 2</p><p>Real content line</p></body></html>`))
	require.NoError(t, err)
	assert.NotContains(t, entry.PrettyText, "MERGEFORMAT")
	assert.Contains(t, entry.PrettyText, "Real content line")
}
