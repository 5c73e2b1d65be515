package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cbp-tools/rulings-review/internal/cache"
	"github.com/cbp-tools/rulings-review/internal/fetch"
)

type probeSource struct {
	tier  fetch.Tier
	entry cache.Entry
	err   error
}

func (s *probeSource) Tier() fetch.Tier { return s.tier }

func (s *probeSource) Fetch(_ context.Context, _ string) (cache.Entry, error) {
	return s.entry, s.err
}

func TestRunAllTiers(t *testing.T) {
	sources := []fetch.Source{
		&probeSource{tier: fetch.TierAPI, entry: cache.Entry{
			NormalizedText: "NY N340865 March 14, 2025",
			PrettyText:     "NY N340865\nMarch 14, 2025",
		}},
		&probeSource{tier: fetch.TierHTML, err: errors.New("status 404 while fetching the ruling detail page")},
	}

	results := RunAllTiers(context.Background(), []string{"N340865", "N340183"}, sources, testLogger())
	require.Len(t, results, 4, "every source probed for every id")

	assert.Equal(t, fetch.TierAPI, results[0].Tier)
	assert.Equal(t, "Success", results[0].Status)
	assert.Equal(t, len("NY N340865 March 14, 2025"), results[0].TextLength)
	assert.True(t, results[0].HasLineBreaks)

	assert.Equal(t, fetch.TierHTML, results[1].Tier)
	assert.True(t, len(results[1].Status) <= len("Failed: ")+50)
	assert.Contains(t, results[1].Status, "Failed: status 404")
	assert.Zero(t, results[1].TextLength)
}

func TestWriteFetchersReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "04_review", "fetchers_report.xlsx")
	results := []TierResult{
		{RulingID: "N1", Tier: fetch.TierAPI, TextLength: 1200, HasLineBreaks: true, Status: "Success"},
		{RulingID: "N1", Tier: fetch.TierLegacyDoc, Status: "Failed: no legacy document"},
	}
	require.NoError(t, WriteFetchersReport(path, results))

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("tier_comparison")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ruling_id", "tier", "text_length", "has_line_breaks", "status"}, rows[0])
	assert.Equal(t, "api", rows[1][1])
	assert.Equal(t, "1200", rows[1][2])
	assert.Equal(t, "Failed: no legacy document", rows[2][4])
}
