package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbp-tools/rulings-review/internal/jurisdiction"
)

const apiRulingHTML = `<html><body>
<p>Dear Ms. Barry:</p>
<p>The applicable subheading will be 6110.20.2079.</p>
</body></html>`

func TestAPISourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ruling/N340865", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"rulingText": apiRulingHTML})
	}))
	defer srv.Close()

	profile := jurisdiction.NY()
	profile.APIURLTemplate = srv.URL + "/api/ruling/%s"

	store := newTestStore(t)
	src := NewAPISource(profile, store, "test-agent", 0, nil)

	ent, err := src.Fetch(context.Background(), "N340865")
	require.NoError(t, err)
	assert.Contains(t, ent.NormalizedText, "6110.20.2079")

	_, err = os.Stat(store.RawPath("N340865", "tier1.json"))
	assert.NoError(t, err, "raw payload artifact is cached")
}

func TestAPISourceRawCacheFailureNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"rulingText": apiRulingHTML})
	}))
	defer srv.Close()

	profile := jurisdiction.NY()
	profile.APIURLTemplate = srv.URL + "/api/ruling/%s"

	store := newTestStore(t)
	// Removing the cache directory makes every raw artifact write fail.
	require.NoError(t, os.RemoveAll(store.Dir()))

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
	src := NewAPISource(profile, store, "test-agent", 0, logger)

	ent, err := src.Fetch(context.Background(), "N340865")
	require.NoError(t, err, "a raw cache write failure must not fail the fetch")
	assert.Contains(t, ent.NormalizedText, "6110.20.2079")
	assert.Contains(t, logBuf.String(), "fetch.raw_cache.write_failed")
}
