package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cbp-tools/rulings-review/internal/cache"
	"github.com/cbp-tools/rulings-review/internal/jurisdiction"
)

// Single-page apps embed the ruling payload as JSON inside a script tag;
// when present it is cleaner than scraping the rendered page.
var embeddedRulingJSON = regexp.MustCompile(`(?s)\{.*"rulingText".*\}`)

// HTMLSource fetches ruling text by scraping the public HTML page. Slower
// and noisier than the API but structurally consistent.
type HTMLSource struct {
	Profile   jurisdiction.Profile
	Client    *http.Client
	UserAgent string
	Store     *cache.Store
	Logger    *slog.Logger
}

func NewHTMLSource(profile jurisdiction.Profile, store *cache.Store, userAgent string, timeout time.Duration, logger *slog.Logger) *HTMLSource {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLSource{
		Profile:   profile,
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Store:     store,
		Logger:    logger,
	}
}

func (s *HTMLSource) Tier() Tier { return TierHTML }

func (s *HTMLSource) Fetch(ctx context.Context, rulingID string) (cache.Entry, error) {
	url := fmt.Sprintf(s.Profile.PageURLTemplate, rulingID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("page fetch %s: %w", rulingID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cache.Entry{}, fmt.Errorf("page fetch %s: status %d", rulingID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("page fetch %s: read body: %w", rulingID, err)
	}

	if s.Store != nil {
		if err := s.Store.PutRaw(rulingID, "tier2.html", body); err != nil {
			s.Logger.Warn("fetch.raw_cache.write_failed",
				"ruling_id", rulingID, "tier", string(TierHTML), "error", err)
		}
	}

	// Prefer the ruling HTML embedded in a script tag; fall back to the
	// whole page when no embedded payload parses.
	payload := body
	if embedded := extractEmbeddedRuling(body); embedded != "" {
		payload = []byte(embedded)
	}

	ent, err := TextPairFromHTML(payload)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("page fetch %s: parse html: %w", rulingID, err)
	}
	if ent.PrettyText == "" {
		return cache.Entry{}, fmt.Errorf("page fetch %s: no visible text", rulingID)
	}
	return ent, nil
}

// extractEmbeddedRuling scans script tags for a JSON object carrying
// rulingText and returns that HTML fragment, or "" when none decodes.
func extractEmbeddedRuling(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	var out string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := sel.Text()
		if src == "" {
			return true
		}
		m := embeddedRulingJSON.FindString(src)
		if m == "" {
			return true
		}
		var payload struct {
			RulingText string `json:"rulingText"`
		}
		if err := json.Unmarshal([]byte(m), &payload); err != nil || payload.RulingText == "" {
			return true
		}
		out = payload.RulingText
		return false
	})
	return out
}
