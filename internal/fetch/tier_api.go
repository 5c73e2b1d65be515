package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cbp-tools/rulings-review/internal/cache"
	"github.com/cbp-tools/rulings-review/internal/jurisdiction"
)

// APISource fetches ruling text from the structured JSON API. Fast, but the
// payload is occasionally incomplete, which is why it sits in a tier chain.
type APISource struct {
	Profile   jurisdiction.Profile
	Client    *http.Client
	UserAgent string
	Store     *cache.Store // optional, raw payload artifacts only
	Logger    *slog.Logger
}

func NewAPISource(profile jurisdiction.Profile, store *cache.Store, userAgent string, timeout time.Duration, logger *slog.Logger) *APISource {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APISource{
		Profile:   profile,
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Store:     store,
		Logger:    logger,
	}
}

func (s *APISource) Tier() Tier { return TierAPI }

// apiPayload is the subset of the API response we rely on. The ruling body
// arrives as HTML, either inline or as the first attachment.
type apiPayload struct {
	RulingText  string `json:"rulingText"`
	Attachments []struct {
		Content string `json:"content"`
	} `json:"attachments"`
}

func (s *APISource) Fetch(ctx context.Context, rulingID string) (cache.Entry, error) {
	url := fmt.Sprintf(s.Profile.APIURLTemplate, rulingID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("api fetch %s: %w", rulingID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cache.Entry{}, fmt.Errorf("api fetch %s: status %d", rulingID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("api fetch %s: read body: %w", rulingID, err)
	}

	if s.Store != nil {
		if err := s.Store.PutRaw(rulingID, "tier1.json", body); err != nil {
			// Non-fatal: the raw artifact is a debugging aid only.
			s.Logger.Warn("fetch.raw_cache.write_failed",
				"ruling_id", rulingID, "tier", string(TierAPI), "error", err)
		}
	}

	var payload apiPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return cache.Entry{}, fmt.Errorf("api fetch %s: decode: %w", rulingID, err)
	}

	rawText := payload.RulingText
	if rawText == "" && len(payload.Attachments) > 0 {
		rawText = payload.Attachments[0].Content
	}
	if rawText == "" {
		return cache.Entry{}, fmt.Errorf("api fetch %s: no usable text in response", rulingID)
	}

	ent, err := TextPairFromHTML([]byte(rawText))
	if err != nil {
		return cache.Entry{}, fmt.Errorf("api fetch %s: parse ruling html: %w", rulingID, err)
	}
	if ent.PrettyText == "" {
		return cache.Entry{}, fmt.Errorf("api fetch %s: empty text after parse", rulingID)
	}
	return ent, nil
}
