package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cbp-tools/rulings-review/internal/cache"
	"github.com/cbp-tools/rulings-review/internal/fetch/convert"
	"github.com/cbp-tools/rulings-review/internal/jurisdiction"
)

// Compound File Binary signature (legacy Office documents).
var cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// DocSource downloads the ruling's legacy ".doc" endpoint. Slowest tier but
// the highest-fidelity text. The endpoint shards by issue year, so candidate
// years are scanned until one stops returning 404.
//
// Despite the extension, most payloads are Word-generated HTML. Real CFB
// documents and PDFs are routed through the legacy converter boundary.
type DocSource struct {
	Profile   jurisdiction.Profile
	Client    *http.Client
	UserAgent string
	Store     *cache.Store
	Converter convert.LegacyConverter
	Logger    *slog.Logger
}

func NewDocSource(profile jurisdiction.Profile, store *cache.Store, conv convert.LegacyConverter, userAgent string, timeout time.Duration, logger *slog.Logger) *DocSource {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocSource{
		Profile:   profile,
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Store:     store,
		Converter: conv,
		Logger:    logger,
	}
}

func (s *DocSource) Tier() Tier { return TierLegacyDoc }

func (s *DocSource) Fetch(ctx context.Context, rulingID string) (cache.Entry, error) {
	var lastNotFound string

	for _, year := range s.Profile.YearCandidates {
		url := fmt.Sprintf(s.Profile.DocURLTemplate, year, rulingID)

		data, status, err := s.download(ctx, url)
		if err != nil {
			return cache.Entry{}, fmt.Errorf("doc fetch %s year=%d: %w", rulingID, year, err)
		}
		if status == http.StatusNotFound {
			// Wrong year shard; keep scanning.
			lastNotFound = url
			continue
		}
		if status != http.StatusOK {
			return cache.Entry{}, fmt.Errorf("doc fetch %s year=%d: status %d", rulingID, year, status)
		}

		return s.decode(ctx, rulingID, data)
	}

	return cache.Entry{}, fmt.Errorf("doc fetch %s: not found in any candidate year (last tried %s)",
		rulingID, lastNotFound)
}

func (s *DocSource) download(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return data, resp.StatusCode, nil
}

// decode sniffs the payload type and derives the text pair through the
// matching branch.
func (s *DocSource) decode(ctx context.Context, rulingID string, data []byte) (cache.Entry, error) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		s.putRaw(rulingID, "raw.pdf", data)
		return s.convert(ctx, rulingID, data, convert.FormatPDF)

	case bytes.HasPrefix(data, cfbMagic):
		s.putRaw(rulingID, "raw.doc", data)
		return s.convert(ctx, rulingID, data, convert.FormatDoc)

	case looksLikeHTML(data):
		s.putRaw(rulingID, "raw.doc", data)
		s.putRaw(rulingID, "raw.html", data)
		ent, err := TextPairFromHTML(data)
		if err != nil {
			return cache.Entry{}, fmt.Errorf("doc fetch %s: parse html-doc: %w", rulingID, err)
		}
		if ent.PrettyText == "" {
			return cache.Entry{}, fmt.Errorf("doc fetch %s: empty html-doc", rulingID)
		}
		return ent, nil

	default:
		return cache.Entry{}, fmt.Errorf("doc fetch %s: unknown payload format (first bytes %x)",
			rulingID, data[:min(8, len(data))])
	}
}

// putRaw caches a raw payload artifact; failures are logged, never fatal.
func (s *DocSource) putRaw(rulingID, ext string, data []byte) {
	if s.Store == nil {
		return
	}
	if err := s.Store.PutRaw(rulingID, ext, data); err != nil {
		s.Logger.Warn("fetch.raw_cache.write_failed",
			"ruling_id", rulingID, "tier", string(TierLegacyDoc), "ext", ext, "error", err)
	}
}

func (s *DocSource) convert(ctx context.Context, rulingID string, data []byte, format convert.Format) (cache.Entry, error) {
	if s.Converter == nil {
		return cache.Entry{}, fmt.Errorf("doc fetch %s: %s payload but no legacy converter configured", rulingID, format)
	}
	normalized, pretty, err := s.Converter.Convert(ctx, data, format)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("doc fetch %s: convert %s: %w", rulingID, format, err)
	}
	return cache.Entry{NormalizedText: normalized, PrettyText: pretty}, nil
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(data[:min(200, len(data))])
	return bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<!doctype html")) ||
		bytes.Contains(head, []byte("<body"))
}
