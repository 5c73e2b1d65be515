// Package cache is the on-disk store for fetched ruling text. One file pair
// per identifier per jurisdiction: {id}.normalized.txt and {id}.pretty.txt,
// plus optional raw payload artifacts kept for debugging.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cbp-tools/rulings-review/internal/common"
)

// Entry is the cached text pair for one ruling identifier.
type Entry struct {
	NormalizedText string
	PrettyText     string
}

// Store maps ruling identifiers to cached text pairs under a
// jurisdiction-scoped directory. Reads are lock-free; writes to the same
// identifier are serialized so at most one fetch result is persisted per
// identifier per run.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore opens (and creates if needed) the cache directory for one
// jurisdiction.
func NewStore(baseDir, jurisdiction string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(baseDir, jurisdiction)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir, logger: logger, locks: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the jurisdiction-scoped cache directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) normalizedPath(id string) string {
	return filepath.Join(s.dir, id+".normalized.txt")
}

func (s *Store) prettyPath(id string) string {
	return filepath.Join(s.dir, id+".pretty.txt")
}

// RawPath returns the path for a raw payload artifact, e.g. ext "raw.doc",
// "raw.pdf", "raw.html".
func (s *Store) RawPath(id, ext string) string {
	return filepath.Join(s.dir, id+"."+ext)
}

func (s *Store) idLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Get returns the cached entry for id, or ok=false when either file of the
// pair is missing. A half-written pair is treated as absent.
func (s *Store) Get(id string) (Entry, bool) {
	norm, err := os.ReadFile(s.normalizedPath(id))
	if err != nil {
		return Entry{}, false
	}
	pretty, err := os.ReadFile(s.prettyPath(id))
	if err != nil {
		return Entry{}, false
	}
	return Entry{NormalizedText: string(norm), PrettyText: string(pretty)}, true
}

// Put persists the text pair for id. Failures wrap common.ErrCacheWrite so
// callers can log and continue; a failed Put never aborts the pipeline.
func (s *Store) Put(id string, e Entry) error {
	l := s.idLock(id)
	l.Lock()
	defer l.Unlock()

	if err := os.WriteFile(s.normalizedPath(id), []byte(e.NormalizedText), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrCacheWrite, id, err)
	}
	if err := os.WriteFile(s.prettyPath(id), []byte(e.PrettyText), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrCacheWrite, id, err)
	}
	return nil
}

// PutRaw saves a raw payload artifact next to the text pair.
func (s *Store) PutRaw(id, ext string, data []byte) error {
	if err := os.WriteFile(s.RawPath(id, ext), data, 0o644); err != nil {
		return fmt.Errorf("%w: %s.%s: %v", common.ErrCacheWrite, id, ext, err)
	}
	return nil
}

// Clear removes every cached file for this jurisdiction. Individual deletion
// failures (e.g. a file held open by another process) are skipped and
// reported; Clear is best effort, not atomic.
func (s *Store) Clear() (removed int, failures []string) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, []string{fmt.Sprintf("%s: %v", s.dir, err)}
	}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if !isCacheArtifact(name) {
			continue
		}
		path := filepath.Join(s.dir, name)
		if err := os.Remove(path); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			s.logger.Warn("cache.clear.skip", "file", name, "error", err)
			continue
		}
		removed++
	}
	s.logger.Info("cache.clear.ok", "dir", s.dir, "removed", removed, "failed", len(failures))
	return removed, failures
}

func isCacheArtifact(name string) bool {
	for _, suffix := range []string{
		".normalized.txt", ".pretty.txt",
		".raw.doc", ".raw.pdf", ".raw.html",
		".tier1.json", ".tier2.html",
	} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
