package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), "ny", nil)
	require.NoError(t, err)
	return s
}

func TestStorePutGet(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.Get("N340865")
	assert.False(t, ok, "empty store must miss")

	entry := Entry{
		NormalizedText: "The applicable subheading will be 6110.20.2079.",
		PrettyText:     "The applicable subheading\nwill be 6110.20.2079.",
	}
	require.NoError(t, s.Put("N340865", entry))

	got, ok := s.Get("N340865")
	require.True(t, ok)
	assert.Equal(t, entry, got)
}

func TestStoreHalfWrittenPairIsAbsent(t *testing.T) {
	s := newTestStore(t)

	// Only one file of the pair exists: treat the entry as missing.
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "N123456.normalized.txt"), []byte("text"), 0o644))

	_, ok := s.Get("N123456")
	assert.False(t, ok)
}

func TestStorePutRaw(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutRaw("N340865", "raw.doc", []byte{0xD0, 0xCF}))

	data, err := os.ReadFile(s.RawPath("N340865", "raw.doc"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xD0, 0xCF}, data)
}

func TestStoreClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("N1", Entry{NormalizedText: "a", PrettyText: "a"}))
	require.NoError(t, s.Put("N2", Entry{NormalizedText: "b", PrettyText: "b"}))
	require.NoError(t, s.PutRaw("N1", "raw.pdf", []byte("%PDF-1.4")))

	// Unrelated files survive a clear.
	keep := filepath.Join(s.Dir(), "notes.md")
	require.NoError(t, os.WriteFile(keep, []byte("keep me"), 0o644))

	removed, failures := s.Clear()
	assert.Equal(t, 5, removed, "two text pairs plus one raw artifact")
	assert.Empty(t, failures)

	_, ok := s.Get("N1")
	assert.False(t, ok)
	_, err := os.Stat(keep)
	assert.NoError(t, err, "non-cache file must survive")
}

func TestStoreClearMissingDir(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.RemoveAll(s.Dir()))

	removed, failures := s.Clear()
	assert.Zero(t, removed)
	assert.Empty(t, failures)
}

func TestIsCacheArtifact(t *testing.T) {
	assert.True(t, isCacheArtifact("N1.normalized.txt"))
	assert.True(t, isCacheArtifact("N1.pretty.txt"))
	assert.True(t, isCacheArtifact("N1.raw.doc"))
	assert.True(t, isCacheArtifact("N1.tier1.json"))
	assert.False(t, isCacheArtifact("notes.md"))
	assert.False(t, isCacheArtifact("N1.txt"))
}
