package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/site-spider/internal/extract"
)

func testRecord(url string) *extract.PageRecord {
	return &extract.PageRecord{
		URL:      url,
		Domain:   "ex.com",
		Links:    []string{"https://ex.com/a"},
		Title:    "Home",
		Text:     strings.Repeat("t", extract.MinTextLength),
		Headings: "Home",
		Code:     "",
	}
}

func TestPersistFileName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "ex")
	store := NewRecordStore(dir)

	path, err := store.Persist(testRecord("https://ex.com/a/b"))
	require.NoError(t, err)

	name := filepath.Base(path)
	assert.Equal(t, "https:%2F%2Fex.com%2Fa%2Fb.json", name)
	assert.NotContains(t, name, "/")
	assert.Equal(t, dir, filepath.Dir(path))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestPersistSerialization(t *testing.T) {
	store := NewRecordStore(t.TempDir())
	rec := testRecord("https://ex.com/")
	rec.Links = nil

	path, err := store.Persist(rec)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.ElementsMatch(t, []string{"url", "domain", "links", "title", "text", "headings", "code"}, keys(raw))
	assert.Equal(t, []any{}, raw["links"])
	assert.Equal(t, "https://ex.com/", raw["url"])
}

func TestPersistOverwrites(t *testing.T) {
	store := NewRecordStore(t.TempDir())

	first := testRecord("https://ex.com/page")
	_, err := store.Persist(first)
	require.NoError(t, err)

	second := testRecord("https://ex.com/page")
	second.Title = "Updated"
	second.Links = []string{"https://ex.com/b", "https://ex.com/c"}
	_, err = store.Persist(second)
	require.NoError(t, err)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	got, err := store.Load("https://ex.com/page")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestPersistDirectoryIsIdempotent(t *testing.T) {
	store := NewRecordStore(filepath.Join(t.TempDir(), "nested", "dir"))
	for _, u := range []string{"https://ex.com/1", "https://ex.com/2"} {
		_, err := store.Persist(testRecord(u))
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPersistPropagatesIOErrors(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	// The output directory cannot be created under a regular file
	store := NewRecordStore(filepath.Join(blocker, "out"))
	_, err := store.Persist(testRecord("https://ex.com/"))
	assert.Error(t, err)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := NewLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestLedgerRecordVisit(t *testing.T) {
	ledger := newTestLedger(t)

	page, err := ledger.GetPage("https://ex.com/")
	require.NoError(t, err)
	assert.Nil(t, page)

	require.NoError(t, ledger.RecordVisit(PageVisit{
		URL:    "https://ex.com/",
		Domain: "ex.com",
		Status: "skipped",
		Reason: "NOT ENOUGH CONTENT",
	}))
	require.NoError(t, ledger.RecordVisit(PageVisit{
		URL:           "https://ex.com/",
		Domain:        "ex.com",
		Status:        "stored",
		RecordPath:    "/tmp/x.json",
		Title:         "Home",
		LastVisitedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}))

	page, err = ledger.GetPage("https://ex.com/")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "stored", page.Status)
	assert.Equal(t, "", page.Reason)
	assert.Equal(t, "Home", page.Title)
	assert.Equal(t, "/tmp/x.json", page.RecordPath)
	assert.Equal(t, 2, page.VisitCount)
}

func TestLedgerLinksAndSummary(t *testing.T) {
	ledger := newTestLedger(t)

	require.NoError(t, ledger.RecordLinks("https://ex.com/", []string{"https://ex.com/b", "https://ex.com/a"}))
	require.NoError(t, ledger.RecordLinks("https://ex.com/", []string{"https://ex.com/a"}))
	require.NoError(t, ledger.RecordLinks("https://ex.com/", nil))

	links, err := ledger.OutboundLinks("https://ex.com/")
	require.NoError(t, err)
	assert.Equal(t, []Link{
		{FromURL: "https://ex.com/", ToURL: "https://ex.com/a", Weight: 2},
		{FromURL: "https://ex.com/", ToURL: "https://ex.com/b", Weight: 1},
	}, links)

	for i, status := range []string{"stored", "stored", "skipped"} {
		require.NoError(t, ledger.RecordVisit(PageVisit{
			URL:    "https://ex.com/" + string(rune('a'+i)),
			Domain: "ex.com",
			Status: status,
		}))
	}
	summary, err := ledger.Summary()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"stored": 2, "skipped": 1}, summary)
}
