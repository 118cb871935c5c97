package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsarchive/internal/domain"
)

func sampleArticle(url string) *domain.Article {
	return &domain.Article{
		URL:         url,
		Title:       "Eine Schlagzeile",
		Section:     "Politik",
		PublishedAt: time.Date(2019, time.June, 3, 8, 30, 0, 0, time.UTC),
		RetrievedAt: time.Now().UTC(),
		Text:        "Erster Absatz.\n\nZweiter Absatz.",
	}
}

func TestArticleIDStable(t *testing.T) {
	t.Parallel()

	a := ArticleID("https://www.spiegel.de/politik/a-1.html")
	b := ArticleID("https://www.spiegel.de/politik/a-1.html")
	c := ArticleID("https://www.spiegel.de/politik/a-2.html")

	assert.Equal(t, a, b, "identifier must be stable across runs")
	assert.NotEqual(t, a, c)
}

func TestCorpusAppendAndReadBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	corpus, err := OpenCorpus(dir, nil)
	require.NoError(t, err)
	defer corpus.Close()

	art := sampleArticle("https://www.spiegel.de/politik/a-1.html")
	require.NoError(t, corpus.Append(context.Background(), art))
	require.NotEmpty(t, art.ID)

	raw, err := os.ReadFile(filepath.Join(dir, "articles", art.ID+".json"))
	require.NoError(t, err)

	var stored domain.Article
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, art.URL, stored.URL)
	assert.Equal(t, art.Text, stored.Text)

	count, err := corpus.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCorpusAppendIsIdempotentPerURL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	corpus, err := OpenCorpus(dir, nil)
	require.NoError(t, err)
	defer corpus.Close()

	first := sampleArticle("https://www.spiegel.de/politik/a-1.html")
	require.NoError(t, corpus.Append(context.Background(), first))

	second := sampleArticle("https://www.spiegel.de/politik/a-1.html")
	second.Title = "Aktualisierte Schlagzeile"
	require.NoError(t, corpus.Append(context.Background(), second))

	assert.Equal(t, first.ID, second.ID)

	count, err := corpus.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count, "repeated append overwrites, never duplicates")

	raw, err := os.ReadFile(filepath.Join(dir, "articles", first.ID+".json"))
	require.NoError(t, err)
	var stored domain.Article
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "Aktualisierte Schlagzeile", stored.Title)
}

func TestCorpusLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	corpus, err := OpenCorpus(dir, nil)
	require.NoError(t, err)
	defer corpus.Close()

	require.NoError(t, corpus.Append(context.Background(), sampleArticle("https://www.spiegel.de/politik/a-1.html")))

	entries, err := os.ReadDir(filepath.Join(dir, "articles"))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(entry.Name()))
	}
}

func TestStateStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStateStore(dir)

	state := domain.NewCrawlState()
	day := time.Date(2019, time.June, 3, 0, 0, 0, 0, time.UTC)
	state.MarkDateComplete(day)
	state.MarkVisited("https://www.spiegel.de/politik/a-1.html")
	state.MarkURLFailed("https://www.spiegel.de/politik/kaputt.html")

	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.DateCompleted(day))
	assert.True(t, loaded.Seen("https://www.spiegel.de/politik/a-1.html"))
	assert.True(t, loaded.Seen("https://www.spiegel.de/politik/kaputt.html"))
	assert.False(t, loaded.VisitedURLs["https://www.spiegel.de/politik/kaputt.html"])
}

func TestStateStoreFreshWhenMissing(t *testing.T) {
	t.Parallel()

	store := NewStateStore(t.TempDir())
	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.CompletedDates)
	assert.Empty(t, state.VisitedURLs)
}

func TestStateStoreCorruptFileIsStorageError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crawlstate.json"), []byte("{truncated"), 0o644))

	_, err := NewStateStore(dir).Load()
	var serr *domain.StorageError
	assert.ErrorAs(t, err, &serr)
}

func TestLockRejectsSecondCrawl(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)

	_, err = AcquireLock(dir)
	require.Error(t, err, "concurrent runs against one storage path must fail fast")
	assert.Contains(t, err.Error(), "locked")

	require.NoError(t, lock.Release())

	lock2, err := AcquireLock(dir)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}
