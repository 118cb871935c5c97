package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawlStateDates(t *testing.T) {
	t.Parallel()

	st := NewCrawlState()
	day := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, st.DateCompleted(day))

	st.MarkDateFailed(day)
	assert.False(t, st.DateCompleted(day))
	assert.True(t, st.FailedDates[DateKey(day)])

	st.MarkDateComplete(day)
	assert.True(t, st.DateCompleted(day))
	assert.False(t, st.FailedDates[DateKey(day)], "completion clears the failure mark")
}

func TestCrawlStateSeen(t *testing.T) {
	t.Parallel()

	st := NewCrawlState()
	assert.False(t, st.Seen("https://example.org/a"))

	st.MarkVisited("https://example.org/a")
	st.MarkURLFailed("https://example.org/b")

	assert.True(t, st.Seen("https://example.org/a"))
	assert.True(t, st.Seen("https://example.org/b"), "failed URLs count as seen to avoid retry storms")
	assert.False(t, st.VisitedURLs["https://example.org/b"], "failed URLs are not successfully processed")
}

func TestCrawlStateNormalizeAfterDecode(t *testing.T) {
	t.Parallel()

	var st CrawlState
	require.NoError(t, json.Unmarshal([]byte(`{"visited_urls":{"u":true}}`), &st))
	st.Normalize()

	assert.True(t, st.Seen("u"))
	st.MarkDateFailed(time.Now())
	st.MarkURLFailed("v")
}
