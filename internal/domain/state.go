package domain

import "time"

// DateKeyLayout formats the date keys used in CrawlState.
const DateKeyLayout = "2006-01-02"

// DateKey normalizes a timestamp to the date key used for progress tracking.
func DateKey(day time.Time) string {
	return day.Format(DateKeyLayout)
}

// CrawlState is the process-wide progress record. It is loaded at crawl
// start, updated as targets and articles complete, and persisted often
// enough that a restarted crawl resumes without re-fetching finished work.
type CrawlState struct {
	CompletedDates map[string]bool `json:"completed_dates"`
	FailedDates    map[string]bool `json:"failed_dates"`
	VisitedURLs    map[string]bool `json:"visited_urls"`
	FailedURLs     map[string]bool `json:"failed_urls"`
}

// NewCrawlState returns an empty, ready-to-use state.
func NewCrawlState() *CrawlState {
	return &CrawlState{
		CompletedDates: map[string]bool{},
		FailedDates:    map[string]bool{},
		VisitedURLs:    map[string]bool{},
		FailedURLs:     map[string]bool{},
	}
}

// Normalize fills nil maps after deserialization of older or hand-edited
// state files.
func (s *CrawlState) Normalize() {
	if s.CompletedDates == nil {
		s.CompletedDates = map[string]bool{}
	}
	if s.FailedDates == nil {
		s.FailedDates = map[string]bool{}
	}
	if s.VisitedURLs == nil {
		s.VisitedURLs = map[string]bool{}
	}
	if s.FailedURLs == nil {
		s.FailedURLs = map[string]bool{}
	}
}

// DateCompleted reports whether a date was fully processed in a prior run.
func (s *CrawlState) DateCompleted(day time.Time) bool {
	return s.CompletedDates[DateKey(day)]
}

// MarkDateComplete records a fully processed date and clears a failure
// mark left by an earlier attempt.
func (s *CrawlState) MarkDateComplete(day time.Time) {
	key := DateKey(day)
	s.CompletedDates[key] = true
	delete(s.FailedDates, key)
}

// MarkDateFailed records a date whose listing could not be processed.
// A failed date is retried on the next run.
func (s *CrawlState) MarkDateFailed(day time.Time) {
	s.FailedDates[DateKey(day)] = true
}

// Seen reports whether a URL was already resolved, successfully or not.
// Seen URLs are never fetched again.
func (s *CrawlState) Seen(url string) bool {
	return s.VisitedURLs[url] || s.FailedURLs[url]
}

// MarkVisited records a successfully fetched, parsed and stored URL.
func (s *CrawlState) MarkVisited(url string) {
	s.VisitedURLs[url] = true
}

// MarkURLFailed records a URL whose fetch or parse failed permanently.
// It is kept separate from VisitedURLs so failures stay inspectable, but
// it equally blocks re-fetching to avoid retry storms on broken pages.
func (s *CrawlState) MarkURLFailed(url string) {
	s.FailedURLs[url] = true
}
