package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"newsarchive/internal/domain"
	"newsarchive/internal/ports"
)

// CoordinatorDeps wires all driven adapters into the crawl coordinator.
type CoordinatorDeps struct {
	Fetcher  ports.Fetcher
	Listings ports.ListingParser
	Articles ports.ArticleParser
	Corpus   ports.CorpusWriter
	States   ports.StateStore

	// ArchiveURL builds the listing URL for a date; supplied by the site
	// profile so the coordinator stays site-agnostic.
	ArchiveURL func(day time.Time) string

	// CheckpointEvery persists crawl state after every N stored articles
	// within a date, on top of the per-date checkpoint.
	CheckpointEvery int

	Logger *slog.Logger
}

// Summary reports the outcome of one crawl run.
type Summary struct {
	DatesCompleted  int
	DatesFailed     int
	ArticlesStored  int
	ArticlesSkipped int
}

func (s Summary) String() string {
	return fmt.Sprintf("dates completed=%d failed=%d, articles stored=%d skipped=%d",
		s.DatesCompleted, s.DatesFailed, s.ArticlesStored, s.ArticlesSkipped)
}

// Coordinator drives the crawl: it walks the configured date range in
// chronological order, expands each date into listing and article
// fetches, and records progress so an interrupted run can resume.
type Coordinator struct {
	fetcher  ports.Fetcher
	listings ports.ListingParser
	articles ports.ArticleParser
	corpus   ports.CorpusWriter
	states   ports.StateStore

	archiveURL      func(time.Time) string
	checkpointEvery int
	logger          *slog.Logger
}

// NewCoordinator constructs the orchestration component.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	every := deps.CheckpointEvery
	if every <= 0 {
		every = 25
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		fetcher:         deps.Fetcher,
		listings:        deps.Listings,
		articles:        deps.Articles,
		corpus:          deps.Corpus,
		states:          deps.States,
		archiveURL:      deps.ArchiveURL,
		checkpointEvery: every,
		logger:          deps.Logger,
	}
}

// Run crawls every date from start through end inclusive. Per-date and
// per-article failures are recorded and isolated; only storage failures
// and cancellation abort the run. Dates already completed in a prior run
// are skipped without any network traffic, so re-running a finished
// range is a no-op.
func (c *Coordinator) Run(ctx context.Context, start, end time.Time) (Summary, error) {
	state, err := c.states.Load()
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	total := int(end.Sub(start).Hours()/24) + 1
	day := 0

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		day++
		if err := ctx.Err(); err != nil {
			// Persist progress so the interrupted run resumes cleanly.
			if saveErr := c.states.Save(state); saveErr != nil {
				return summary, saveErr
			}
			return summary, err
		}

		if state.DateCompleted(date) {
			c.logger.Debug("date already complete, skipping", "date", domain.DateKey(date))
			summary.DatesCompleted++
			continue
		}

		c.logger.Info("processing date", "date", domain.DateKey(date), "progress", fmt.Sprintf("%d/%d", day, total))

		stored, skipped, err := c.processDate(ctx, state, start, end, date)
		if err != nil {
			var serr *domain.StorageError
			if errors.As(err, &serr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if saveErr := c.states.Save(state); saveErr != nil {
					return summary, saveErr
				}
				return summary, err
			}
			c.logger.Warn("date failed", "date", domain.DateKey(date), "error", err)
			state.MarkDateFailed(date)
			summary.DatesFailed++
		} else {
			state.MarkDateComplete(date)
			summary.DatesCompleted++
		}
		summary.ArticlesStored += stored
		summary.ArticlesSkipped += skipped

		if err := c.states.Save(state); err != nil {
			return summary, err
		}
	}

	c.logger.Info("crawl finished", "summary", summary.String())
	return summary, nil
}

// processDate handles one listing page and all articles discovered under
// it. A non-nil error marks the whole date failed; storage errors and
// cancellation are passed through and abort the crawl.
func (c *Coordinator) processDate(ctx context.Context, state *domain.CrawlState, start, end, date time.Time) (stored, skipped int, err error) {
	listingURL := c.archiveURL(date)
	page, err := c.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch listing: %w", err)
	}

	refs, err := c.listings.ParseListing(page, date)
	if err != nil {
		// A listing that no longer matches the profile means the site
		// changed; surface it loudly.
		c.logger.Error("listing structure mismatch, scraper may need maintenance", "url", listingURL, "error", err)
		return 0, 0, fmt.Errorf("parse listing: %w", err)
	}

	c.logger.Info("listing parsed", "date", domain.DateKey(date), "articles", len(refs))

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return stored, skipped, err
		}
		// First sighting wins: a URL rediscovered under a later date is
		// skipped, whether it previously succeeded or failed.
		if state.Seen(ref.URL) {
			c.logger.Debug("url already seen, skipping", "url", ref.URL)
			continue
		}

		article, err := c.fetchArticle(ctx, ref)
		if err != nil {
			var serr *domain.StorageError
			if errors.As(err, &serr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stored, skipped, err
			}
			// Recorded as failed-visited: inspectable later, never
			// re-fetched, and never counted as processed.
			state.MarkURLFailed(ref.URL)
			skipped++
			continue
		}

		if !withinRange(article.PublishedAt, start, end) {
			c.logger.Debug("article outside crawl range, dropping", "url", ref.URL, "published_at", article.PublishedAt)
			state.MarkURLFailed(ref.URL)
			skipped++
			continue
		}

		if err := c.corpus.Append(ctx, article); err != nil {
			return stored, skipped, err
		}
		state.MarkVisited(ref.URL)
		stored++

		if stored%c.checkpointEvery == 0 {
			if err := c.states.Save(state); err != nil {
				return stored, skipped, err
			}
		}
	}

	return stored, skipped, nil
}

func (c *Coordinator) fetchArticle(ctx context.Context, ref domain.ArticleRef) (*domain.Article, error) {
	page, err := c.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		c.logger.Warn("article fetch failed", "url", ref.URL, "error", err)
		return nil, err
	}

	article, err := c.articles.ParseArticle(page, ref)
	if err != nil {
		var perr *domain.ParseError
		if errors.As(err, &perr) {
			c.logger.Error("article structure mismatch, scraper may need maintenance", "url", ref.URL, "error", err)
		} else {
			c.logger.Warn("article parse failed", "url", ref.URL, "error", err)
		}
		return nil, err
	}
	return article, nil
}

// withinRange checks the timestamp against the crawl range, end date
// inclusive.
func withinRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end.AddDate(0, 0, 1))
}
