package ports

import (
	"context"
	"time"

	"newsarchive/internal/domain"
)

// Fetcher issues outbound requests for listing and article pages.
// It owns retrying, politeness delays and the failure taxonomy; a
// returned error is final for the URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.RawPage, error)
}

// ListingParser extracts article references from one archive listing
// page for a specific date. An empty result with a nil error is valid:
// the page exists but lists no matching articles.
type ListingParser interface {
	ParseListing(page *domain.RawPage, day time.Time) ([]domain.ArticleRef, error)
}

// ArticleParser extracts a full article from a fetched article page.
type ArticleParser interface {
	ParseArticle(page *domain.RawPage, ref domain.ArticleRef) (*domain.Article, error)
}

// CorpusWriter appends articles to durable storage. Appends are
// idempotent per URL: a repeated append overwrites, never duplicates.
type CorpusWriter interface {
	Append(ctx context.Context, article *domain.Article) error
}

// StateStore loads and persists crawl progress between runs.
type StateStore interface {
	Load() (*domain.CrawlState, error)
	Save(state *domain.CrawlState) error
}
