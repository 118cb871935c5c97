package domain

import "time"

// CrawlTarget identifies one archive listing page: the publication date
// it covers and an optional section label. Immutable once created.
type CrawlTarget struct {
	Date    time.Time
	Section string
}

// ArticleRef is a discovered article identity: the canonical URL plus the
// teaser metadata found on the listing page it was discovered under.
// Unique by URL across a whole crawl.
type ArticleRef struct {
	URL          string
	Title        string
	Section      string
	PublishedAt  time.Time
	DiscoveredOn time.Time
}

// Article is the final unit of output appended to the corpus.
// Text is non-empty by construction; articles without a body are dropped
// before they reach storage.
type Article struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Topline     string    `json:"topline,omitempty"`
	Intro       string    `json:"intro,omitempty"`
	Author      string    `json:"author,omitempty"`
	Section     string    `json:"section"`
	PublishedAt time.Time `json:"published_at"`
	RetrievedAt time.Time `json:"retrieved_at"`
	Text        string    `json:"text"`
}

// RawPage is the body of one fetched page together with its final URL.
type RawPage struct {
	URL       string
	Body      []byte
	FetchedAt time.Time
}
