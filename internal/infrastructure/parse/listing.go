package parse

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsarchive/internal/domain"
	"newsarchive/internal/ports"
	"newsarchive/internal/site"
)

// ListingParser extracts article references from archive listing pages
// according to a site profile.
type ListingParser struct {
	profile site.Profile
	logger  *slog.Logger
}

var _ ports.ListingParser = (*ListingParser)(nil)

// NewListingParser wires a parser for one site profile.
func NewListingParser(profile site.Profile, logger *slog.Logger) *ListingParser {
	return &ListingParser{profile: profile, logger: logger}
}

// ParseListing returns one ArticleRef per unique matching article link on
// the page. A well-formed page with no matching teasers yields an empty
// slice, not an error; a page whose structure does not match the profile
// yields a *domain.ParseError.
func (lp *ListingParser) ParseListing(page *domain.RawPage, day time.Time) ([]domain.ArticleRef, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, &domain.ParseError{URL: page.URL, Reason: fmt.Sprintf("unreadable markup: %v", err)}
	}

	container := doc.Find(lp.profile.ListingContainer)
	if container.Length() != 1 {
		return nil, &domain.ParseError{
			URL:    page.URL,
			Reason: fmt.Sprintf("expected one teaser list container, found %d", container.Length()),
		}
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, &domain.ParseError{URL: page.URL, Reason: fmt.Sprintf("invalid page url: %v", err)}
	}

	refs := make([]domain.ArticleRef, 0)
	seen := map[string]struct{}{}

	container.Find(lp.profile.TeaserSelector).Each(func(_ int, teaser *goquery.Selection) {
		if lp.skipTeaser(teaser) {
			return
		}

		link := teaser.Find(lp.profile.TeaserLink).First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			lp.warn("teaser without article link", "page", page.URL)
			return
		}

		abs, err := base.Parse(href)
		if err != nil {
			lp.warn("teaser link unparsable", "page", page.URL, "href", href)
			return
		}
		if !lp.profile.Allows(abs) {
			lp.debug("skipping off-site teaser link", "url", abs.String())
			return
		}

		title := lp.profile.CleanText(link.AttrOr("title", ""))
		if title == "" {
			title = lp.profile.CleanText(link.Text())
		}
		if title == "" {
			lp.warn("teaser without headline", "page", page.URL, "url", abs.String())
			return
		}

		publishedAt, section, ok := lp.teaserFooter(teaser, day)
		if !ok {
			lp.warn("teaser without valid footer", "page", page.URL, "url", abs.String())
			return
		}

		canonical := abs.String()
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}

		refs = append(refs, domain.ArticleRef{
			URL:          canonical,
			Title:        title,
			Section:      section,
			PublishedAt:  publishedAt,
			DiscoveredOn: day,
		})
	})

	return refs, nil
}

// skipTeaser filters gallery, video, audio and paid teasers as well as ads.
func (lp *ListingParser) skipTeaser(teaser *goquery.Selection) bool {
	for _, flag := range lp.profile.SkipFlags {
		sel := fmt.Sprintf("span[%s=%q]", lp.profile.SkipFlagAttr, flag)
		if teaser.Find(sel).Length() > 0 {
			return true
		}
	}
	if lp.profile.AdMarker != "" && strings.Contains(teaser.Text(), lp.profile.AdMarker) {
		return true
	}
	return false
}

// teaserFooter parses the publication time and section label from the
// three-span teaser footer. A missing time degrades to midnight; a
// malformed footer invalidates the teaser.
func (lp *ListingParser) teaserFooter(teaser *goquery.Selection, day time.Time) (time.Time, string, bool) {
	spans := teaser.Find(lp.profile.TeaserFooter)
	if spans.Length() != 3 {
		return time.Time{}, "", false
	}

	publishedAt := day
	timeText := lp.profile.CleanText(spans.Eq(0).Text())
	if m := lp.profile.TimePattern.FindStringSubmatch(timeText); m != nil {
		hour, herr := strconv.Atoi(m[1])
		minute, merr := strconv.Atoi(m[2])
		if herr == nil && merr == nil && hour < 24 && minute < 60 {
			publishedAt = time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
		} else {
			lp.warn("invalid publication time in teaser footer", "text", timeText)
		}
	} else {
		lp.debug("no publication time in teaser footer", "text", timeText)
	}

	section := lp.profile.CleanText(spans.Eq(2).Text())
	return publishedAt, section, true
}

func (lp *ListingParser) debug(msg string, args ...any) {
	if lp.logger != nil {
		lp.logger.Debug(msg, args...)
	}
}

func (lp *ListingParser) warn(msg string, args ...any) {
	if lp.logger != nil {
		lp.logger.Warn(msg, args...)
	}
}
