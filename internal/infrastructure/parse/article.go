package parse

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsarchive/internal/domain"
	"newsarchive/internal/ports"
	"newsarchive/internal/site"
)

// ArticleParser extracts full articles from fetched article pages
// according to a site profile.
type ArticleParser struct {
	profile site.Profile
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.ArticleParser = (*ArticleParser)(nil)

// NewArticleParser wires a parser for one site profile.
func NewArticleParser(profile site.Profile, logger *slog.Logger) *ArticleParser {
	return &ArticleParser{profile: profile, logger: logger, now: time.Now}
}

// ParseArticle extracts headline, section, timestamp and body text from
// an article page. A missing headline or body container is a
// *domain.ParseError; parse failures are permanent and never retried.
func (ap *ArticleParser) ParseArticle(page *domain.RawPage, ref domain.ArticleRef) (*domain.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, &domain.ParseError{URL: ref.URL, Reason: fmt.Sprintf("unreadable markup: %v", err)}
	}

	// Gallery articles place the body outside the main article element.
	root := doc.Selection
	if doc.Find(ap.profile.GalleryMarker).Length() == 0 {
		article := doc.Find(ap.profile.ArticleContainer).First()
		if article.Length() == 0 {
			return nil, &domain.ParseError{URL: ref.URL, Reason: "no article container"}
		}
		root = article
	}

	topline, headline := ap.headline(root)
	if headline == "" {
		headline = ref.Title
	}
	if headline == "" {
		return nil, &domain.ParseError{URL: ref.URL, Reason: "no headline"}
	}

	intro, author := ap.introAndAuthor(root)

	body := root.Find(ap.profile.BodyContainer)
	if body.Length() != 1 {
		return nil, &domain.ParseError{
			URL:    ref.URL,
			Reason: fmt.Sprintf("expected one body container, found %d", body.Length()),
		}
	}

	paragraphs := ap.paragraphs(body)
	if intro == "" && len(paragraphs) > 0 {
		// Some layouts fold the intro into the first body paragraph.
		intro = paragraphs[0]
		paragraphs = paragraphs[1:]
	}

	text := strings.Join(paragraphs, "\n\n")
	if text == "" {
		return nil, &domain.ParseError{URL: ref.URL, Reason: "empty body text"}
	}

	return &domain.Article{
		URL:         ref.URL,
		Title:       headline,
		Topline:     topline,
		Intro:       intro,
		Author:      author,
		Section:     ref.Section,
		PublishedAt: ref.PublishedAt,
		RetrievedAt: ap.now().UTC(),
		Text:        text,
	}, nil
}

// headline reads the topline/headline span pair above the article.
func (ap *ArticleParser) headline(root *goquery.Selection) (topline, headline string) {
	spans := root.Find(ap.profile.HeadlineSelector)
	if spans.Length() < 2 {
		ap.warn("no topline/headline span pair, falling back to teaser title")
		return "", ""
	}
	return ap.profile.CleanText(spans.Eq(0).Text()), ap.profile.CleanText(spans.Eq(1).Text())
}

// introAndAuthor reads the leading intro element and the author link that
// follows it. Both are optional; many articles carry no author byline.
func (ap *ArticleParser) introAndAuthor(root *goquery.Selection) (intro, author string) {
	introElem := root.Find(ap.profile.IntroSelector).First()
	if introElem.Length() == 0 {
		return "", ""
	}
	intro = ap.profile.CleanText(introElem.Text())

	authorBlock := introElem.Next()
	if authorBlock.Length() > 0 {
		if link := authorBlock.Find("a").First(); link.Length() > 0 {
			author = ap.profile.CleanText(link.Text())
		}
	}
	return intro, author
}

// paragraphs collects body paragraph text in document order, trying the
// fallback selector when the primary one matches nothing.
func (ap *ArticleParser) paragraphs(body *goquery.Selection) []string {
	collect := func(selector string) []string {
		var out []string
		body.Find(selector).Each(func(_ int, p *goquery.Selection) {
			if text := ap.profile.CleanText(p.Text()); text != "" {
				out = append(out, text)
			}
		})
		return out
	}

	paragraphs := collect(ap.profile.ParagraphSelector)
	if len(paragraphs) == 0 && ap.profile.ParagraphFallback != "" {
		paragraphs = collect(ap.profile.ParagraphFallback)
	}
	return paragraphs
}

func (ap *ArticleParser) warn(msg string, args ...any) {
	if ap.logger != nil {
		ap.logger.Warn(msg, args...)
	}
}
