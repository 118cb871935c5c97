package site

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Profile captures everything site-specific about one news archive: how
// listing URLs are built from dates and which structural markers the
// parsers look for. A site redesign means writing a new profile, not
// touching the coordinator or the parsers.
type Profile struct {
	Name    string
	BaseURL string

	// ArchivePathFormat builds the listing path for a date; it receives
	// day, month and year in that order.
	ArchivePathFormat string

	// Listing page markers.
	ListingContainer string
	TeaserSelector   string
	TeaserLink       string
	TeaserFooter     string
	SkipFlags        []string
	SkipFlagAttr     string
	AdMarker         string
	TimePattern      *regexp.Regexp

	// Article page markers.
	ArticleContainer  string
	GalleryMarker     string
	HeadlineSelector  string
	IntroSelector     string
	BodyContainer     string
	ParagraphSelector string
	ParagraphFallback string

	// StripTokens are inline boilerplate fragments removed from any
	// extracted text.
	StripTokens []string
}

// ArchiveURL returns the absolute listing URL for one date.
func (p Profile) ArchiveURL(day time.Time) string {
	path := fmt.Sprintf(p.ArchivePathFormat, day.Day(), int(day.Month()), day.Year())
	return strings.TrimSuffix(p.BaseURL, "/") + path
}

// Allows reports whether a discovered URL belongs to the profile's site.
// Listing pages routinely link out to partner sites; those are skipped.
func (p Profile) Allows(u *url.URL) bool {
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, base.Host)
}

// CleanText strips the profile's boilerplate tokens and normalizes
// whitespace in extracted element text.
func (p Profile) CleanText(s string) string {
	for _, token := range p.StripTokens {
		s = strings.ReplaceAll(s, token, "")
	}
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// Registry keeps a mapping from profile names to their definitions.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: map[string]Profile{}}
}

// Register adds or replaces a profile.
func (r *Registry) Register(p Profile) {
	if r.profiles == nil {
		r.profiles = map[string]Profile{}
	}
	r.profiles[p.Name] = p
}

// Resolve returns a profile by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Profile, error) {
	if p, ok := r.profiles[name]; ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("site profile %s is not registered", name)
}

// DefaultRegistry returns a registry with all built-in profiles.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Spiegel())
	return r
}

// Spiegel describes the SPON news archive as of late 2020.
func Spiegel() Profile {
	return Profile{
		Name:              "spiegel",
		BaseURL:           "https://www.spiegel.de",
		ArchivePathFormat: "/nachrichtenarchiv/artikel-%02d.%02d.%d.html",

		ListingContainer: `section[data-area="article-teaser-list"]`,
		TeaserSelector:   "article",
		TeaserLink:       "h2 a",
		TeaserFooter:     "footer span",
		SkipFlagAttr:     "data-conditional-flag",
		SkipFlags:        []string{"gallery", "video", "audio", "paid"},
		AdMarker:         "ANZEIGE",
		TimePattern:      regexp.MustCompile(`(\d+)\.(\d{2})\s+Uhr$`),

		ArticleContainer:  "main article",
		GalleryMarker:     `div[data-galleryteaser-el="galleryActivator"]`,
		HeadlineSelector:  "header h2 span",
		IntroSelector:     "header div.leading-loose",
		BodyContainer:     `div[data-article-el="body"]`,
		ParagraphSelector: "div.RichText p",
		ParagraphFallback: "section.RichText p",

		StripTokens: []string{"Icon: Spiegel Plus"},
	}
}
