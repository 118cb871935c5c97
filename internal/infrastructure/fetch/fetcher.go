package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"newsarchive/internal/config"
	"newsarchive/internal/domain"
	"newsarchive/internal/ports"
	"newsarchive/internal/site"
)

const (
	defaultBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client fetches pages from the target site. One client is shared by all
// callers so the politeness delay applies to the site as a whole, not per
// URL.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	profile    site.Profile
	userAgent  string
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger

	robotsOnce  sync.Once
	robots      *robotstxt.Group
	checkRobots bool
}

var _ ports.Fetcher = (*Client)(nil)

// New wires a fetcher from the HTTP configuration and the site profile.
func New(cfg config.HTTPConfig, profile site.Profile, logger *slog.Logger) *Client {
	delay := cfg.RequestDelay
	if delay <= 0 {
		// rate.Every(0) means no limit; keep at least a token bucket.
		delay = time.Millisecond
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(rate.Every(delay), 1),
		profile:     profile,
		userAgent:   cfg.UserAgent,
		maxRetries:  cfg.MaxRetries,
		backoff:     defaultBackoff,
		logger:      logger,
		checkRobots: !cfg.IgnoreRobots,
	}
}

// Fetch issues a GET for the URL, retrying transient failures with
// exponential backoff. The returned error, if any, is a
// *domain.FetchError tagged with the failure reason.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*domain.RawPage, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &domain.FetchError{URL: rawURL, Kind: domain.FailureNetwork, Err: fmt.Errorf("malformed url")}
	}
	if !c.profile.Allows(parsed) {
		return nil, &domain.FetchError{URL: rawURL, Kind: domain.FailureNetwork, Err: fmt.Errorf("host %s outside target site", parsed.Host)}
	}
	if c.checkRobots && !c.allowed(ctx, parsed) {
		return nil, &domain.FetchError{URL: rawURL, Kind: domain.FailureRobotsDenied}
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, &domain.FetchError{URL: rawURL, Kind: domain.FailureNetwork, Attempts: attempts, Err: err}
			}
		}

		attempts++
		page, retry, err := c.attempt(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !retry {
			var ferr *domain.FetchError
			if fe, ok := err.(*domain.FetchError); ok {
				ferr = fe
			} else {
				ferr = &domain.FetchError{URL: rawURL, Kind: domain.FailureNetwork, Err: err}
			}
			ferr.Attempts = attempts
			return nil, ferr
		}
		c.debug("transient failure, will retry", "url", rawURL, "attempt", attempts, "error", err)
	}

	kind := domain.FailureNetwork
	if fe, ok := lastErr.(*domain.FetchError); ok && fe.Kind == domain.FailureRateLimited {
		kind = domain.FailureRateLimited
	}
	return nil, &domain.FetchError{URL: rawURL, Kind: kind, Attempts: attempts, Err: lastErr}
}

// attempt performs a single rate-limited GET. The second return value
// reports whether the failure is transient.
func (c *Client) attempt(ctx context.Context, rawURL string) (*domain.RawPage, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts, connection resets and DNS hiccups are all transient.
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, true, fmt.Errorf("read body: %w", err)
		}
		final := rawURL
		if resp.Request != nil && resp.Request.URL != nil {
			final = resp.Request.URL.String()
		}
		return &domain.RawPage{URL: final, Body: body, FetchedAt: time.Now().UTC()}, false, nil

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, false, &domain.FetchError{URL: rawURL, Kind: domain.FailureNotFound}

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &domain.FetchError{URL: rawURL, Kind: domain.FailureRateLimited, Err: fmt.Errorf("server returned %s", resp.Status)}

	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("server returned %s", resp.Status)

	default:
		return nil, false, &domain.FetchError{URL: rawURL, Kind: domain.FailureNetwork, Err: fmt.Errorf("server returned %s", resp.Status)}
	}
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff << (attempt - 1)
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// allowed consults the site's robots.txt, fetched once per client.
// Unreachable or unparsable robots.txt means everything is allowed.
func (c *Client) allowed(ctx context.Context, u *url.URL) bool {
	c.robotsOnce.Do(func() {
		robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return
		}
		req.Header.Set("User-Agent", c.userAgent)
		resp, err := c.http.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return
		}
		data, err := robotstxt.FromResponse(resp)
		if err != nil {
			c.debug("robots.txt unparsable, treating as allow-all", "url", robotsURL, "error", err)
			return
		}
		agent := c.userAgent
		if i := strings.IndexByte(agent, '/'); i > 0 {
			agent = agent[:i]
		}
		c.robots = data.FindGroup(agent)
	})

	if c.robots == nil {
		return true
	}
	return c.robots.Test(u.Path)
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
