package domain

import "fmt"

// FailureKind tags a fetch failure with its reason.
type FailureKind string

const (
	// FailureNotFound marks a permanently missing page (404 and friends).
	FailureNotFound FailureKind = "not_found"
	// FailureNetwork marks transport failures, 5xx responses and
	// exhausted retries.
	FailureNetwork FailureKind = "network_error"
	// FailureRateLimited marks a page the server refused to serve after
	// repeated 429 responses.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureRobotsDenied marks a path the site's robots.txt disallows.
	FailureRobotsDenied FailureKind = "robots_denied"
)

// FetchError is the failure result of the HTTP fetcher. Transient causes
// are retried internally; a returned FetchError is final for the URL.
type FetchError struct {
	URL      string
	Kind     FailureKind
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s after %d attempt(s): %v", e.URL, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s after %d attempt(s)", e.URL, e.Kind, e.Attempts)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError signals that a page did not match the expected site
// structure. It is permanent for the page and hints at site drift, so
// callers log it prominently instead of retrying.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// StorageError wraps failures of the corpus or state store. Storage
// failures are fatal: the crash-safety contract cannot hold if the
// underlying storage is failing.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
