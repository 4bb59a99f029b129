package listing

import "fmt"

// RateLimitError reports that the retry budget for a page was exhausted on
// rate-limit responses. Pages fetched before it remain valid.
type RateLimitError struct {
	Page int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit retry budget exhausted for page %d", e.Page)
}

// UpstreamError reports a non-rate-limit request failure for a page. The
// caller decides whether to continue with partial results or abort.
type UpstreamError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream fetch failed for page %d: HTTP %d", e.Page, e.StatusCode)
	}
	return fmt.Sprintf("upstream fetch failed for page %d: %v", e.Page, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
