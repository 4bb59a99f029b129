package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/util"
)

// Query holds the search parameters sent to the listing provider.
type Query struct {
	Text     string
	Location string
	FromDays int
	JobType  string
	Radius   string
	Sort     string
	Country  string
}

// scraperEnvelope is the provider's request body shape.
type scraperEnvelope struct {
	Scraper map[string]any `json:"scraper"`
}

// FetchPage fetches one page of raw posting records. hasMore is false when
// the page is empty or shorter than the configured page size, which
// terminates pagination for the caller.
//
// Rate-limit responses are retried up to the attempt budget with exponential
// backoff plus jitter; exhausting the budget surfaces *RateLimitError. Any
// other failure surfaces *UpstreamError carrying the page index.
func (c *Client) FetchPage(ctx context.Context, q Query, page int) (records []map[string]any, hasMore bool, err error) {
	payload := scraperEnvelope{Scraper: map[string]any{
		"maxRows":  c.PageSize,
		"query":    q.Text,
		"location": q.Location,
		"fromDays": strconv.Itoa(q.FromDays),
		"page":     page,
	}}
	if q.JobType != "" {
		payload.Scraper["jobType"] = q.JobType
	}
	if q.Radius != "" {
		payload.Scraper["radius"] = q.Radius
	}
	if q.Sort != "" {
		payload.Scraper["sort"] = q.Sort
	}
	if q.Country != "" {
		payload.Scraper["country"] = q.Country
	}

	response, err := c.requestWithBackoff(ctx, c.BaseURL+c.JobPath, payload, page)
	if err != nil {
		return nil, false, err
	}

	// Some provider deployments return a job handle first and expect the
	// caller to poll for the finished scrape.
	if jobID, ok := asyncJobID(response); ok {
		response, err = c.pollJob(ctx, jobID, page)
		if err != nil {
			return nil, false, err
		}
	}

	records = extractRecords(response)

	c.logger.Debug("fetched listing page",
		zap.Int("page", page),
		zap.Int("records", len(records)),
	)

	return records, len(records) >= c.PageSize, nil
}

// requestWithBackoff POSTs the payload, retrying rate-limit and transient
// failures. Wait time before attempt n is 2^n seconds plus a random
// fractional second.
func (c *Client) requestWithBackoff(ctx context.Context, url string, payload any, page int) (map[string]any, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration((float64(uint(1)<<uint(attempt-1)) + rand.Float64()) * float64(c.backoffUnit))
			c.logger.Warn("retrying listing request",
				zap.Int("page", page),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := util.WaitFor(ctx, delay); err != nil {
				return nil, &UpstreamError{Page: page, Err: err}
			}
		}

		response, retryable, err := c.doRequest(ctx, url, payload, page)
		if err == nil {
			return response, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// doRequest performs a single POST. The second return reports whether the
// failure is worth retrying: rate limits, 5xx and transport errors are,
// other client errors are not.
func (c *Client) doRequest(ctx context.Context, url string, payload any, page int) (map[string]any, bool, error) {
	if err := c.gate.Wait(ctx, gateKey); err != nil {
		return nil, false, &UpstreamError{Page: page, Err: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false, &UpstreamError{Page: page, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, &UpstreamError{Page: page, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, &UpstreamError{Page: page, Err: ctx.Err()}
		}
		return nil, true, &UpstreamError{Page: page, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &RateLimitError{Page: page}
	case resp.StatusCode >= 500:
		return nil, true, &UpstreamError{Page: page, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		// Parameter rejections (400 and friends) are surfaced, not retried.
		return nil, false, &UpstreamError{Page: page, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &UpstreamError{Page: page, Err: err}
	}

	var response map[string]any
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false, &UpstreamError{Page: page, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return response, false, nil
}

// pollJob polls an async scrape job until completion or the poll budget runs
// out.
func (c *Client) pollJob(ctx context.Context, jobID string, page int) (map[string]any, error) {
	url := fmt.Sprintf("%s%s/%s", c.BaseURL, c.JobPath, jobID)

	for poll := 0; poll < maxPolls; poll++ {
		c.logger.Debug("polling scrape job",
			zap.String("job_id", jobID),
			zap.Int("poll", poll+1),
		)

		response, err := c.requestWithBackoff(ctx, url, scraperEnvelope{Scraper: map[string]any{}}, page)
		if err != nil {
			return nil, err
		}

		if status, _ := response["status"].(string); status == "completed" {
			return response, nil
		}

		if err := util.WaitFor(ctx, pollInterval); err != nil {
			return nil, &UpstreamError{Page: page, Err: err}
		}
	}

	return nil, &UpstreamError{Page: page, Err: fmt.Errorf("scrape job %s did not complete", jobID)}
}

func asyncJobID(response map[string]any) (string, bool) {
	if _, hasData := response["data"]; hasData {
		return "", false
	}
	if _, hasReturn := response["returnvalue"]; hasReturn {
		return "", false
	}
	id, ok := response["jobId"].(string)
	return id, ok && id != ""
}

// extractRecords digs the posting array out of the known response layouts.
func extractRecords(response map[string]any) []map[string]any {
	candidates := []any{}

	if rv, ok := response["returnvalue"].(map[string]any); ok {
		candidates = append(candidates, rv["data"])
	}
	if data, ok := response["data"].(map[string]any); ok {
		candidates = append(candidates, data["jobs"], data["results"])
	} else {
		candidates = append(candidates, response["data"])
	}
	candidates = append(candidates, response["jobs"], response["results"])

	for _, candidate := range candidates {
		items, ok := candidate.([]any)
		if !ok {
			continue
		}

		records := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if record, ok := item.(map[string]any); ok {
				records = append(records, record)
			}
		}
		return records
	}

	return nil
}
