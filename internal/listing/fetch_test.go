package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New("test-key", zap.NewNop(), nil)
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()
	client.PageSize = 3
	client.backoffUnit = time.Millisecond

	return client, server
}

func pageBody(titles ...string) []byte {
	records := make([]map[string]any, 0, len(titles))
	for _, title := range titles {
		records = append(records, map[string]any{"title": title})
	}
	body, _ := json.Marshal(map[string]any{
		"returnvalue": map[string]any{"data": records},
	})
	return body
}

func TestFetchPageFullPageHasMore(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var envelope scraperEnvelope
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if envelope.Scraper["query"] != "packaging" {
			t.Errorf("unexpected query: %v", envelope.Scraper["query"])
		}
		if r.Header.Get("X-RapidAPI-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Write(pageBody("a", "b", "c"))
	})

	records, hasMore, err := client.FetchPage(context.Background(), Query{Text: "packaging", Location: "Springfield, OH", FromDays: 1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if !hasMore {
		t.Fatalf("full page should report more pages")
	}
}

func TestFetchPageShortPageTerminates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(pageBody("a"))
	})

	records, hasMore, err := client.FetchPage(context.Background(), Query{Text: "packaging"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || hasMore {
		t.Fatalf("short page should terminate pagination, got %d records hasMore=%v", len(records), hasMore)
	}
}

func TestFetchPageEmptyPageTerminates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(pageBody())
	})

	records, hasMore, err := client.FetchPage(context.Background(), Query{Text: "packaging"}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 || hasMore {
		t.Fatalf("empty page should terminate pagination")
	}
}

func TestFetchPageRetriesRateLimit(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(pageBody("a", "b", "c"))
	})

	records, _, err := client.FetchPage(context.Background(), Query{Text: "packaging"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
	if len(records) != 3 {
		t.Fatalf("expected records after retry, got %d", len(records))
	}
}

func TestFetchPageRateLimitBudgetExhausted(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, _, err := client.FetchPage(context.Background(), Query{Text: "packaging"}, 4)
	if err == nil {
		t.Fatalf("expected rate limit error")
	}

	var rateLimited *RateLimitError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rateLimited.Page != 4 {
		t.Fatalf("expected page 4 in error, got %d", rateLimited.Page)
	}
	if calls != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, calls)
	}
}

func TestFetchPageBadRequestNotRetried(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	})

	_, _, err := client.FetchPage(context.Background(), Query{Text: "packaging", FromDays: 9000}, 1)
	if err == nil {
		t.Fatalf("expected upstream error")
	}

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
	if upstream.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", upstream.StatusCode)
	}
	if calls != 1 {
		t.Fatalf("parameter rejection must not be retried, got %d calls", calls)
	}
}

func TestFetchPagePollsAsyncJob(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"jobId": "j-77"}`)
			return
		}

		if r.URL.Path != defaultJobPath+"/j-77" {
			t.Errorf("unexpected poll path: %s", r.URL.Path)
		}

		body, _ := json.Marshal(map[string]any{
			"status":      "completed",
			"returnvalue": map[string]any{"data": []map[string]any{{"title": "a"}}},
		})
		w.Write(body)
	})
	client.JobPath = defaultJobPath

	records, _, err := client.FetchPage(context.Background(), Query{Text: "packaging"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected polled records, got %d", len(records))
	}
}

func TestExtractRecordsLayouts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"returnvalue.data", `{"returnvalue": {"data": [{"title": "a"}]}}`, 1},
		{"data array", `{"data": [{"title": "a"}, {"title": "b"}]}`, 2},
		{"data.jobs", `{"data": {"jobs": [{"title": "a"}]}}`, 1},
		{"data.results", `{"data": {"results": [{"title": "a"}]}}`, 1},
		{"top-level jobs", `{"jobs": [{"title": "a"}]}`, 1},
		{"top-level results", `{"results": [{"title": "a"}]}`, 1},
		{"unknown", `{"something": "else"}`, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var response map[string]any
			if err := json.Unmarshal([]byte(tc.body), &response); err != nil {
				t.Fatalf("bad fixture: %v", err)
			}
			if got := extractRecords(response); len(got) != tc.want {
				t.Fatalf("expected %d records, got %d", tc.want, len(got))
			}
		})
	}
}
