// Package ingest pulls postings from the listing provider, normalizes them,
// and writes them to the raw store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/listing"
	"github.com/JuliusShade/FD-Lead-Gen/internal/posting"
	"github.com/JuliusShade/FD-Lead-Gen/internal/store"
)

// PageFetcher yields one page of raw provider records.
type PageFetcher interface {
	FetchPage(ctx context.Context, q listing.Query, page int) ([]map[string]any, bool, error)
}

// RawSink persists normalized postings idempotently.
type RawSink interface {
	InsertRaw(ctx context.Context, p *posting.RawPosting) (store.Outcome, error)
}

// Summary reports per-outcome counts for one ingestion run.
type Summary struct {
	Pages      int `json:"pages"`
	Fetched    int `json:"fetched"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Malformed  int `json:"malformed"`
	PageErrors int `json:"page_errors"`
}

// Runner drives fetch, normalize, insert for a query window.
type Runner struct {
	fetcher PageFetcher
	sink    RawSink
	logger  *zap.Logger
	query   listing.Query
}

func NewRunner(fetcher PageFetcher, sink RawSink, logger *zap.Logger, query listing.Query) *Runner {
	return &Runner{
		fetcher: fetcher,
		sink:    sink,
		logger:  logger,
		query:   query,
	}
}

// Run fetches up to maxPages pages looking back fromDays days. A fetch
// failure on the first page is fatal; on later pages it ends pagination and
// the records already stored stand. Per-record problems are counted, never
// fatal. Storage errors abort the run.
func (r *Runner) Run(ctx context.Context, fromDays, maxPages int) (*Summary, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	query := r.query
	query.FromDays = fromDays

	r.logger.Info("ingestion run starting",
		zap.String("query", query.Text),
		zap.String("location", query.Location),
		zap.Int("from_days", fromDays),
		zap.Int("max_pages", maxPages),
	)

	summary := &Summary{}

	for page := 1; page <= maxPages; page++ {
		records, hasMore, err := r.fetcher.FetchPage(ctx, query, page)
		if err != nil {
			if page == 1 {
				return summary, fmt.Errorf("fetching first page: %w", err)
			}

			summary.PageErrors++
			r.logger.Warn("page fetch failed, keeping records from earlier pages",
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}

		summary.Pages++
		summary.Fetched += len(records)

		if err := r.storePage(ctx, records, summary); err != nil {
			return summary, err
		}

		if !hasMore {
			break
		}
	}

	r.logger.Info("ingestion run complete",
		zap.Int("pages", summary.Pages),
		zap.Int("fetched", summary.Fetched),
		zap.Int("inserted", summary.Inserted),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("malformed", summary.Malformed),
		zap.Int("page_errors", summary.PageErrors),
	)

	return summary, nil
}

// Nightly ingests the trailing 24 hours.
func (r *Runner) Nightly(ctx context.Context, maxPages int) (*Summary, error) {
	return r.Run(ctx, 1, maxPages)
}

func (r *Runner) storePage(ctx context.Context, records []map[string]any, summary *Summary) error {
	for _, record := range records {
		// Cancellation is honored between records, never mid-write.
		if err := ctx.Err(); err != nil {
			return err
		}

		normalized, err := posting.Normalize(record)
		if err != nil {
			var malformed *posting.MalformedRecordError
			if errors.As(err, &malformed) {
				summary.Malformed++
				r.logger.Warn("dropping malformed record", zap.String("reason", malformed.Reason))
				continue
			}
			return fmt.Errorf("normalizing record: %w", err)
		}

		outcome, err := r.sink.InsertRaw(ctx, normalized)
		if err != nil {
			return fmt.Errorf("storing posting %s: %w", normalized.Fingerprint, err)
		}

		switch outcome {
		case store.Inserted:
			summary.Inserted++
		case store.AlreadyExists:
			summary.Duplicates++
		}
	}

	return nil
}
