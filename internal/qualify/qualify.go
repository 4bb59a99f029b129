// Package qualify scores stored postings, enriches the ones that pass with
// an HR contact, and persists them as qualified leads.
package qualify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/contacts"
	"github.com/JuliusShade/FD-Lead-Gen/internal/posting"
	"github.com/JuliusShade/FD-Lead-Gen/internal/scoring"
	"github.com/JuliusShade/FD-Lead-Gen/internal/store"
)

// companyWindow bounds the recent-posting count attached to each lead.
const companyWindow = 30 * 24 * time.Hour

// RawSource reads the ingested postings to qualify.
type RawSource interface {
	SelectPublishedSince(ctx context.Context, cutoff time.Time) ([]*posting.RawPosting, error)
	CompanyRecentCount(ctx context.Context, company string, window time.Duration) (int, error)
}

// QualifiedSink persists qualified postings idempotently.
type QualifiedSink interface {
	InsertQualified(ctx context.Context, q *posting.QualifiedPosting) (store.Outcome, error)
}

// Scorer evaluates one posting against the fit rubric.
type Scorer interface {
	Score(ctx context.Context, p *posting.RawPosting) (*scoring.Result, error)
	Threshold() int
}

// ContactFinder returns the best HR contact for a company, or nil.
type ContactFinder interface {
	FindBest(ctx context.Context, company, jobTitle, location string) *contacts.Contact
}

// Summary reports per-terminal-state counts for one qualification run.
type Summary struct {
	Fetched          int `json:"fetched"`
	Scored           int `json:"scored"`
	SkippedError     int `json:"skipped_error"`
	HardRejected     int `json:"hard_rejected"`
	BelowThreshold   int `json:"below_threshold"`
	Passed           int `json:"passed"`
	ContactsFound    int `json:"contacts_found"`
	Inserted         int `json:"inserted"`
	AlreadyQualified int `json:"already_qualified"`
}

// Runner walks raw postings through score, enrich, persist.
type Runner struct {
	source  RawSource
	sink    QualifiedSink
	scorer  Scorer
	finder  ContactFinder
	logger  *zap.Logger
	nowFunc func() time.Time
}

func NewRunner(source RawSource, sink QualifiedSink, scorer Scorer, finder ContactFinder, logger *zap.Logger) *Runner {
	return &Runner{
		source:  source,
		sink:    sink,
		scorer:  scorer,
		finder:  finder,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Nightly qualifies postings published in the trailing 24 hours.
func (r *Runner) Nightly(ctx context.Context) (*Summary, error) {
	return r.Run(ctx, r.nowFunc().Add(-24*time.Hour))
}

// Backfill qualifies postings published in the trailing N days.
func (r *Runner) Backfill(ctx context.Context, days int) (*Summary, error) {
	if days <= 0 {
		days = 1
	}
	return r.Run(ctx, r.nowFunc().Add(-time.Duration(days)*24*time.Hour))
}

// Run qualifies every posting published at or after the cutoff. Per-posting
// scoring failures are counted and skipped; storage failures abort the run.
// Already-qualified fingerprints are left untouched, so re-runs over the
// same window only add postings that are new since the last run.
func (r *Runner) Run(ctx context.Context, cutoff time.Time) (*Summary, error) {
	postings, err := r.source.SelectPublishedSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("selecting postings: %w", err)
	}

	summary := &Summary{Fetched: len(postings)}

	r.logger.Info("qualification run starting",
		zap.Time("cutoff", cutoff),
		zap.Int("postings", len(postings)),
		zap.Int("threshold", r.scorer.Threshold()),
	)

	for _, p := range postings {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := r.qualifyOne(ctx, p, summary); err != nil {
			return summary, err
		}
	}

	r.logger.Info("qualification run complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int("scored", summary.Scored),
		zap.Int("skipped_error", summary.SkippedError),
		zap.Int("hard_rejected", summary.HardRejected),
		zap.Int("below_threshold", summary.BelowThreshold),
		zap.Int("passed", summary.Passed),
		zap.Int("contacts_found", summary.ContactsFound),
		zap.Int("inserted", summary.Inserted),
		zap.Int("already_qualified", summary.AlreadyQualified),
	)

	return summary, nil
}

func (r *Runner) qualifyOne(ctx context.Context, p *posting.RawPosting, summary *Summary) error {
	result, err := r.scorer.Score(ctx, p)
	if err != nil {
		summary.SkippedError++
		r.logger.Warn("scoring failed, leaving posting unqualified",
			zap.String("fingerprint", p.Fingerprint),
			zap.String("title", p.Title),
			zap.Error(err),
		)
		return nil
	}

	summary.Scored++

	if result.HardReject {
		summary.HardRejected++
		return nil
	}

	if result.Score < r.scorer.Threshold() {
		summary.BelowThreshold++
		r.logger.Debug("posting below threshold",
			zap.String("fingerprint", p.Fingerprint),
			zap.Int("score", result.Score),
		)
		return nil
	}

	summary.Passed++

	recentCount, err := r.source.CompanyRecentCount(ctx, p.Company, companyWindow)
	if err != nil {
		return fmt.Errorf("counting company postings: %w", err)
	}

	contact := r.finder.FindBest(ctx, p.Company, p.Title, p.Location.DisplayShort)
	if contact != nil {
		summary.ContactsFound++
	}

	qualified := buildQualified(p, result, contact, recentCount, r.nowFunc())

	outcome, err := r.sink.InsertQualified(ctx, qualified)
	if err != nil {
		return fmt.Errorf("storing qualified posting %s: %w", p.Fingerprint, err)
	}

	switch outcome {
	case store.Inserted:
		summary.Inserted++
	case store.AlreadyExists:
		summary.AlreadyQualified++
	}

	return nil
}

func buildQualified(p *posting.RawPosting, result *scoring.Result, contact *contacts.Contact, recentCount int, now time.Time) *posting.QualifiedPosting {
	q := &posting.QualifiedPosting{
		Fingerprint:        p.Fingerprint,
		Title:              p.Title,
		Company:            p.Company,
		LocationDisplay:    p.Location.DisplayShort,
		SalaryText:         p.Salary.Text,
		PostingURL:         p.PostingURL,
		ApplyURL:           p.ApplyURL,
		DescriptionText:    p.DescriptionText,
		DescriptionHTML:    p.DescriptionHTML,
		PublishedAt:        p.PublishedAt,
		Score:              result.Score,
		Reasons:            result.Reasons,
		CompanyRecentCount: recentCount,
		QualifiedAt:        now,
	}

	if contact != nil {
		q.ContactName = optional(contact.Name)
		q.ContactTitle = optional(contact.Title)
		q.ContactEmail = optional(contact.Email)
		q.ContactLinkedIn = optional(contact.LinkedIn)
	}

	return q
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
