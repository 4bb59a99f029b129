package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/posting"
)

// InsertQualified records a posting that passed qualification. A fingerprint
// already present in the table leaves the existing row untouched, so re-runs
// over the same window are no-ops.
func (s *Store) InsertQualified(ctx context.Context, q *posting.QualifiedPosting) (Outcome, error) {
	reasons, err := json.Marshal(q.Reasons)
	if err != nil {
		return AlreadyExists, fmt.Errorf("encoding reasons: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO qualified_postings (
			fingerprint, title, company, location_short, salary_text,
			posting_url, apply_url, description_text, description_html, published_at,
			score, reasons, company_30d_count,
			contact_name, contact_title, contact_email, contact_linkedin,
			qualified_at
		)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, $17,
			$18
		)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING id`,
		q.Fingerprint, nullable(q.Title), nullable(q.Company), nullable(q.LocationDisplay), nullable(q.SalaryText),
		nullable(q.PostingURL), nullable(q.ApplyURL), nullable(q.DescriptionText), nullable(q.DescriptionHTML), q.PublishedAt,
		q.Score, reasons, q.CompanyRecentCount,
		q.ContactName, q.ContactTitle, q.ContactEmail, q.ContactLinkedIn,
		q.QualifiedAt,
	).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return AlreadyExists, nil
	}
	if err != nil {
		return AlreadyExists, fmt.Errorf("inserting qualified posting: %w", err)
	}

	s.logger.Debug("qualified posting inserted",
		zap.Int64("id", id),
		zap.String("fingerprint", q.Fingerprint),
		zap.Int("score", q.Score),
	)

	return Inserted, nil
}
