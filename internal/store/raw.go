package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/posting"
)

// InsertRaw writes a normalized posting unless one with the same fingerprint
// already exists. The conflict is resolved by the unique constraint, never
// surfaced to the caller.
func (s *Store) InsertRaw(ctx context.Context, p *posting.RawPosting) (Outcome, error) {
	jobTypes, err := json.Marshal(p.JobTypes)
	if err != nil {
		return AlreadyExists, fmt.Errorf("encoding job types: %w", err)
	}
	attributes, err := json.Marshal(p.Attributes)
	if err != nil {
		return AlreadyExists, fmt.Errorf("encoding attributes: %w", err)
	}
	shifts, err := json.Marshal(p.ShiftAndSchedule)
	if err != nil {
		return AlreadyExists, fmt.Errorf("encoding shift and schedule: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO raw_postings (
			fingerprint, provider_id, job_key, title, company, company_url,
			location_city, location_postal_code, location_country, location_country_code,
			location_street, location_short, location_long, location_latitude, location_longitude,
			salary_min, salary_max, salary_currency, salary_period, salary_text,
			description_html, description_text, job_types, attributes, shift_and_schedule,
			posting_url, apply_url, published_at, is_remote, source_payload
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25,
			$26, $27, $28, $29, $30
		)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING id`,
		p.Fingerprint, nullable(p.ProviderID), nullable(p.JobKey), nullable(p.Title), nullable(p.Company), nullable(p.CompanyURL),
		nullable(p.Location.City), nullable(p.Location.PostalCode), nullable(p.Location.Country), nullable(p.Location.CountryCode),
		nullable(p.Location.StreetAddress), nullable(p.Location.DisplayShort), nullable(p.Location.DisplayLong), p.Location.Latitude, p.Location.Longitude,
		p.Salary.Min, p.Salary.Max, nullable(p.Salary.Currency), nullable(p.Salary.Period), nullable(p.Salary.Text),
		nullable(p.DescriptionHTML), nullable(p.DescriptionText), jobTypes, attributes, shifts,
		nullable(p.PostingURL), nullable(p.ApplyURL), p.PublishedAt, p.IsRemote, p.Payload,
	).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return AlreadyExists, nil
	}
	if err != nil {
		return AlreadyExists, fmt.Errorf("inserting raw posting: %w", err)
	}

	s.logger.Debug("raw posting inserted",
		zap.Int64("id", id),
		zap.String("fingerprint", p.Fingerprint),
	)

	return Inserted, nil
}

// SelectPublishedSince returns normalized postings published at or after the
// cutoff, newest first. Ordering is stable within one call.
func (s *Store) SelectPublishedSince(ctx context.Context, cutoff time.Time) ([]*posting.RawPosting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			fingerprint, provider_id, job_key, title, company, company_url,
			location_short, location_long, salary_text,
			description_html, description_text, job_types, attributes, shift_and_schedule,
			posting_url, apply_url, published_at, is_remote
		FROM raw_postings
		WHERE published_at >= $1
		ORDER BY published_at DESC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("querying raw postings: %w", err)
	}
	defer rows.Close()

	var postings []*posting.RawPosting
	for rows.Next() {
		var (
			p                          posting.RawPosting
			providerID, jobKey         *string
			title, company, companyURL *string
			locShort, locLong          *string
			salaryText                 *string
			descHTML, descText         *string
			jobTypes, attrs, shifts    []byte
			postingURL, applyURL       *string
		)

		if err := rows.Scan(
			&p.Fingerprint, &providerID, &jobKey, &title, &company, &companyURL,
			&locShort, &locLong, &salaryText,
			&descHTML, &descText, &jobTypes, &attrs, &shifts,
			&postingURL, &applyURL, &p.PublishedAt, &p.IsRemote,
		); err != nil {
			return nil, fmt.Errorf("scanning raw posting: %w", err)
		}

		p.ProviderID = deref(providerID)
		p.JobKey = deref(jobKey)
		p.Title = deref(title)
		p.Company = deref(company)
		p.CompanyURL = deref(companyURL)
		p.Location.DisplayShort = deref(locShort)
		p.Location.DisplayLong = deref(locLong)
		p.Salary.Text = deref(salaryText)
		p.DescriptionHTML = deref(descHTML)
		p.DescriptionText = deref(descText)
		p.PostingURL = deref(postingURL)
		p.ApplyURL = deref(applyURL)

		if err := decodeStrings(jobTypes, &p.JobTypes); err != nil {
			return nil, err
		}
		if err := decodeStrings(attrs, &p.Attributes); err != nil {
			return nil, err
		}
		if err := decodeStrings(shifts, &p.ShiftAndSchedule); err != nil {
			return nil, err
		}

		postings = append(postings, &p)
	}

	return postings, rows.Err()
}

// CompanyRecentCount counts postings from the given company published within
// the window ending now.
func (s *Store) CompanyRecentCount(ctx context.Context, company string, window time.Duration) (int, error) {
	if company == "" {
		return 0, nil
	}

	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM raw_postings
		WHERE company = $1
		  AND published_at >= $2`,
		company, time.Now().Add(-window),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting company postings: %w", err)
	}

	return count, nil
}

func decodeStrings(raw []byte, target *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decoding json column: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
