package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const rawPostingsDDL = `
CREATE TABLE IF NOT EXISTS raw_postings (
  id                    BIGSERIAL PRIMARY KEY,
  fingerprint           TEXT NOT NULL UNIQUE,

  provider_id           TEXT,
  job_key               TEXT,

  title                 TEXT,
  company               TEXT,
  company_url           TEXT,

  location_city         TEXT,
  location_postal_code  TEXT,
  location_country      TEXT,
  location_country_code TEXT,
  location_street       TEXT,
  location_short        TEXT,
  location_long         TEXT,
  location_latitude     DOUBLE PRECISION,
  location_longitude    DOUBLE PRECISION,

  salary_min            NUMERIC,
  salary_max            NUMERIC,
  salary_currency       TEXT,
  salary_period         TEXT,
  salary_text           TEXT,

  description_html      TEXT,
  description_text      TEXT,

  job_types             JSONB,
  attributes            JSONB,
  shift_and_schedule    JSONB,

  posting_url           TEXT,
  apply_url             TEXT,

  published_at          TIMESTAMPTZ,
  is_remote             BOOLEAN NOT NULL DEFAULT FALSE,

  source_payload        JSONB NOT NULL,
  ingested_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_raw_postings_published ON raw_postings (published_at);
CREATE INDEX IF NOT EXISTS idx_raw_postings_company   ON raw_postings (company);
CREATE INDEX IF NOT EXISTS idx_raw_postings_ingested  ON raw_postings (ingested_at);
`

const qualifiedPostingsDDL = `
CREATE TABLE IF NOT EXISTS qualified_postings (
  id                    BIGSERIAL PRIMARY KEY,
  fingerprint           TEXT NOT NULL UNIQUE REFERENCES raw_postings (fingerprint),

  title                 TEXT,
  company               TEXT,
  location_short        TEXT,
  salary_text           TEXT,
  posting_url           TEXT,
  apply_url             TEXT,
  description_text      TEXT,
  description_html      TEXT,
  published_at          TIMESTAMPTZ,

  score                 INTEGER NOT NULL,
  reasons               JSONB,

  company_30d_count     INTEGER NOT NULL,

  contact_name          TEXT,
  contact_title         TEXT,
  contact_email         TEXT,
  contact_linkedin      TEXT,

  qualified_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_qualified_postings_score     ON qualified_postings (score DESC);
CREATE INDEX IF NOT EXISTS idx_qualified_postings_company   ON qualified_postings (company);
CREATE INDEX IF NOT EXISTS idx_qualified_postings_published ON qualified_postings (published_at);
`

// EnsureSchema creates both posting tables and their indexes when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range []string{rawPostingsDDL, qualifiedPostingsDDL} {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("provisioning schema: %w", err)
		}
	}

	s.logger.Info("schema ensured", zap.Strings("tables", []string{"raw_postings", "qualified_postings"}))

	return nil
}

// DropSchema removes both posting tables. Destructive; callers confirm
// before invoking.
func (s *Store) DropSchema(ctx context.Context) error {
	// qualified_postings references raw_postings, drop it first.
	for _, table := range []string{"qualified_postings", "raw_postings"} {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("dropping table %s: %w", table, err)
		}
	}

	s.logger.Warn("schema dropped", zap.Strings("tables", []string{"qualified_postings", "raw_postings"}))

	return nil
}
