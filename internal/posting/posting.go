// Package posting defines the canonical posting records shared by the
// ingestion and qualification pipelines, and the normalizer that maps raw
// provider objects into them.
package posting

import (
	"encoding/json"
	"time"
)

// Location is the flattened location block of a posting. Absent fields stay
// empty or nil so they cannot be mistaken for real data.
type Location struct {
	City          string
	PostalCode    string
	Country       string
	CountryCode   string
	StreetAddress string
	DisplayShort  string
	DisplayLong   string
	Latitude      *float64
	Longitude     *float64
}

// Salary is the flattened salary block of a posting.
type Salary struct {
	Min      *float64
	Max      *float64
	Currency string
	Period   string
	Text     string
}

// RawPosting is one record per distinct posting observed from the listing
// provider. It is immutable once stored; re-ingestion of the same content is
// a no-op keyed on Fingerprint.
type RawPosting struct {
	Fingerprint string

	ProviderID string
	JobKey     string

	Title      string
	Company    string
	CompanyURL string

	Location Location
	Salary   Salary

	DescriptionHTML string
	DescriptionText string

	JobTypes         []string
	Attributes       []string
	ShiftAndSchedule []string

	PostingURL string
	ApplyURL   string

	PublishedAt *time.Time
	IsRemote    bool

	// Payload carries the full provider object for forward compatibility.
	Payload json.RawMessage
}

// QualifiedPosting is one record per posting that passed scoring. Contact
// fields are nil when no contact was found; qualification proceeds without
// one.
type QualifiedPosting struct {
	Fingerprint string

	Title           string
	Company         string
	LocationDisplay string
	SalaryText      string
	PostingURL      string
	ApplyURL        string
	DescriptionText string
	DescriptionHTML string
	PublishedAt     *time.Time

	Score   int
	Reasons []string

	// CompanyRecentCount is the number of postings from the same company in
	// the trailing 30 days, inclusive of this one.
	CompanyRecentCount int

	ContactName     *string
	ContactTitle    *string
	ContactEmail    *string
	ContactLinkedIn *string

	QualifiedAt time.Time
}
