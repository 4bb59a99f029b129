package posting

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// MalformedRecordError reports a raw record that cannot be deduplicated
// meaningfully because its identity fields are missing.
type MalformedRecordError struct {
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %s", e.Reason)
}

// providerRecord mirrors the raw provider object shape. Decoded weakly so
// minor type drift on the provider side (numbers as strings and so on) does
// not break ingestion.
type providerRecord struct {
	ID     string `mapstructure:"id"`
	JobID  string `mapstructure:"jobId"`
	JobKey string `mapstructure:"jobKey"`

	Title      string `mapstructure:"title"`
	Company    string `mapstructure:"companyName"`
	CompanyURL string `mapstructure:"companyUrl"`

	DescriptionHTML string `mapstructure:"descriptionHtml"`
	DescriptionText string `mapstructure:"descriptionText"`

	JobTypes []string `mapstructure:"jobType"`

	Location struct {
		City           string   `mapstructure:"city"`
		PostalCode     string   `mapstructure:"postalCode"`
		Country        string   `mapstructure:"country"`
		CountryCode    string   `mapstructure:"countryCode"`
		StreetAddress  string   `mapstructure:"streetAddress"`
		FormattedShort string   `mapstructure:"formattedAddressShort"`
		FormattedLong  string   `mapstructure:"formattedAddressLong"`
		Latitude       *float64 `mapstructure:"latitude"`
		Longitude      *float64 `mapstructure:"longitude"`
	} `mapstructure:"location"`

	Salary struct {
		Min      *float64 `mapstructure:"salaryMin"`
		Max      *float64 `mapstructure:"salaryMax"`
		Currency string   `mapstructure:"salaryCurrency"`
		Type     string   `mapstructure:"salaryType"`
		Text     string   `mapstructure:"salaryText"`
	} `mapstructure:"salary"`

	Attributes       []string `mapstructure:"attributes"`
	ShiftAndSchedule []string `mapstructure:"shiftAndSchedule"`

	JobURL   string `mapstructure:"jobUrl"`
	ApplyURL string `mapstructure:"applyUrl"`

	DatePublished string `mapstructure:"datePublished"`
	IsRemote      bool   `mapstructure:"isRemote"`
}

// Normalize maps a raw provider object into the canonical posting shape and
// computes its dedup fingerprint. It fails with *MalformedRecordError when
// both title and company are absent.
func Normalize(raw map[string]any) (*RawPosting, error) {
	var rec providerRecord

	cfg := &mapstructure.DecoderConfig{
		Result:           &rec,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building record decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &MalformedRecordError{Reason: fmt.Sprintf("undecodable provider record: %v", err)}
	}

	title := strings.TrimSpace(rec.Title)
	company := strings.TrimSpace(rec.Company)
	if title == "" && company == "" {
		return nil, &MalformedRecordError{Reason: "both title and company are absent"}
	}

	providerID := rec.ID
	if providerID == "" {
		providerID = rec.JobID
	}

	p := &RawPosting{
		ProviderID: providerID,
		JobKey:     rec.JobKey,
		Title:      title,
		Company:    company,
		CompanyURL: rec.CompanyURL,
		Location: Location{
			City:          rec.Location.City,
			PostalCode:    rec.Location.PostalCode,
			Country:       rec.Location.Country,
			CountryCode:   rec.Location.CountryCode,
			StreetAddress: rec.Location.StreetAddress,
			DisplayShort:  rec.Location.FormattedShort,
			DisplayLong:   rec.Location.FormattedLong,
			Latitude:      rec.Location.Latitude,
			Longitude:     rec.Location.Longitude,
		},
		Salary: Salary{
			Min:      rec.Salary.Min,
			Max:      rec.Salary.Max,
			Currency: rec.Salary.Currency,
			Period:   rec.Salary.Type,
			Text:     rec.Salary.Text,
		},
		DescriptionHTML:  rec.DescriptionHTML,
		DescriptionText:  rec.DescriptionText,
		JobTypes:         rec.JobTypes,
		Attributes:       rec.Attributes,
		ShiftAndSchedule: rec.ShiftAndSchedule,
		PostingURL:       rec.JobURL,
		ApplyURL:         rec.ApplyURL,
		PublishedAt:      parsePublishedAt(rec.DatePublished),
		IsRemote:         rec.IsRemote,
	}

	if p.DescriptionText == "" && p.DescriptionHTML != "" {
		p.DescriptionText = StripHTML(p.DescriptionHTML)
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, &MalformedRecordError{Reason: fmt.Sprintf("unserializable provider record: %v", err)}
	}
	p.Payload = payload

	p.Fingerprint = Fingerprint(p.ProviderID, p.Title, p.Company, p.Location.DisplayShort, p.PostingURL, p.PublishedAt)

	return p, nil
}

// Fingerprint computes the deterministic dedup digest for a posting. It is a
// pure function of its inputs: identical identity tuples always yield the
// same digest, so re-ingestion resolves to a no-op at the store.
func Fingerprint(providerID, title, company, locationDisplay, postingURL string, publishedAt *time.Time) string {
	published := ""
	if publishedAt != nil {
		published = publishedAt.UTC().Format(time.RFC3339)
	}

	input := strings.Join([]string{providerID, title, company, locationDisplay, postingURL, published}, "|")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func parsePublishedAt(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}

	return nil
}
