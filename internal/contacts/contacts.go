// Package contacts sources HR contacts for companies with open postings.
package contacts

import "context"

// Contact is the selected outreach target for a company. Empty fields mean
// the provider had no value, not that lookup failed.
type Contact struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	LinkedIn string `json:"linkedin"`
}

// Person is one candidate returned by the enrichment provider, in provider
// order.
type Person struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	LinkedIn string `json:"linkedin"`
}

// Provider resolves companies to organizations and lists people by title.
type Provider interface {
	// SearchOrganization returns the provider's organization id for the
	// company, or empty when the company is not in the provider's index.
	SearchOrganization(ctx context.Context, companyName string) (string, error)

	// SearchPeople lists people at the organization whose title matches.
	SearchPeople(ctx context.Context, organizationID, title string) ([]Person, error)
}

// DefaultTitles is the ranked title list used when none is configured. Most
// senior first.
var DefaultTitles = []string{
	"VP of Human Resources",
	"Head of Human Resources",
	"Director of Human Resources",
	"HR Business Partner",
	"HR Manager",
	"HR Generalist",
	"People Operations",
	"Talent Acquisition",
	"Recruiting Manager",
	"Recruiter",
	"Plant HR Manager",
	"Staffing Specialist",
}
