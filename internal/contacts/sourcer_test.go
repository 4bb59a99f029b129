package contacts

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeProvider struct {
	orgID     string
	orgErr    error
	people    map[string][]Person
	peopleErr error

	searchedTitles []string
}

func (f *fakeProvider) SearchOrganization(_ context.Context, _ string) (string, error) {
	return f.orgID, f.orgErr
}

func (f *fakeProvider) SearchPeople(_ context.Context, _, title string) ([]Person, error) {
	f.searchedTitles = append(f.searchedTitles, title)
	if f.peopleErr != nil {
		return nil, f.peopleErr
	}
	return f.people[title], nil
}

type fakeEvaluator struct {
	response string
	err      error
	calls    int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeEvaluator) Model() string { return "fake" }

func TestFindBestStopsAtFirstTitleWithResults(t *testing.T) {
	provider := &fakeProvider{
		orgID: "org-1",
		people: map[string][]Person{
			"Director of Human Resources": {{Name: "Dana Lee", Title: "Director of Human Resources", Email: "dana@acme.test"}},
			"HR Manager":                  {{Name: "Morgan Diaz", Title: "HR Manager", Email: "morgan@acme.test"}},
		},
	}
	sourcer := NewSourcer(provider, nil, nil, zap.NewNop(), nil)

	contact := sourcer.FindBest(context.Background(), "Acme", "Packaging Associate", "Springfield, OH")
	if contact == nil {
		t.Fatalf("expected a contact")
	}
	if contact.Name != "Dana Lee" {
		t.Fatalf("expected the senior-bucket candidate, got %s", contact.Name)
	}

	for _, title := range provider.searchedTitles {
		if title == "HR Manager" {
			t.Fatalf("expected search to stop before lower buckets")
		}
	}
}

func TestFindBestPrefersEmailOverLinkedIn(t *testing.T) {
	provider := &fakeProvider{
		orgID: "org-1",
		people: map[string][]Person{
			"VP of Human Resources": {
				{Name: "Alex Po", Title: "VP of Human Resources", LinkedIn: "https://linkedin.test/alex"},
				{Name: "Sam Liu", Title: "VP of Human Resources", Email: "sam@acme.test"},
			},
		},
	}
	sourcer := NewSourcer(provider, nil, nil, zap.NewNop(), nil)

	contact := sourcer.FindBest(context.Background(), "Acme", "", "")
	if contact == nil || contact.Name != "Sam Liu" {
		t.Fatalf("expected the candidate with an email, got %+v", contact)
	}
}

func TestFindBestPrefersLinkedInWhenNoEmail(t *testing.T) {
	provider := &fakeProvider{
		orgID: "org-1",
		people: map[string][]Person{
			"VP of Human Resources": {
				{Name: "Alex Po", Title: "VP of Human Resources"},
				{Name: "Ray Kim", Title: "VP of Human Resources", LinkedIn: "https://linkedin.test/ray"},
			},
		},
	}
	sourcer := NewSourcer(provider, nil, nil, zap.NewNop(), nil)

	contact := sourcer.FindBest(context.Background(), "Acme", "", "")
	if contact == nil || contact.Name != "Ray Kim" {
		t.Fatalf("expected the candidate with a linkedin url, got %+v", contact)
	}
}

func TestFindBestTieBreakUsesEvaluator(t *testing.T) {
	provider := &fakeProvider{
		orgID: "org-1",
		people: map[string][]Person{
			"VP of Human Resources": {
				{Name: "Alex Po", Title: "VP of Human Resources", Email: "alex@acme.test"},
				{Name: "Sam Liu", Title: "VP of Human Resources", Email: "sam@acme.test"},
			},
		},
	}
	evaluator := &fakeEvaluator{response: `{"name": "Sam Liu", "title": "VP of Human Resources", "email": "sam@acme.test", "linkedin": "", "reason": "site match"}`}
	sourcer := NewSourcer(provider, evaluator, nil, zap.NewNop(), nil)

	contact := sourcer.FindBest(context.Background(), "Acme", "", "")
	if contact == nil || contact.Name != "Sam Liu" {
		t.Fatalf("expected the evaluator pick, got %+v", contact)
	}
	if evaluator.calls != 1 {
		t.Fatalf("expected one evaluation call, got %d", evaluator.calls)
	}
}

func TestFindBestTieBreakFailureFallsBackToFirst(t *testing.T) {
	provider := &fakeProvider{
		orgID: "org-1",
		people: map[string][]Person{
			"VP of Human Resources": {
				{Name: "Alex Po", Title: "VP of Human Resources", Email: "alex@acme.test"},
				{Name: "Sam Liu", Title: "VP of Human Resources", Email: "sam@acme.test"},
			},
		},
	}
	evaluator := &fakeEvaluator{err: errors.New("quota exceeded")}
	sourcer := NewSourcer(provider, evaluator, nil, zap.NewNop(), nil)

	contact := sourcer.FindBest(context.Background(), "Acme", "", "")
	if contact == nil || contact.Name != "Alex Po" {
		t.Fatalf("expected provider-order fallback, got %+v", contact)
	}
}

func TestFindBestunknownTieBreakPickFallsBack(t *testing.T) {
	provider := &fakeProvider{
		orgID: "org-1",
		people: map[string][]Person{
			"VP of Human Resources": {
				{Name: "Alex Po", Title: "VP of Human Resources", Email: "alex@acme.test"},
				{Name: "Sam Liu", Title: "VP of Human Resources", Email: "sam@acme.test"},
			},
		},
	}
	evaluator := &fakeEvaluator{response: `{"name": "Nobody Real", "title": "", "email": "", "linkedin": "", "reason": ""}`}
	sourcer := NewSourcer(provider, evaluator, nil, zap.NewNop(), nil)

	contact := sourcer.FindBest(context.Background(), "Acme", "", "")
	if contact == nil || contact.Name != "Alex Po" {
		t.Fatalf("expected provider-order fallback for fabricated pick, got %+v", contact)
	}
}

func TestFindBestUnresolvedCompanyReturnsNil(t *testing.T) {
	sourcer := NewSourcer(&fakeProvider{orgID: ""}, nil, nil, zap.NewNop(), nil)

	if contact := sourcer.FindBest(context.Background(), "Ghost Co", "", ""); contact != nil {
		t.Fatalf("expected nil for unresolved company, got %+v", contact)
	}
}

func TestFindBestProviderErrorReturnsNil(t *testing.T) {
	sourcer := NewSourcer(&fakeProvider{orgErr: errors.New("apollo down")}, nil, nil, zap.NewNop(), nil)

	if contact := sourcer.FindBest(context.Background(), "Acme", "", ""); contact != nil {
		t.Fatalf("expected nil on provider failure, got %+v", contact)
	}
}

func TestFindBestEmptyCompanyReturnsNil(t *testing.T) {
	sourcer := NewSourcer(&fakeProvider{}, nil, nil, zap.NewNop(), nil)

	if contact := sourcer.FindBest(context.Background(), "  ", "", ""); contact != nil {
		t.Fatalf("expected nil for blank company, got %+v", contact)
	}
}

func TestFindBestCustomTitleOrder(t *testing.T) {
	provider := &fakeProvider{
		orgID: "org-1",
		people: map[string][]Person{
			"Recruiter": {{Name: "Jo Reyes", Title: "Recruiter", Email: "jo@acme.test"}},
		},
	}
	sourcer := NewSourcer(provider, nil, nil, zap.NewNop(), []string{"Recruiter", "HR Manager"})

	contact := sourcer.FindBest(context.Background(), "Acme", "", "")
	if contact == nil || contact.Name != "Jo Reyes" {
		t.Fatalf("expected configured bucket order to apply, got %+v", contact)
	}
	if provider.searchedTitles[0] != "Recruiter" {
		t.Fatalf("expected configured first title, got %s", provider.searchedTitles[0])
	}
}
