package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/ai"
)

// tieBreakLimit bounds how many candidates are offered to the evaluator.
const tieBreakLimit = 5

// Sourcer finds the best HR contact for a company. Lookup failures degrade
// to "no contact" so qualification is never blocked on enrichment.
type Sourcer struct {
	provider  Provider
	evaluator ai.Evaluator
	cache     *Cache
	logger    *zap.Logger
	titles    []string
}

// NewSourcer builds a Sourcer. The evaluator and cache may be nil; titles
// falls back to DefaultTitles when empty.
func NewSourcer(provider Provider, evaluator ai.Evaluator, cache *Cache, logger *zap.Logger, titles []string) *Sourcer {
	if len(titles) == 0 {
		titles = DefaultTitles
	}

	return &Sourcer{
		provider:  provider,
		evaluator: evaluator,
		cache:     cache,
		logger:    logger,
		titles:    titles,
	}
}

// FindBest returns the best contact for the company, or nil when the company
// is unresolved, has no candidates, or lookup fails. It never returns an
// error.
func (s *Sourcer) FindBest(ctx context.Context, company, jobTitle, location string) *Contact {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil
	}

	if contact, ok := s.cache.Get(ctx, company); ok {
		s.logger.Debug("contact cache hit",
			zap.String("company", company),
			zap.Bool("has_contact", contact != nil),
		)
		return contact
	}

	orgID, err := s.provider.SearchOrganization(ctx, company)
	if err != nil {
		s.logger.Warn("organization search failed", zap.String("company", company), zap.Error(err))
		return nil
	}
	if orgID == "" {
		s.cache.Put(ctx, company, nil)
		return nil
	}

	candidates := s.collectCandidates(ctx, orgID)
	if len(candidates) == 0 {
		s.logger.Info("no contacts found", zap.String("company", company))
		s.cache.Put(ctx, company, nil)
		return nil
	}

	best := s.selectBest(ctx, candidates, company, jobTitle, location)
	contact := &Contact{
		Name:     best.Name,
		Title:    best.Title,
		Email:    best.Email,
		LinkedIn: best.LinkedIn,
	}

	s.logger.Info("contact selected",
		zap.String("company", company),
		zap.String("contact_name", contact.Name),
		zap.String("contact_title", contact.Title),
	)

	s.cache.Put(ctx, company, contact)
	return contact
}

// collectCandidates walks the title list most senior first and stops at the
// first title with results, preserving provider order within it.
func (s *Sourcer) collectCandidates(ctx context.Context, orgID string) []Person {
	for _, title := range s.titles {
		people, err := s.provider.SearchPeople(ctx, orgID, title)
		if err != nil {
			s.logger.Warn("people search failed",
				zap.String("organization_id", orgID),
				zap.String("title", title),
				zap.Error(err),
			)
			continue
		}
		if len(people) > 0 {
			return people
		}
	}
	return nil
}

// selectBest applies the tie-break ladder: email beats no email, then a
// professional-network URL, then an assistive pick, then provider order.
func (s *Sourcer) selectBest(ctx context.Context, candidates []Person, company, jobTitle, location string) Person {
	withEmail := filterPeople(candidates, func(p Person) bool { return p.Email != "" })
	if len(withEmail) == 1 {
		return withEmail[0]
	}
	if len(withEmail) > 1 {
		return s.tieBreak(ctx, withEmail, company, jobTitle, location)
	}

	withLinkedIn := filterPeople(candidates, func(p Person) bool { return p.LinkedIn != "" })
	if len(withLinkedIn) == 1 {
		return withLinkedIn[0]
	}
	if len(withLinkedIn) > 1 {
		return s.tieBreak(ctx, withLinkedIn, company, jobTitle, location)
	}

	return s.tieBreak(ctx, candidates, company, jobTitle, location)
}

func (s *Sourcer) tieBreak(ctx context.Context, candidates []Person, company, jobTitle, location string) Person {
	if len(candidates) == 1 || s.evaluator == nil {
		return candidates[0]
	}

	limited := candidates
	if len(limited) > tieBreakLimit {
		limited = limited[:tieBreakLimit]
	}

	prompt, err := buildTieBreakPrompt(limited, company, jobTitle, location)
	if err != nil {
		s.logger.Warn("tie-break prompt failed", zap.Error(err))
		return candidates[0]
	}

	raw, err := s.evaluator.Evaluate(ctx, prompt)
	if err != nil {
		s.logger.Warn("tie-break evaluation failed", zap.Error(err))
		return candidates[0]
	}

	selected, err := parseTieBreak(raw)
	if err != nil {
		s.logger.Warn("tie-break response rejected", zap.Error(err))
		return candidates[0]
	}

	// Only trust a pick that names one of the offered candidates.
	for _, candidate := range limited {
		if strings.EqualFold(candidate.Name, selected.Name) {
			return candidate
		}
	}

	s.logger.Warn("tie-break picked unknown candidate", zap.String("name", selected.Name))
	return candidates[0]
}

const tieBreakPromptTemplate = `You are a sales outreach assistant. From a list of HR contacts, pick ONE best contact for staffing outreach.
Return STRICT JSON with fields: { "name": "", "title": "", "email": "", "linkedin": "", "reason": "" }. No extra text.

Company: %s
Role: %s
Location: %s

Contacts:
%s

Selection rules:
- Prefer senior HR leadership (VP/Director/Head) > HRBP/Manager > Recruiter.
- Prefer contacts likely tied to the hiring site/region if present.
- If multiple equal, pick the one with an email or LinkedIn.
Return JSON only.`

func buildTieBreakPrompt(candidates []Person, company, jobTitle, location string) (string, error) {
	contactsJSON, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	return fmt.Sprintf(tieBreakPromptTemplate, company, jobTitle, location, contactsJSON), nil
}

func parseTieBreak(raw string) (*Contact, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}

	var contact Contact
	if err := json.Unmarshal([]byte(raw), &contact); err != nil {
		return nil, fmt.Errorf("parse tie-break response: %w", err)
	}
	if contact.Name == "" {
		return nil, fmt.Errorf("tie-break response has no name")
	}

	return &contact, nil
}

func filterPeople(people []Person, keep func(Person) bool) []Person {
	var out []Person
	for _, p := range people {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
