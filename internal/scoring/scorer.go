package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/ai"
	"github.com/JuliusShade/FD-Lead-Gen/internal/posting"
	"github.com/JuliusShade/FD-Lead-Gen/internal/ratelimit"
)

//go:embed prompt.md
var promptTemplate string

const (
	// DefaultThreshold is the minimum score at which a posting qualifies.
	DefaultThreshold = 80

	gateKey = "scoring"

	maxAttempts = 2
)

// ErrScoringUnavailable marks a posting whose evaluation failed or produced
// output that could not be validated. Callers skip the posting instead of
// fabricating a score.
var ErrScoringUnavailable = errors.New("scoring unavailable")

// Result is the outcome of scoring a single posting.
type Result struct {
	Score            int
	HardReject       bool
	HardRejectReason string
	Reasons          []string
	MatchedKeywords  []string
	RedFlags         []string
	Confidence       float64
}

// Scorer evaluates postings against the packaging/operator rubric.
type Scorer struct {
	evaluator ai.Evaluator
	gate      *ratelimit.Gate
	logger    *zap.Logger
	threshold int
}

func New(evaluator ai.Evaluator, gate *ratelimit.Gate, logger *zap.Logger, threshold int) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Scorer{
		evaluator: evaluator,
		gate:      gate,
		logger:    logger,
		threshold: threshold,
	}
}

func (s *Scorer) Threshold() int {
	return s.threshold
}

// citizenshipPhrases are checked against the posting text before any
// evaluation call. A match rejects the posting outright.
var citizenshipPhrases = []string{
	"must be a u.s. citizen",
	"must be a us citizen",
	"must be us citizen",
	"u.s. citizens only",
	"us citizens only",
	"u.s. citizenship required",
	"us citizenship required",
	"u.s. citizenship is required",
	"requires u.s. citizenship",
	"requires us citizenship",
	"proof of u.s. citizenship",
	"proof of us citizenship",
}

// Score evaluates one posting. The citizenship check runs first and short
// circuits the evaluation call entirely when it matches.
func (s *Scorer) Score(ctx context.Context, p *posting.RawPosting) (*Result, error) {
	if p == nil {
		return nil, errors.New("posting is required")
	}

	if phrase := matchCitizenshipPhrase(p.Title + "\n" + p.DescriptionText); phrase != "" {
		s.logger.Info("hard reject, posting requires citizenship",
			zap.String("fingerprint", p.Fingerprint),
			zap.String("title", p.Title),
			zap.String("matched_phrase", phrase),
		)
		return &Result{
			Score:            0,
			HardReject:       true,
			HardRejectReason: phrase,
			RedFlags:         []string{fmt.Sprintf("posting requires citizenship: %q", phrase)},
		}, nil
	}

	prompt, err := s.buildPrompt(p)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.gate.Wait(ctx, gateKey); err != nil {
			return nil, err
		}

		raw, err := s.evaluator.Evaluate(ctx, prompt)
		if err != nil {
			lastErr = err
			s.logger.Warn("evaluation call failed",
				zap.String("fingerprint", p.Fingerprint),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		result, err := parseResult(raw)
		if err != nil {
			lastErr = err
			s.logger.Warn("evaluation response rejected",
				zap.String("fingerprint", p.Fingerprint),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		if result.HardReject {
			result.Score = 0
			if result.HardRejectReason == "" && len(result.RedFlags) > 0 {
				result.HardRejectReason = result.RedFlags[0]
			}
			s.logger.Info("hard reject reported by evaluator",
				zap.String("fingerprint", p.Fingerprint),
				zap.String("title", p.Title),
				zap.String("reason", result.HardRejectReason),
			)
		}

		s.logger.Debug("posting scored",
			zap.String("fingerprint", p.Fingerprint),
			zap.Int("score", result.Score),
			zap.Bool("hard_reject", result.HardReject),
			zap.Float64("confidence", result.Confidence),
		)

		return result, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, lastErr)
}

func (s *Scorer) buildPrompt(p *posting.RawPosting) (string, error) {
	payload := map[string]any{
		"title":              p.Title,
		"company_name":       p.Company,
		"description_text":   p.DescriptionText,
		"description_html":   p.DescriptionHTML,
		"job_types":          p.JobTypes,
		"location_fmt_short": p.Location.DisplayShort,
		"salary_text":        p.Salary.Text,
		"job_url":            p.PostingURL,
		"apply_url":          p.ApplyURL,
		"date_published":     p.PublishedAt,
		"attributes":         p.Attributes,
		"shift_and_schedule": p.ShiftAndSchedule,
		"is_remote":          p.IsRemote,
	}

	jobJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{JOB_JSON}}", string(jobJSON))
	prompt = strings.ReplaceAll(prompt, "{{THRESHOLD}}", fmt.Sprintf("%d", s.threshold))

	return prompt, nil
}

func matchCitizenshipPhrase(text string) string {
	lowered := strings.ToLower(text)
	for _, phrase := range citizenshipPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase
		}
	}
	return ""
}
