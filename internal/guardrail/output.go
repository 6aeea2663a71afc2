package guardrail

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/services"
)

// OutputConfig holds the thresholds applied to synthesized answers
type OutputConfig struct {
	MinLength      int
	MinStepMarkers int
	TopicThreshold float64
}

// DefaultOutputConfig returns the production thresholds
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		MinLength:      20,
		MinStepMarkers: 2,
		TopicThreshold: 0.4,
	}
}

var (
	stepNumberPattern = regexp.MustCompile(`(?i)\bstep\s*(\d+)`)

	lineMarkerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:[-*]\s*)?\d+[.)]\s`),
		regexp.MustCompile(`(?i)^\s*(?:\*\*)?(?:first|second|third|next|then|finally)\b`),
	}

	listNumberPattern = regexp.MustCompile(`(?m)^\s*(?:[-*]\s*)?\d+[.)]\s`)
	termPattern       = regexp.MustCompile(`\p{L}+|\p{N}+`)

	stopWords = map[string]bool{
		"what": true, "which": true, "with": true, "that": true, "this": true, "from": true,
		"does": true, "have": true, "into": true, "when": true, "where": true, "there": true,
		"please": true, "show": true, "help": true, "about": true, "value": true, "using": true,
	}

	refusalPhrases = []string{
		"i cannot help",
		"i can't help",
		"i refuse",
		"i will not",
		"i'm unable to help",
	}
)

// OutputGuard validates answers before release. It is stateless and safe for concurrent use.
type OutputGuard struct {
	cfg OutputConfig
}

// NewOutputGuard creates an output guard
func NewOutputGuard(cfg OutputConfig) *OutputGuard {
	return &OutputGuard{cfg: cfg}
}

// Validate returns the answer unchanged, or an output_rejected DomainError naming the reason.
// An answer is on topic when it reads as mathematics and shares at least one
// salient term with query.
func (g *OutputGuard) Validate(query string, answer *models.Answer) (*models.Answer, error) {
	if answer == nil {
		return nil, services.NewOutputRejected(services.ReasonIncompleteSolution, "The answer was empty.")
	}
	text := strings.TrimSpace(answer.Solution)

	if len(text) < g.cfg.MinLength {
		return nil, services.NewOutputRejected(services.ReasonIncompleteSolution,
			"The answer was too short to be a complete solution.")
	}

	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return nil, services.NewOutputRejected(services.ReasonOffTopicOutput,
				"The answer did not address the mathematics question.").
				WithDetail("refusal", phrase)
		}
	}

	if markers := CountStepMarkers(text); markers < g.cfg.MinStepMarkers {
		return nil, services.NewOutputRejected(services.ReasonIncompleteSolution,
			fmt.Sprintf("The answer needs at least %d distinct steps.", g.cfg.MinStepMarkers)).
			WithDetail("step_markers", markers)
	}

	if score := MathScore(text); score < g.cfg.TopicThreshold {
		return nil, services.NewOutputRejected(services.ReasonOffTopicOutput,
			"The answer drifted away from mathematics.").
			WithDetail("topic_score", score).
			WithDetail("query", query)
	}

	if !SharesTerms(query, lower) {
		return nil, services.NewOutputRejected(services.ReasonOffTopicOutput,
			"The answer did not address the question that was asked.").
			WithDetail("query", query)
	}

	return answer, nil
}

// CountStepMarkers counts distinct steps in text. "Step N" references are
// deduplicated by N, and any other line counts once when it opens with a
// numbered or ordinal marker.
func CountStepMarkers(text string) int {
	numbered := make(map[string]bool)
	lines := 0
	for _, line := range strings.Split(text, "\n") {
		if refs := stepNumberPattern.FindAllStringSubmatch(line, -1); len(refs) > 0 {
			for _, ref := range refs {
				numbered[ref[1]] = true
			}
			continue
		}
		for _, p := range lineMarkerPatterns {
			if p.MatchString(line) {
				lines++
				break
			}
		}
	}
	return len(numbered) + lines
}

// SharesTerms reports whether answer mentions at least one salient term of
// query: a number, a single-letter variable, or a word of four or more letters.
// Step labels and list numbering in answer are ignored. A query without
// salient terms matches any answer.
func SharesTerms(query, answer string) bool {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return true
	}
	answer = stepNumberPattern.ReplaceAllString(answer, " ")
	answer = listNumberPattern.ReplaceAllString(answer, " ")
	for _, tok := range termPattern.FindAllString(strings.ToLower(answer), -1) {
		if terms[tok] {
			return true
		}
	}
	return false
}

func queryTerms(query string) map[string]bool {
	terms := make(map[string]bool)
	for _, tok := range termPattern.FindAllString(strings.ToLower(query), -1) {
		r := []rune(tok)
		switch {
		case unicode.IsDigit(r[0]), len(r) == 1:
		case len(r) >= 4 && !stopWords[tok]:
		default:
			continue
		}
		terms[tok] = true
	}
	return terms
}
