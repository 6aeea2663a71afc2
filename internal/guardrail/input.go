// Package guardrail gates queries before retrieval and answers before release.
package guardrail

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/upb/math-agent/services"
)

// InputConfig holds the thresholds applied to incoming queries
type InputConfig struct {
	MinLength          int
	MaxLength          int
	TopicThreshold     float64
	InjectionThreshold float64
}

// DefaultInputConfig returns the production thresholds
func DefaultInputConfig() InputConfig {
	return InputConfig{
		MinLength:          5,
		MaxLength:          500,
		TopicThreshold:     0.4,
		InjectionThreshold: 0.8,
	}
}

// InputGuard validates raw queries. It is stateless and safe for concurrent use.
type InputGuard struct {
	cfg InputConfig
}

// NewInputGuard creates an input guard
func NewInputGuard(cfg InputConfig) *InputGuard {
	return &InputGuard{cfg: cfg}
}

// Validate returns the trimmed query, or an input_rejected DomainError naming the reason.
// The query text is never rewritten.
func (g *InputGuard) Validate(raw string) (string, error) {
	query := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(query)

	if length < g.cfg.MinLength {
		return "", services.NewInputRejected(services.ReasonTooShort,
			fmt.Sprintf("Query length must be at least %d characters. Please ask a complete math question.", g.cfg.MinLength)).
			WithDetail("length", length)
	}
	if length > g.cfg.MaxLength {
		return "", services.NewInputRejected(services.ReasonTooLong,
			fmt.Sprintf("Query length must be at most %d characters. Please keep your question shorter.", g.cfg.MaxLength)).
			WithDetail("length", length)
	}

	if topic, blocked := BlockedTopic(query); blocked {
		return "", services.NewInputRejected(services.ReasonOffTopic,
			"This system only handles mathematics questions.").
			WithDetail("blocked_topic", topic)
	}

	if d, found := StrongestInjection(query, g.cfg.InjectionThreshold); found {
		return "", services.NewInputRejected(services.ReasonPromptInjection,
			"Your question contains instructions the assistant cannot follow. Please ask a plain mathematics question.").
			WithDetail("injection_type", string(d.Type))
	}

	if score := MathScore(query); score < g.cfg.TopicThreshold {
		return "", services.NewInputRejected(services.ReasonOffTopic,
			"Please ask a mathematics-related question.").
			WithDetail("topic_score", score)
	}

	return query, nil
}
