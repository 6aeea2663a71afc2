package routing

import (
	"context"
	"time"

	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/services/synthesis"
)

// State is one stage of the solve pipeline
type State string

const (
	StateValidating       State = "Validating"
	StateRetrievingKB     State = "RetrievingKB"
	StateRetrievingWeb    State = "RetrievingWeb"
	StateSynthesizing     State = "Synthesizing"
	StateValidatingOutput State = "ValidatingOutput"
	StateDone             State = "Done"
	StateFailed           State = "Failed"
)

// maxSynthesisAttempts bounds synthesis to one try plus one strict retry.
const maxSynthesisAttempts = 2

// InputValidator gates raw queries
type InputValidator interface {
	Validate(raw string) (string, error)
}

// KnowledgeSearcher finds the best curated match for a query, or nil
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) (*models.RetrievalResult, error)
}

// WebSearcher returns ranked snippets. It absorbs its own failures.
type WebSearcher interface {
	Search(ctx context.Context, query string) []models.SearchSnippet
}

// Synthesizer writes an answer from evidence
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, evidence *models.Evidence, directive synthesis.Directive) (*models.Answer, error)
}

// OutputValidator gates answers before release
type OutputValidator interface {
	Validate(query string, answer *models.Answer) (*models.Answer, error)
}

// Timeouts bounds each external tier
type Timeouts struct {
	KnowledgeBase time.Duration
	WebSearch     time.Duration
	Synthesis     time.Duration
}

// DefaultTimeouts returns the production tier budgets
func DefaultTimeouts() Timeouts {
	return Timeouts{
		KnowledgeBase: 5 * time.Second,
		WebSearch:     8 * time.Second,
		Synthesis:     30 * time.Second,
	}
}

// PipelineContext carries the state of one solve run
type PipelineContext struct {
	Query     string
	State     State
	Path      []State
	Evidence  *models.Evidence
	Attempts  int
	Directive synthesis.Directive
	StartTime time.Time
}

func newPipelineContext() *PipelineContext {
	return &PipelineContext{
		Directive: synthesis.Standard(),
		StartTime: time.Now(),
	}
}

// enter records a transition.
func (p *PipelineContext) enter(state State) {
	p.State = state
	p.Path = append(p.Path, state)
}

// RoutingPath returns the visited states as strings
func (p *PipelineContext) RoutingPath() []string {
	path := make([]string, len(p.Path))
	for i, s := range p.Path {
		path[i] = string(s)
	}
	return path
}
