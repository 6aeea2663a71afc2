// Package synthesis turns a question and its retrieved evidence into a
// step-by-step answer.
package synthesis

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/math-agent/internal/observability"
	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/services"
	"github.com/upb/math-agent/services/providers"
)

// Confidence assigned to answers that have no retrieval score of their own.
const (
	WebConfidence   = 0.8
	ModelConfidence = 0.6
)

// Mode selects how demanding the synthesis prompt is.
type Mode int

const (
	ModeStandard Mode = iota
	ModeStrict
)

// Directive instructs one synthesis attempt. Strict directives carry the
// reason the previous answer was rejected.
type Directive struct {
	Mode   Mode
	Reason services.RejectionReason
}

// Standard is the directive for a first attempt.
func Standard() Directive {
	return Directive{Mode: ModeStandard}
}

// Strict is the directive for the retry after an output rejection.
func Strict(reason services.RejectionReason) Directive {
	return Directive{Mode: ModeStrict, Reason: reason}
}

// String returns the metric label of the directive
func (d Directive) String() string {
	if d.Mode == ModeStrict {
		return "strict"
	}
	return "standard"
}

// Config holds the completion parameters
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// KBVerbatim renders knowledge base hits from their curated steps
	// instead of calling the model.
	KBVerbatim bool
}

// DefaultConfig returns the production completion parameters
func DefaultConfig() Config {
	return Config{
		Model:       "llama-3.1-8b-instant",
		Temperature: 0.3,
		MaxTokens:   1024,
	}
}

// Service synthesizes answers through a chat completion provider
type Service struct {
	provider providers.Provider
	cfg      Config
	logger   *zap.Logger
}

// NewService creates a new synthesis service
func NewService(provider providers.Provider, cfg Config, logger *zap.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	return &Service{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// Synthesize produces an answer for query from evidence. A nil evidence
// means the model answers from its own knowledge. It never returns a
// partial answer.
func (s *Service) Synthesize(ctx context.Context, query string, evidence *models.Evidence, directive Directive) (*models.Answer, error) {
	source, confidence, references := describeEvidence(evidence)
	logger := observability.FromContext(ctx, s.logger)

	if s.cfg.KBVerbatim && directive.Mode == ModeStandard && source == models.SourceKnowledgeBase && evidence.Entry != nil {
		logger.Debug("rendering knowledge base entry verbatim", zap.String("entry_id", evidence.Entry.ID))
		return &models.Answer{
			Solution:   renderKnowledgeEntry(evidence.Entry, confidence),
			Source:     source,
			References: references,
			Confidence: confidence,
		}, nil
	}

	req := &providers.ChatRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemPrompt},
			{Role: providers.RoleUser, Content: buildUserPrompt(query, evidence, directive)},
		},
	}

	start := time.Now()
	resp, err := s.provider.ChatCompletion(ctx, req)
	if err != nil {
		logger.Warn("completion failed",
			zap.String("provider", s.provider.Name()),
			zap.String("directive", directive.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, classifyProviderError(err)
	}

	solution := strings.TrimSpace(resp.Content())
	if solution == "" {
		return nil, services.NewDomainError(services.ErrorTypeSynthesisFailure,
			"The model returned an empty answer.", nil)
	}

	logger.Debug("completion succeeded",
		zap.String("provider", s.provider.Name()),
		zap.String("source", source.String()),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))

	return &models.Answer{
		Solution:   solution,
		Source:     source,
		References: references,
		Confidence: confidence,
	}, nil
}

func describeEvidence(evidence *models.Evidence) (models.Source, float64, []models.Reference) {
	if evidence == nil || !evidence.Source.Valid() || evidence.Source == models.SourceLLMKnowledge {
		return models.SourceLLMKnowledge, ModelConfidence, []models.Reference{}
	}

	references := make([]models.Reference, len(evidence.References))
	copy(references, evidence.References)
	return evidence.Source, evidence.Confidence, references
}

func classifyProviderError(err error) error {
	var provErr *providers.ProviderError
	switch {
	case providers.IsTimeout(err):
		return services.NewDomainError(services.ErrorTypeUpstreamTimeout, "The solver took too long to respond.", err)
	case errors.As(err, &provErr) && provErr.Code == providers.CodeEmptyResponse:
		return services.NewDomainError(services.ErrorTypeSynthesisFailure, "The model returned an empty answer.", err)
	default:
		return services.NewDomainError(services.ErrorTypeUpstreamError, "The solver is unavailable.", err)
	}
}
