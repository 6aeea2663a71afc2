// Package routing orchestrates the tiered solve pipeline: input guardrail,
// knowledge base, web search, synthesis and output guardrail.
package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/upb/math-agent/internal/observability"
	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/services"
	"github.com/upb/math-agent/services/synthesis"
)

// Service runs solve requests through the tier cascade. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	input       InputValidator
	knowledge   KnowledgeSearcher
	web         WebSearcher
	synthesizer Synthesizer
	output      OutputValidator
	timeouts    Timeouts
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewService creates a router over explicit collaborators. knowledge and
// web may be nil, in which case the tier always misses.
func NewService(
	input InputValidator,
	knowledge KnowledgeSearcher,
	web WebSearcher,
	synthesizer Synthesizer,
	output OutputValidator,
	timeouts Timeouts,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		input:       input,
		knowledge:   knowledge,
		web:         web,
		synthesizer: synthesizer,
		output:      output,
		timeouts:    timeouts,
		metrics:     metrics,
		logger:      logger,
	}
}

// Solve answers one question. Errors are DomainErrors of type
// input_rejected, output_rejected, synthesis_failure, upstream_timeout or
// upstream_error.
func (s *Service) Solve(ctx context.Context, question string) (*models.Answer, error) {
	pipeline := newPipelineContext()
	logger := observability.FromContext(ctx, s.logger)

	answer, err := s.run(ctx, pipeline, question, logger)
	elapsed := time.Since(pipeline.StartTime)

	if err != nil {
		pipeline.enter(StateFailed)
		s.metrics.ObserveSolve(string(services.GetErrorType(err)), sourceLabel(pipeline), elapsed)
		logger.Info("solve failed",
			zap.Strings("routing_path", pipeline.RoutingPath()),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Int("attempts", pipeline.Attempts),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	pipeline.enter(StateDone)
	answer.RoutingPath = pipeline.RoutingPath()
	s.metrics.ObserveSolve("answered", answer.Source.String(), elapsed)
	logger.Info("solve completed",
		zap.String("source", answer.Source.String()),
		zap.Strings("routing_path", answer.RoutingPath),
		zap.Float64("confidence", answer.Confidence),
		zap.Int("attempts", pipeline.Attempts),
		zap.Duration("elapsed", elapsed))

	return answer, nil
}

func (s *Service) run(ctx context.Context, p *PipelineContext, question string, logger *zap.Logger) (*models.Answer, error) {
	// Validating
	p.enter(StateValidating)
	query, err := s.input.Validate(question)
	if err != nil {
		s.metrics.RecordRejection("input", string(services.GetRejectionReason(err)))
		return nil, err
	}
	p.Query = query

	// RetrievingKB
	p.enter(StateRetrievingKB)
	if result := s.searchKnowledge(ctx, query, logger); result != nil {
		p.Evidence = synthesis.KnowledgeEvidence(result)
		logger.Debug("knowledge base hit",
			zap.String("entry_id", result.SourceID),
			zap.Float64("similarity", result.SimilarityScore))
	} else {
		// RetrievingWeb
		p.enter(StateRetrievingWeb)
		p.Evidence = synthesis.WebEvidence(s.searchWeb(ctx, query))
	}

	for {
		// Synthesizing
		p.enter(StateSynthesizing)
		p.Attempts++
		s.metrics.RecordSynthesis(p.Directive.String())

		answer, err := s.synthesize(ctx, p)
		if err != nil {
			return nil, err
		}

		// ValidatingOutput
		p.enter(StateValidatingOutput)
		validated, err := s.output.Validate(query, answer)
		if err == nil {
			return validated, nil
		}

		reason := services.GetRejectionReason(err)
		s.metrics.RecordRejection("output", string(reason))
		if p.Attempts >= maxSynthesisAttempts {
			return nil, err
		}

		logger.Info("answer rejected, retrying with strict directive",
			zap.String("reason", string(reason)),
			zap.Int("attempt", p.Attempts))
		p.Directive = synthesis.Strict(reason)
	}
}

func (s *Service) searchKnowledge(ctx context.Context, query string, logger *zap.Logger) *models.RetrievalResult {
	if s.knowledge == nil {
		return nil
	}

	tierCtx, cancel := context.WithTimeout(ctx, s.timeouts.KnowledgeBase)
	defer cancel()

	start := time.Now()
	result, err := s.knowledge.Search(tierCtx, query)
	if err != nil {
		s.metrics.ObserveTier("knowledge_base", "error", time.Since(start))
		logger.Warn("knowledge base search failed, treating as miss", zap.Error(err))
		return nil
	}
	if result == nil {
		s.metrics.ObserveTier("knowledge_base", "miss", time.Since(start))
		return nil
	}
	s.metrics.ObserveTier("knowledge_base", "hit", time.Since(start))
	return result
}

func (s *Service) searchWeb(ctx context.Context, query string) []models.SearchSnippet {
	if s.web == nil {
		return nil
	}

	tierCtx, cancel := context.WithTimeout(ctx, s.timeouts.WebSearch)
	defer cancel()

	start := time.Now()
	snippets := s.web.Search(tierCtx, query)
	status := "hit"
	if len(snippets) == 0 {
		status = "miss"
	}
	s.metrics.ObserveTier("web_search", status, time.Since(start))
	return snippets
}

func (s *Service) synthesize(ctx context.Context, p *PipelineContext) (*models.Answer, error) {
	tierCtx, cancel := context.WithTimeout(ctx, s.timeouts.Synthesis)
	defer cancel()

	start := time.Now()
	answer, err := s.synthesizer.Synthesize(tierCtx, p.Query, p.Evidence, p.Directive)
	if err != nil {
		s.metrics.ObserveTier("synthesis", "error", time.Since(start))
		if services.GetErrorType(err) == "" {
			err = services.WrapUpstream("The solver is unavailable.", err)
		}
		return nil, err
	}
	s.metrics.ObserveTier("synthesis", "ok", time.Since(start))
	return answer, nil
}

// sourceLabel names the tier a failed run was answering from.
func sourceLabel(p *PipelineContext) string {
	switch {
	case p.Attempts == 0:
		return ""
	case p.Evidence == nil:
		return models.SourceLLMKnowledge.String()
	default:
		return p.Evidence.Source.String()
	}
}
