package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/upb/math-agent/internal/observability"
	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/utils"
	"go.uber.org/zap"
)

// maxSolveBodyBytes bounds the request body; the guardrail enforces the real question limit.
const maxSolveBodyBytes = 64 << 10

// SolveRequest is the body of POST /api/solve.
type SolveRequest struct {
	Question string `json:"question"`
}

// SolveResponse is the body of a successful solve.
type SolveResponse struct {
	Success     bool               `json:"success"`
	Solution    string             `json:"solution"`
	Source      models.Source      `json:"source"`
	References  []models.Reference `json:"references"`
	Confidence  float64            `json:"confidence"`
	RoutingPath []string           `json:"routing_path"`
}

// NewSolveResponse wraps a pipeline answer in the success envelope.
func NewSolveResponse(answer *models.Answer) SolveResponse {
	references := answer.References
	if references == nil {
		references = []models.Reference{}
	}
	return SolveResponse{
		Success:     true,
		Solution:    answer.Solution,
		Source:      answer.Source,
		References:  references,
		Confidence:  answer.Confidence,
		RoutingPath: answer.RoutingPath,
	}
}

// SolveService runs one question through the pipeline.
type SolveService interface {
	Solve(ctx context.Context, question string) (*models.Answer, error)
}

// SolveHandler handles POST /api/solve
type SolveHandler struct {
	service SolveService
	logger  *zap.Logger
}

// NewSolveHandler creates a new SolveHandler
func NewSolveHandler(service SolveService, logger *zap.Logger) *SolveHandler {
	return &SolveHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSolve decodes the question, runs the pipeline and writes the answer envelope.
// Empty or missing questions go through the pipeline so the guardrail reports them.
func (h *SolveHandler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)
	start := time.Now()

	var req SolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSolveBodyBytes)).Decode(&req); err != nil {
		logger.Warn("failed to parse solve request", zap.Error(err))
		_ = utils.WriteFailure(w, http.StatusBadRequest, "Request body must be JSON with a question field")
		return
	}

	answer, err := h.service.Solve(ctx, req.Question)
	if err != nil {
		HandleSolveError(w, err, logger)
		return
	}

	response := NewSolveResponse(answer)

	logger.Info("solve answered",
		zap.String("source", answer.Source.String()),
		zap.Float64("confidence", answer.Confidence),
		zap.Duration("duration", time.Since(start)))

	if err := utils.WriteOK(w, response); err != nil {
		logger.Error("failed to write solve response", zap.Error(err))
	}
}
