package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/upb/math-agent/internal/observability"
	"github.com/upb/math-agent/models"
	"github.com/upb/math-agent/services"
	"github.com/upb/math-agent/utils"
	"go.uber.org/zap"
)

const maxFeedbackBodyBytes = 256 << 10

// FeedbackRequest is the body of POST /api/feedback.
// Rating bounds are checked by the feedback service so the response carries InvalidRating.
type FeedbackRequest struct {
	Question string `json:"question" validate:"required"`
	Solution string `json:"solution" validate:"required"`
	Rating   int    `json:"rating"`
	Comments string `json:"comments,omitempty" validate:"max=2000"`
}

// FeedbackItem is one record in the recent feedback listing.
type FeedbackItem struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	Solution  string    `json:"solution"`
	Rating    int       `json:"rating"`
	Comments  string    `json:"comments,omitempty"`
	Flagged   bool      `json:"flagged"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentFeedbackResponse is the body of GET /api/feedback/recent.
type RecentFeedbackResponse struct {
	Items []FeedbackItem `json:"items"`
	Count int            `json:"count"`
}

// FeedbackService defines the feedback operations the handler needs
type FeedbackService interface {
	Record(ctx context.Context, question, solution string, rating int, comments string) (*models.FeedbackRecord, error)
	Stats(ctx context.Context) (*models.FeedbackStats, error)
	Recent(ctx context.Context, limit int) ([]*models.FeedbackRecord, error)
}

// FeedbackHandler handles the /api/feedback endpoints
type FeedbackHandler struct {
	service FeedbackService
	logger  *zap.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler
func NewFeedbackHandler(service FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSubmit handles POST /api/feedback
func (h *FeedbackHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)

	var req FeedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeedbackBodyBytes)).Decode(&req); err != nil {
		logger.Warn("failed to parse feedback request", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		logger.Warn("feedback validation failed", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}

	if _, err := h.service.Record(ctx, req.Question, req.Solution, req.Rating, req.Comments); err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, struct{}{}); err != nil {
		logger.Error("failed to write feedback response", zap.Error(err))
	}
}

// HandleStats handles GET /api/feedback/stats
func (h *FeedbackHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)

	stats, err := h.service.Stats(ctx)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, stats); err != nil {
		logger.Error("failed to write stats response", zap.Error(err))
	}
}

// HandleRecent handles GET /api/feedback/recent?limit=N
func (h *FeedbackHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			HandleServiceError(w, services.NewDomainError(services.ErrorTypeValidation, "limit must be a positive integer", nil), logger)
			return
		}
		limit = n
	}

	records, err := h.service.Recent(ctx, limit)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	items := make([]FeedbackItem, 0, len(records))
	for _, rec := range records {
		items = append(items, FeedbackItem{
			ID:        rec.ID,
			Question:  rec.Question,
			Solution:  rec.Solution,
			Rating:    rec.Rating,
			Comments:  rec.Comments,
			Flagged:   rec.Flagged(),
			CreatedAt: rec.CreatedAt,
		})
	}

	if err := utils.WriteOK(w, RecentFeedbackResponse{Items: items, Count: len(items)}); err != nil {
		logger.Error("failed to write recent feedback response", zap.Error(err))
	}
}
