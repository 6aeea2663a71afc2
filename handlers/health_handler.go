package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/math-agent/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	KnowledgeBaseSize int    `json:"knowledge_base_size"`
	LLMConfigured     bool   `json:"llm_configured"`
	SearchConfigured  bool   `json:"search_configured"`
	FeedbackStore     string `json:"feedback_store"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status                string            `json:"status"`
	Timestamp             string            `json:"timestamp"`
	Checks                map[string]string `json:"checks"`
	Providers             []string          `json:"providers,omitempty"`
	PendingFeedbackWrites int               `json:"pending_feedback_writes"`
}

// KnowledgeSizer reports how many entries the knowledge base holds.
type KnowledgeSizer interface {
	Size(ctx context.Context) int
}

// HealthChecker probes a backing store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ProviderLister reports the registered completion providers.
type ProviderLister interface {
	ListProviders() []string
	GetProviderCount() int
}

// WriteQueue reports writes waiting in the feedback lane.
type WriteQueue interface {
	Pending() int
}

// HealthInfo describes the configured collaborators reported by /api/health.
type HealthInfo struct {
	LLMConfigured    bool
	SearchConfigured bool
	FeedbackStore    string
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	knowledge KnowledgeSizer
	store     HealthChecker
	providers ProviderLister
	queue     WriteQueue
	info      HealthInfo
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. knowledge and store may be nil.
func NewHealthHandler(knowledge KnowledgeSizer, store HealthChecker, info HealthInfo, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		knowledge: knowledge,
		store:     store,
		info:      info,
		logger:    logger,
	}
}

// WithProviders adds a completion-provider check to readiness.
func (h *HealthHandler) WithProviders(providers ProviderLister) *HealthHandler {
	h.providers = providers
	return h
}

// WithFeedbackQueue reports the feedback write backlog on readiness.
func (h *HealthHandler) WithFeedbackQueue(queue WriteQueue) *HealthHandler {
	h.queue = queue
	return h
}

// HandleHealth handles GET /api/health
// Always returns 200 while the process is serving.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:           "ok",
		LLMConfigured:    h.info.LLMConfigured,
		SearchConfigured: h.info.SearchConfigured,
		FeedbackStore:    h.info.FeedbackStore,
	}
	if h.knowledge != nil {
		response.KnowledgeBaseSize = h.knowledge.Size(r.Context())
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}

// HandleReadiness handles GET /api/health/ready
// Fails with 503 when the feedback store is unreachable, the knowledge base is
// empty, or no completion provider is registered.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.store == nil {
		checks["feedback_store"] = "healthy"
	} else if err := h.store.HealthCheck(ctx); err != nil {
		h.logger.Warn("feedback store health check failed", zap.Error(err))
		checks["feedback_store"] = "unhealthy"
		allHealthy = false
	} else {
		checks["feedback_store"] = "healthy"
	}

	if h.knowledge == nil || h.knowledge.Size(ctx) == 0 {
		checks["knowledge_base"] = "empty"
		allHealthy = false
	} else {
		checks["knowledge_base"] = "healthy"
	}

	var providers []string
	if h.providers != nil {
		if h.providers.GetProviderCount() == 0 {
			checks["llm_provider"] = "missing"
			allHealthy = false
		} else {
			checks["llm_provider"] = "healthy"
			providers = h.providers.ListProviders()
		}
	}

	pending := 0
	if h.queue != nil {
		pending = h.queue.Pending()
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:                status,
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
		Checks:                checks,
		Providers:             providers,
		PendingFeedbackWrites: pending,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
