package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedSizer int

func (s fixedSizer) Size(context.Context) int { return int(s) }

type stubChecker struct{ err error }

func (c stubChecker) HealthCheck(context.Context) error { return c.err }

func TestHandleHealth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("reports collaborators", func(t *testing.T) {
		handler := NewHealthHandler(fixedSizer(42), nil, HealthInfo{
			LLMConfigured:    true,
			SearchConfigured: false,
			FeedbackStore:    "sqlite",
		}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		w := httptest.NewRecorder()

		handler.HandleHealth(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "ok", response.Status)
		assert.Equal(t, 42, response.KnowledgeBaseSize)
		assert.True(t, response.LLMConfigured)
		assert.False(t, response.SearchConfigured)
		assert.Equal(t, "sqlite", response.FeedbackStore)
	})

	t.Run("ok without knowledge base", func(t *testing.T) {
		handler := NewHealthHandler(nil, nil, HealthInfo{}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		w := httptest.NewRecorder()

		handler.HandleHealth(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
		assert.Contains(t, w.Body.String(), `"knowledge_base_size":0`)
	})
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		knowledge      KnowledgeSizer
		store          HealthChecker
		expectedStatus int
		expectedChecks map[string]string
	}{
		{
			name:           "ready with memory store",
			knowledge:      fixedSizer(10),
			expectedStatus: http.StatusOK,
			expectedChecks: map[string]string{"feedback_store": "healthy", "knowledge_base": "healthy"},
		},
		{
			name:           "ready with reachable database",
			knowledge:      fixedSizer(10),
			store:          stubChecker{},
			expectedStatus: http.StatusOK,
			expectedChecks: map[string]string{"feedback_store": "healthy", "knowledge_base": "healthy"},
		},
		{
			name:           "database unreachable",
			knowledge:      fixedSizer(10),
			store:          stubChecker{err: errors.New("connection refused")},
			expectedStatus: http.StatusServiceUnavailable,
			expectedChecks: map[string]string{"feedback_store": "unhealthy", "knowledge_base": "healthy"},
		},
		{
			name:           "empty knowledge base",
			knowledge:      fixedSizer(0),
			expectedStatus: http.StatusServiceUnavailable,
			expectedChecks: map[string]string{"feedback_store": "healthy", "knowledge_base": "empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.knowledge, tt.store, HealthInfo{}, logger)

			req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
			w := httptest.NewRecorder()

			handler.HandleReadiness(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response ReadinessResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedChecks, response.Checks)
			assert.NotEmpty(t, response.Timestamp)
		})
	}
}

type stubProviders []string

func (p stubProviders) ListProviders() []string { return p }
func (p stubProviders) GetProviderCount() int { return len(p) }

type stubQueue int

func (q stubQueue) Pending() int { return int(q) }

func TestHandleReadiness_ProvidersAndQueue(t *testing.T) {
	logger := zap.NewNop()

	t.Run("reports providers and backlog", func(t *testing.T) {
		handler := NewHealthHandler(fixedSizer(3), nil, HealthInfo{}, logger).
			WithProviders(stubProviders{"groq"}).
			WithFeedbackQueue(stubQueue(4))

		req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "healthy", response.Checks["llm_provider"])
		assert.Equal(t, []string{"groq"}, response.Providers)
		assert.Equal(t, 4, response.PendingFeedbackWrites)
	})

	t.Run("no provider is not ready", func(t *testing.T) {
		handler := NewHealthHandler(fixedSizer(3), nil, HealthInfo{}, logger).
			WithProviders(stubProviders{})

		req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "missing", response.Checks["llm_provider"])
		assert.Empty(t, response.Providers)
	})
}
