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
	"github.com/upb/math-agent/services"
	"github.com/upb/math-agent/utils"
	"go.uber.org/zap"
)

func TestHandleSolveError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "input rejection keeps guardrail message",
			err:            services.NewInputRejected(services.ReasonTooShort, "Question length must be at least 5 characters"),
			expectedStatus: http.StatusOK,
			expectedMsg:    "Question length must be at least 5 characters",
		},
		{
			name:           "output rejection keeps guardrail message",
			err:            services.NewOutputRejected(services.ReasonIncompleteSolution, "The generated solution was incomplete"),
			expectedStatus: http.StatusOK,
			expectedMsg:    "The generated solution was incomplete",
		},
		{
			name:           "synthesis failure",
			err:            services.NewDomainError(services.ErrorTypeSynthesisFailure, "empty completion", nil),
			expectedStatus: http.StatusBadGateway,
			expectedMsg:    msgSynthesisFailure,
		},
		{
			name:           "upstream timeout",
			err:            services.WrapUpstream("synthesis", context.DeadlineExceeded),
			expectedStatus: http.StatusGatewayTimeout,
			expectedMsg:    msgUpstreamTimeout,
		},
		{
			name:           "upstream error hides provider text",
			err:            services.WrapUpstream("synthesis", errors.New("groq: 503 upstream connect error at 10.0.0.7")),
			expectedStatus: http.StatusBadGateway,
			expectedMsg:    msgUpstreamError,
		},
		{
			name:           "unknown error",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    msgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleSolveError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response utils.FailureResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.False(t, response.Success)
			assert.Equal(t, tt.expectedMsg, response.Message)
			assert.NotContains(t, response.Message, "10.0.0.7")
		})
	}
}

func TestHandleSolveError_Nil(t *testing.T) {
	w := httptest.NewRecorder()

	HandleSolveError(w, nil, zap.NewNop())

	assert.Empty(t, w.Body.String())
}

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		check          func(*testing.T, map[string]interface{})
	}{
		{
			name:           "invalid rating",
			err:            services.NewDomainError(services.ErrorTypeInvalidRating, "rating must be between 1 and 5", nil),
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "InvalidRating", body["detail"])
				assert.Equal(t, "rating must be between 1 and 5", body["message"])
			},
		},
		{
			name:           "validation error",
			err:            services.NewDomainError(services.ErrorTypeValidation, "limit must be a positive integer", nil),
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "bad_request", body["error"])
				assert.Equal(t, "limit must be a positive integer", body["message"])
			},
		},
		{
			name:           "not found error",
			err:            services.NewDomainError(services.ErrorTypeNotFound, "no such record", nil),
			expectedStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "not_found", body["error"])
			},
		},
		{
			name:           "upstream timeout",
			err:            services.WrapUpstream("db", context.DeadlineExceeded),
			expectedStatus: http.StatusGatewayTimeout,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "upstream_timeout", body["error"])
			},
		},
		{
			name:           "upstream error",
			err:            services.WrapUpstream("db", errors.New("connection reset")),
			expectedStatus: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "upstream_error", body["error"])
				assert.NotContains(t, body["message"], "connection reset")
			},
		},
		{
			name:           "internal error hides cause",
			err:            services.WrapInternal("failed to store feedback", errors.New("pq: disk full")),
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "internal_error", body["error"])
				assert.Equal(t, "An internal error occurred", body["message"])
			},
		},
		{
			name:           "interrupted feedback write",
			err:            services.WrapInternal("feedback write interrupted", context.Canceled),
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "internal_error", body["error"])
				assert.Equal(t, "An internal error occurred", body["message"])
			},
		},
		{
			name:           "unknown error",
			err:            errors.New("unknown error"),
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "An unexpected error occurred", body["message"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			tt.check(t, body)
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("validation error with fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"question": "question is required"},
		}

		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "question is required", response.Details["question"])
	})

	t.Run("generic error", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleValidationError(w, errors.New("bad input"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "bad input", response.Message)
	})
}
