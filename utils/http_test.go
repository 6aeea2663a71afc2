package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"status": "ok"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "ok", response["status"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK_EmptyObject(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, struct{}{}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestWriteFailure(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteFailure(w, http.StatusOK, "Query length must be at least 5 characters."))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Query length must be at least 5 characters."}`, w.Body.String())
}

func TestWriteDetail(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteDetail(w, http.StatusBadRequest, "InvalidRating", "rating must be between 1 and 5"))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response DetailResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "InvalidRating", response.Detail)
	assert.Equal(t, "rating must be between 1 and 5", response.Message)
}

func TestWriteBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	details := map[string]interface{}{"question": "question is required"}

	err := WriteBadRequest(w, "Validation failed", details)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	err = json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)

	assert.Equal(t, "bad_request", response.Error)
	assert.Equal(t, "Validation failed", response.Message)
	assert.Equal(t, "question is required", response.Details["question"])
}

func TestWriteNotFound(t *testing.T) {
	t.Run("with custom message", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteNotFound(w, "Route not found"))
		assert.Equal(t, http.StatusNotFound, w.Code)

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "not_found", response.Error)
		assert.Equal(t, "Route not found", response.Message)
	})

	t.Run("with empty message", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteNotFound(w, ""))

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Resource not found", response.Message)
	})
}

func TestWriteTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteTooManyRequests(w, ""))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var response FailureResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.False(t, response.Success)
	assert.NotEmpty(t, response.Message)
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteInternalServerError(w, ""))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "internal_error", response.Error)
	assert.Equal(t, "Internal server error", response.Message)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name              string
		status            int
		message           string
		expectedErrorType string
	}{
		{"bad request", http.StatusBadRequest, "Invalid input", "bad_request"},
		{"not found", http.StatusNotFound, "Not found", "not_found"},
		{"rate limit", http.StatusTooManyRequests, "Too many requests", "rate_limit_exceeded"},
		{"bad gateway", http.StatusBadGateway, "Model unavailable", "upstream_error"},
		{"gateway timeout", http.StatusGatewayTimeout, "Model timed out", "upstream_timeout"},
		{"unknown status defaults to internal error", http.StatusTeapot, "I'm a teapot", "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			err := WriteError(w, tt.status, tt.message, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.status, w.Code)

			var response ErrorResponse
			err = json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedErrorType, response.Error)
			assert.Equal(t, tt.message, response.Message)
		})
	}
}
