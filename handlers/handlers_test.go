package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoHandler(t *testing.T) {
	tests := []struct {
		name        string
		metrics     bool
		mcp         bool
		wantMetrics bool
		wantMCP     bool
	}{
		{"core endpoints only", false, false, false, false},
		{"metrics and mcp enabled", true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()

			InfoHandler("development", tt.metrics, tt.mcp)(w, req)

			assert.Equal(t, http.StatusOK, w.Code)

			var info ServiceInfo
			require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
			assert.Equal(t, "development", info.Environment)
			assert.Equal(t, Version, info.Version)
			assert.Equal(t, "POST /api/solve", info.Endpoints["solve"])

			_, hasMetrics := info.Endpoints["metrics"]
			_, hasMCP := info.Endpoints["mcp"]
			assert.Equal(t, tt.wantMetrics, hasMetrics)
			assert.Equal(t, tt.wantMCP, hasMCP)
		})
	}
}

func TestNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	NotFound(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"not_found"`)
}
