package handlers

import (
	"net/http"

	"github.com/upb/math-agent/utils"
)

// Version is the service version reported by GET /. Overridden at build time with -ldflags.
var Version = "0.1.0"

// ServiceInfo is the body of GET /.
type ServiceInfo struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Endpoints   map[string]string `json:"endpoints"`
}

// InfoHandler returns a handler describing the service and its endpoints
func InfoHandler(environment string, metricsEnabled, mcpEnabled bool) http.HandlerFunc {
	endpoints := map[string]string{
		"solve":           "POST /api/solve",
		"feedback":        "POST /api/feedback",
		"feedback_stats":  "GET /api/feedback/stats",
		"feedback_recent": "GET /api/feedback/recent",
		"health":          "GET /api/health",
	}
	if metricsEnabled {
		endpoints["metrics"] = "GET /metrics"
	}
	if mcpEnabled {
		endpoints["mcp"] = "/mcp"
	}

	info := ServiceInfo{
		Name:        "Math Routing Agent",
		Version:     Version,
		Environment: environment,
		Endpoints:   endpoints,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, info)
	}
}

// NotFound writes the JSON 404 for unknown routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteNotFound(w, "endpoint not found")
}
