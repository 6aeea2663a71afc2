package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTavilyBaseURL is the public Tavily API endpoint.
const DefaultTavilyBaseURL = "https://api.tavily.com"

// ErrNotConfigured is returned when no Tavily API key is set.
var ErrNotConfigured = errors.New("tavily api key not configured")

// TavilyRequest is the body of a Tavily search call.
type TavilyRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

// TavilyResult is one ranked hit.
type TavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// TavilyResponse is the decoded search response.
type TavilyResponse struct {
	Query   string         `json:"query"`
	Results []TavilyResult `json:"results"`
}

// Searcher runs a web search. TavilyClient is the production implementation.
type Searcher interface {
	Search(ctx context.Context, req TavilyRequest) (*TavilyResponse, error)
}

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewTavilyClient creates a client. An empty baseURL uses DefaultTavilyBaseURL.
func NewTavilyClient(apiKey, baseURL string, timeout time.Duration) *TavilyClient {
	if baseURL == "" {
		baseURL = DefaultTavilyBaseURL
	}
	return &TavilyClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is set.
func (c *TavilyClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Search implements Searcher.
func (c *TavilyClient) Search(ctx context.Context, req TavilyRequest) (*TavilyResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out TavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}
	return &out, nil
}
