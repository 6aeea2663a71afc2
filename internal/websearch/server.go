package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	// ServerName identifies the MCP server to clients.
	ServerName = "math-search"
	// ServerVersion is the MCP server version.
	ServerVersion = "1.0.0"

	// ToolSearchSolution finds worked solutions for a problem.
	ToolSearchSolution = "search_math_solution"
	// ToolSearchConcept finds explanations of a concept or theorem.
	ToolSearchConcept = "search_math_concept"

	solutionMaxResults = 5
	conceptMaxResults  = 3
)

var (
	solutionDomains = []string{
		"khanacademy.org",
		"mathway.com",
		"symbolab.com",
		"math.stackexchange.com",
		"brilliant.org",
		"wolframalpha.com",
	}
	conceptDomains = []string{
		"khanacademy.org",
		"math.stackexchange.com",
		"brilliant.org",
		"mathworld.wolfram.com",
		"wikipedia.org",
	}
)

// SolutionInput is the input schema of search_math_solution.
type SolutionInput struct {
	Query       string `json:"query" jsonschema:"the mathematical question or problem to search for"`
	SearchDepth string `json:"search_depth,omitempty" jsonschema:"how thorough the search should be: basic (default) or advanced"`
}

// ConceptInput is the input schema of search_math_concept.
type ConceptInput struct {
	Concept string `json:"concept" jsonschema:"the mathematical concept, theorem or definition to explain"`
}

// SearchOutput is the output schema shared by both tools.
type SearchOutput struct {
	Query         string         `json:"query"`
	EnhancedQuery string         `json:"enhanced_query"`
	Results       []SearchResult `json:"results"`
	Found         bool           `json:"found"`
	Configured    bool           `json:"configured"`
}

// SearchResult is one web hit in provider order.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Server is the math-search MCP server.
type Server struct {
	searcher Searcher
	logger   *zap.Logger
	server   *mcp.Server
}

// NewServer builds the MCP server. A nil searcher, or a TavilyClient without
// a key, makes every tool return an empty result set.
func NewServer(searcher Searcher, logger *zap.Logger) *Server {
	if tc, ok := searcher.(*TavilyClient); ok && !tc.Configured() {
		searcher = nil
	}

	s := &Server{
		searcher: searcher,
		logger:   logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

// Configured reports whether tools perform real searches.
func (s *Server) Configured() bool {
	return s.searcher != nil
}

// MCPServer exposes the underlying server for in-process connections.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves MCP over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSearchSolution,
		Description: "Search the web for mathematical solutions, explanations, and step-by-step guides",
	}, s.handleSearchSolution)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSearchConcept,
		Description: "Search for explanations of mathematical concepts, theorems, and definitions",
	}, s.handleSearchConcept)
}

func (s *Server) handleSearchSolution(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SolutionInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}

	depth := strings.ToLower(strings.TrimSpace(input.SearchDepth))
	switch depth {
	case "":
		depth = "basic"
	case "basic", "advanced":
	default:
		return nil, SearchOutput{}, fmt.Errorf("search_depth must be basic or advanced, got %q", input.SearchDepth)
	}

	req := TavilyRequest{
		Query:          fmt.Sprintf("how to solve %s step by step mathematics", query),
		SearchDepth:    depth,
		MaxResults:     solutionMaxResults,
		IncludeDomains: solutionDomains,
	}
	out, err := s.search(ctx, query, req)
	return nil, out, err
}

func (s *Server) handleSearchConcept(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConceptInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	concept := strings.TrimSpace(input.Concept)
	if concept == "" {
		return nil, SearchOutput{}, errors.New("concept is required")
	}

	req := TavilyRequest{
		Query:          fmt.Sprintf("explain %s mathematics definition theorem", concept),
		SearchDepth:    "advanced",
		MaxResults:     conceptMaxResults,
		IncludeDomains: conceptDomains,
	}
	out, err := s.search(ctx, concept, req)
	return nil, out, err
}

func (s *Server) search(ctx context.Context, query string, req TavilyRequest) (SearchOutput, error) {
	out := SearchOutput{
		Query:         query,
		EnhancedQuery: req.Query,
		Results:       []SearchResult{},
		Configured:    s.searcher != nil,
	}
	if s.searcher == nil {
		return out, nil
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		s.logger.Warn("web search failed", zap.String("query", query), zap.Error(err))
		return SearchOutput{}, fmt.Errorf("search failed: %w", err)
	}

	for _, r := range resp.Results {
		out.Results = append(out.Results, SearchResult(r))
	}
	out.Found = len(out.Results) > 0
	return out, nil
}
