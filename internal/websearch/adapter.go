package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/upb/math-agent/internal/observability"
	"github.com/upb/math-agent/models"
)

// DefaultMaxResults caps the snippets returned by Search.
const DefaultMaxResults = 5

// Failure reasons reported to metrics.
const (
	failTimeout   = "timeout"
	failConnect   = "connect"
	failTransport = "transport"
	failToolError = "tool_error"
	failDecode    = "decode"
)

var clientImpl = &mcp.Implementation{Name: "math-agent", Version: ServerVersion}

type connectFunc func(ctx context.Context) (*mcp.ClientSession, error)

// Adapter is an MCP client for the math-search server. Sessions are opened
// lazily and reopened after a transport failure.
type Adapter struct {
	connect    connectFunc
	maxResults int
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewInProcessAdapter connects to server over in-memory transports.
func NewInProcessAdapter(server *Server, maxResults int, logger *zap.Logger, metrics *observability.Metrics) *Adapter {
	client := mcp.NewClient(clientImpl, nil)
	connect := func(ctx context.Context) (*mcp.ClientSession, error) {
		// In-memory sessions live until Close, not until the request ends.
		ctx = context.WithoutCancel(ctx)
		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		if _, err := server.MCPServer().Connect(ctx, serverTransport, nil); err != nil {
			return nil, fmt.Errorf("connect server session: %w", err)
		}
		return client.Connect(ctx, clientTransport, nil)
	}
	return newAdapter(connect, maxResults, logger, metrics)
}

// NewRemoteAdapter connects to a math-search server served over streamable
// HTTP at endpoint.
func NewRemoteAdapter(endpoint string, maxResults int, logger *zap.Logger, metrics *observability.Metrics) *Adapter {
	client := mcp.NewClient(clientImpl, nil)
	connect := func(ctx context.Context) (*mcp.ClientSession, error) {
		return client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint}, nil)
	}
	return newAdapter(connect, maxResults, logger, metrics)
}

func newAdapter(connect connectFunc, maxResults int, logger *zap.Logger, metrics *observability.Metrics) *Adapter {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Adapter{
		connect:    connect,
		maxResults: maxResults,
		logger:     logger,
		metrics:    metrics,
	}
}

func (a *Adapter) sessionFor(ctx context.Context) (*mcp.ClientSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.session, nil
	}
	session, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	a.session = session
	return session, nil
}

// dropSession forgets a broken session so the next call reconnects.
func (a *Adapter) dropSession(broken *mcp.ClientSession) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == broken {
		_ = a.session.Close()
		a.session = nil
	}
}

// Search returns up to maxResults snippets for query in provider order.
// Every failure is logged and yields an empty result.
func (a *Adapter) Search(ctx context.Context, query string) []models.SearchSnippet {
	session, err := a.sessionFor(ctx)
	if err != nil {
		a.fail(ctx, failConnect, err)
		return nil
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolSearchSolution,
		Arguments: map[string]any{"query": query},
	})
	if err != nil {
		if ctx.Err() == nil {
			a.dropSession(session)
		}
		a.fail(ctx, failTransport, err)
		return nil
	}
	if res.IsError {
		a.fail(ctx, failToolError, errors.New(toolErrorText(res)))
		return nil
	}

	out, err := decodeOutput(res)
	if err != nil {
		a.fail(ctx, failDecode, err)
		return nil
	}

	snippets := make([]models.SearchSnippet, 0, min(len(out.Results), a.maxResults))
	for _, r := range out.Results {
		if len(snippets) == a.maxResults {
			break
		}
		snippets = append(snippets, models.SearchSnippet{
			Title:   r.Title,
			URL:     r.URL,
			Excerpt: r.Content,
		})
	}
	return snippets
}

func (a *Adapter) fail(ctx context.Context, reason string, err error) {
	if ctx.Err() != nil {
		reason = failTimeout
	}
	a.metrics.RecordWebSearchFailure(reason)
	observability.FromContext(ctx, a.logger).Warn("web search degraded to no results",
		zap.String("reason", reason),
		zap.Error(err))
}

// Close ends the current MCP session, if any.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return nil
	}
	err := a.session.Close()
	a.session = nil
	return err
}

// decodeOutput reads the structured tool output, falling back to the JSON
// text content older servers send.
func decodeOutput(res *mcp.CallToolResult) (*SearchOutput, error) {
	var raw []byte
	if res.StructuredContent != nil {
		b, err := json.Marshal(res.StructuredContent)
		if err != nil {
			return nil, fmt.Errorf("marshal structured content: %w", err)
		}
		raw = b
	} else {
		for _, c := range res.Content {
			if text, ok := c.(*mcp.TextContent); ok {
				raw = []byte(text.Text)
				break
			}
		}
	}
	if len(raw) == 0 {
		return nil, errors.New("tool result has no content")
	}

	var out SearchOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode tool output: %w", err)
	}
	return &out, nil
}

func toolErrorText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(*mcp.TextContent); ok && text.Text != "" {
			return text.Text
		}
	}
	return "tool returned an error"
}
