package websearch

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/math-agent/internal/observability"
)

func newInProcess(t *testing.T, fake Searcher, maxResults int) (*Adapter, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	adapter := NewInProcessAdapter(NewServer(fake, zap.NewNop()), maxResults, zap.NewNop(), metrics)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter, metrics
}

func TestAdapter_Search(t *testing.T) {
	fake := &fakeSearcher{results: results("first", "second")}
	adapter, _ := newInProcess(t, fake, 5)

	snippets := adapter.Search(context.Background(), "Solve x^2 = 9")
	require.Len(t, snippets, 2)
	assert.Equal(t, "first", snippets[0].Title)
	assert.Equal(t, "https://math.stackexchange.com/first", snippets[0].URL)
	assert.Equal(t, "Worked solution for first", snippets[0].Excerpt)
	assert.Equal(t, "second", snippets[1].Title)

	// The session is reused across calls.
	again := adapter.Search(context.Background(), "Solve x^2 = 16")
	assert.Len(t, again, 2)
	assert.Len(t, fake.requests, 2)
}

func TestAdapter_CapsResultsInOrder(t *testing.T) {
	fake := &fakeSearcher{results: results("r1", "r2", "r3", "r4", "r5", "r6", "r7")}
	adapter, _ := newInProcess(t, fake, 3)

	snippets := adapter.Search(context.Background(), "integrate x dx")
	require.Len(t, snippets, 3)
	assert.Equal(t, "r1", snippets[0].Title)
	assert.Equal(t, "r2", snippets[1].Title)
	assert.Equal(t, "r3", snippets[2].Title)
}

func TestAdapter_Degrades(t *testing.T) {
	t.Run("tool error", func(t *testing.T) {
		adapter, metrics := newInProcess(t, &fakeSearcher{err: errors.New("upstream 500")}, 5)

		assert.Empty(t, adapter.Search(context.Background(), "q"))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebSearchFailures.WithLabelValues(failToolError)))
	})

	t.Run("unconfigured search", func(t *testing.T) {
		adapter, metrics := newInProcess(t, nil, 5)

		assert.Empty(t, adapter.Search(context.Background(), "q"))
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WebSearchFailures.WithLabelValues(failToolError)))
	})

	t.Run("timeout", func(t *testing.T) {
		adapter, metrics := newInProcess(t, &fakeSearcher{block: true}, 5)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		assert.Empty(t, adapter.Search(ctx, "q"))
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebSearchFailures.WithLabelValues(failTimeout)))
	})

	t.Run("connect failure", func(t *testing.T) {
		metrics := observability.NewMetrics(prometheus.NewRegistry())
		adapter := newAdapter(func(context.Context) (*mcp.ClientSession, error) {
			return nil, errors.New("connection refused")
		}, 5, zap.NewNop(), metrics)

		assert.Empty(t, adapter.Search(context.Background(), "q"))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebSearchFailures.WithLabelValues(failConnect)))
		assert.NoError(t, adapter.Close())
	})
}

func TestAdapter_Remote(t *testing.T) {
	fake := &fakeSearcher{results: results("remote")}
	httpServer := httptest.NewServer(NewServer(fake, zap.NewNop()).HTTPHandler())
	defer httpServer.Close()

	adapter := NewRemoteAdapter(httpServer.URL, 5, zap.NewNop(), nil)
	defer adapter.Close()

	snippets := adapter.Search(context.Background(), "Solve 2x = 4")
	require.Len(t, snippets, 1)
	assert.Equal(t, "remote", snippets[0].Title)
}

func TestDecodeOutput(t *testing.T) {
	t.Run("text content fallback", func(t *testing.T) {
		res := &mcp.CallToolResult{Content: []mcp.Content{
			&mcp.TextContent{Text: `{"query":"q","results":[{"title":"t","url":"u","content":"c"}],"found":true}`},
		}}

		out, err := decodeOutput(res)
		require.NoError(t, err)
		require.Len(t, out.Results, 1)
		assert.Equal(t, "t", out.Results[0].Title)
	})

	t.Run("malformed payload", func(t *testing.T) {
		res := &mcp.CallToolResult{StructuredContent: map[string]any{"results": "not a list"}}

		_, err := decodeOutput(res)
		assert.Error(t, err)
	})

	t.Run("empty result", func(t *testing.T) {
		_, err := decodeOutput(&mcp.CallToolResult{})
		assert.Error(t, err)
	})
}
