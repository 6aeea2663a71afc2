package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb/math-agent/internal/websearch"
)

func newMCPCmd(c *cli) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the math web search MCP server",
		Long: `mcp exposes the search_math_solution and search_math_concept tools.
By default it speaks MCP over stdio; --http serves the streamable HTTP
transport instead. Without TAVILY_API_KEY every tool returns no results.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wc := c.cfg.WebSearch
			tavily := websearch.NewTavilyClient(wc.TavilyAPIKey, wc.TavilyBaseURL, c.cfg.Routing.WebSearchTimeout)
			server := websearch.NewServer(tavily, c.logger)
			if !server.Configured() {
				c.logger.Warn("TAVILY_API_KEY not set, search tools will return empty results")
			}

			if httpAddr == "" {
				c.logger.Info("serving MCP over stdio")
				return server.Run(cmd.Context())
			}
			return serveMCPHTTP(cmd.Context(), httpAddr, server, c.logger)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio (e.g. :8081)")
	return cmd
}

func serveMCPHTTP(ctx context.Context, addr string, server *websearch.Server, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", server.HTTPHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving MCP over HTTP", zap.String("addr", addr), zap.String("path", "/mcp"))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
