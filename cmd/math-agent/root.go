package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb/math-agent/config"
	"github.com/upb/math-agent/internal/observability"
)

// cli carries state shared by every subcommand once the root pre-run has loaded it.
type cli struct {
	cfg    *config.Config
	logger *zap.Logger

	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "math-agent",
		Short: "Step-by-step math tutor with knowledge base, web search and guardrails",
		Long: `math-agent answers math questions through a tiered pipeline: an input
guardrail, a knowledge base lookup, an MCP web search fallback, LLM synthesis
and an output guardrail. Configuration comes from the environment and .env.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}

	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "override LOG_FORMAT (json or text)")

	rootCmd.AddCommand(
		newServeCmd(c),
		newSolveCmd(c),
		newMCPCmd(c),
		newKBCmd(c),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the configuration and builds the logger. Logs go to stderr so
// stdout stays machine-readable.
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.New(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Observability.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Observability.LogFormat = c.logFormat
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	c.cfg = cfg
	c.logger = logger.With(zap.String("environment", cfg.Environment))
	return nil
}
