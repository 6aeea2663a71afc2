package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/upb/math-agent/app"
	"github.com/upb/math-agent/handlers"
	"github.com/upb/math-agent/services"
	"github.com/upb/math-agent/utils"
)

func newSolveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "solve <question>",
		Short: "Answer one question and print the JSON envelope",
		Long: `solve runs a single question through the full pipeline and prints the
same JSON body POST /api/solve would return. Guardrail rejections print
success=false and exit zero; upstream failures exit non-zero.`,
		Example: `  math-agent solve "Solve x^2 - 5x + 6 = 0"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			question := strings.Join(args, " ")

			deps, err := app.NewDependencies(ctx, c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer func() { _ = deps.Close(ctx) }()

			answer, err := deps.Router.Solve(ctx, question)
			out := cmd.OutOrStdout()
			switch {
			case err == nil:
				return printJSON(out, handlers.NewSolveResponse(answer))
			case services.IsInputRejectedError(err), services.IsOutputRejectedError(err):
				return printJSON(out, utils.FailureResponse{Success: false, Message: services.GetErrorMessage(err)})
			default:
				_ = printJSON(out, utils.FailureResponse{Success: false, Message: services.GetErrorMessage(err)})
				return err
			}
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
