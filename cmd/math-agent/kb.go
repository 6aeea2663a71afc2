package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/upb/math-agent/internal/rag"
)

type kbReport struct {
	Dataset string         `json:"dataset"`
	Entries int            `json:"entries"`
	Topics  map[string]int `json:"topics"`
	Query   *kbQueryResult `json:"query,omitempty"`
}

type kbQueryResult struct {
	Question  string  `json:"question"`
	Hit       bool    `json:"hit"`
	MatchID   string  `json:"match_id,omitempty"`
	Matched   string  `json:"matched,omitempty"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
}

func newKBCmd(c *cli) *cobra.Command {
	var (
		dataset string
		query   string
	)

	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Validate a knowledge base dataset and optionally test a lookup",
		Long: `kb parses a JSON or YAML dataset (the built-in one by default), reports
entry counts per topic and, with --query, runs a lookup against an in-memory
index built with the local hashing embedder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if dataset == "" {
				dataset = c.cfg.Knowledge.DatasetPath
			}

			entries, err := rag.LoadDataset(dataset)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}

			report := kbReport{
				Dataset: dataset,
				Entries: len(entries),
				Topics:  make(map[string]int),
			}
			if report.Dataset == "" {
				report.Dataset = "built-in"
			}
			for _, e := range entries {
				topic := e.Topic
				if topic == "" {
					topic = "general"
				}
				report.Topics[topic]++
			}

			if query != "" {
				retriever := rag.NewRetriever(
					rag.NewHashingEmbedder(c.cfg.Knowledge.EmbeddingDimensions),
					rag.NewMemoryIndex(),
					rag.RetrieverConfig{Threshold: c.cfg.Knowledge.SimilarityThreshold},
					c.logger, nil,
				)
				if err := retriever.Index(ctx, entries); err != nil {
					return fmt.Errorf("failed to index dataset: %w", err)
				}

				result, err := retriever.Search(ctx, query)
				if err != nil {
					return fmt.Errorf("lookup failed: %w", err)
				}
				qr := &kbQueryResult{Question: query, Threshold: retriever.Threshold()}
				if result != nil {
					qr.Hit = true
					qr.MatchID = result.SourceID
					qr.Score = result.SimilarityScore
					if result.Entry != nil {
						qr.Matched = result.Entry.Question
					}
				}
				report.Query = qr
			}

			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "dataset path (defaults to KB_DATASET_PATH, then the built-in set)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "question to look up")
	return cmd
}
