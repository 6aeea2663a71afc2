package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upb/math-agent/internal/observability"
	"github.com/upb/math-agent/models"
)

const (
	// DefaultSimilarityThreshold is the minimum cosine similarity for a hit.
	DefaultSimilarityThreshold = 0.75

	embedBatchSize = 16
)

// RetrieverConfig tunes retrieval and indexing.
type RetrieverConfig struct {
	Threshold   float64
	Concurrency int // parallel embedding batches during indexing
}

// Retriever answers knowledge base lookups over a VectorIndex.
type Retriever struct {
	embedder  Embedder
	index     VectorIndex
	threshold float64
	workers   int
	logger    *zap.Logger
	metrics   *observability.Metrics

	reloadMu sync.Mutex
}

// NewRetriever wires an embedder and index. metrics may be nil.
func NewRetriever(embedder Embedder, index VectorIndex, cfg RetrieverConfig, logger *zap.Logger, metrics *observability.Metrics) *Retriever {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultSimilarityThreshold
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		threshold: cfg.Threshold,
		workers:   cfg.Concurrency,
		logger:    logger,
		metrics:   metrics,
	}
}

// Index embeds entries and replaces the index contents with them.
// Concurrent calls are serialized.
func (r *Retriever) Index(ctx context.Context, entries []models.KnowledgeEntry) error {
	if len(entries) == 0 {
		return ErrEmptyDataset
	}

	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	docs := make([]Document, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for start := 0; start < len(entries); start += embedBatchSize {
		end := min(start+embedBatchSize, len(entries))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, e := range entries[start:end] {
				texts = append(texts, e.Question)
			}
			vectors, err := r.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed entries %d-%d: %w", start, end-1, err)
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embed entries %d-%d: got %d vectors", start, end-1, len(vectors))
			}
			for i, v := range vectors {
				docs[start+i] = Document{Entry: entries[start+i], Vector: v}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := r.index.Replace(ctx, docs); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}

	r.metrics.SetKnowledgeBaseSize(len(docs))
	r.logger.Info("knowledge base indexed", zap.Int("entries", len(docs)))
	return nil
}

// Load reads the dataset at path (empty for the built-in one) and indexes it.
func (r *Retriever) Load(ctx context.Context, path string) error {
	entries, err := LoadDataset(path)
	if err != nil {
		return err
	}
	return r.Index(ctx, entries)
}

// Search returns the best match for query, or nil when nothing clears the
// similarity threshold.
func (r *Retriever) Search(ctx context.Context, query string) (*models.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	matches, err := r.index.Search(ctx, vectors[0], 1)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	best := matches[0]
	if best.Score < r.threshold {
		r.logger.Debug("knowledge base miss",
			zap.String("nearest", best.Entry.ID),
			zap.Float64("score", best.Score),
			zap.Float64("threshold", r.threshold))
		return nil, nil
	}

	entry := best.Entry
	return &models.RetrievalResult{
		MatchedText:     entry.Document(),
		SimilarityScore: clamp01(best.Score),
		SourceID:        entry.ID,
		Entry:           &entry,
	}, nil
}

// Size returns the number of indexed entries, or 0 if the index cannot say.
func (r *Retriever) Size(ctx context.Context) int {
	n, err := r.index.Count(ctx)
	if err != nil {
		r.logger.Warn("count knowledge base", zap.Error(err))
		return 0
	}
	return n
}

// Threshold returns the similarity threshold in use.
func (r *Retriever) Threshold() float64 {
	return r.threshold
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
