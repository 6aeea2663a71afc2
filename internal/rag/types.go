package rag

import (
	"context"
	"errors"

	"github.com/upb/math-agent/models"
)

var (
	// ErrEmptyDataset is returned when a dataset holds no entries.
	ErrEmptyDataset = errors.New("knowledge dataset is empty")

	// ErrDimensionMismatch is returned when a vector does not match the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores embedded knowledge entries and answers nearest-neighbour
// queries. Replace swaps the full contents atomically from a reader's view.
type VectorIndex interface {
	Replace(ctx context.Context, docs []Document) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

// Document is a knowledge entry with its embedding.
type Document struct {
	Entry  models.KnowledgeEntry
	Vector []float32
}

// Match is a search hit. Score is cosine similarity.
type Match struct {
	Entry models.KnowledgeEntry
	Score float64
}
