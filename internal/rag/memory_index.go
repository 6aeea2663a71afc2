package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an in-process exact cosine index. Replace swaps the whole
// snapshot under the write lock, so a search never sees a partial reload.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs []Document
	dims int
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Replace implements VectorIndex.
func (m *MemoryIndex) Replace(ctx context.Context, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dims := 0
	snapshot := make([]Document, len(docs))
	for i, doc := range docs {
		if i == 0 {
			dims = len(doc.Vector)
		} else if len(doc.Vector) != dims {
			return fmt.Errorf("%w: entry %q has %d, want %d", ErrDimensionMismatch, doc.Entry.ID, len(doc.Vector), dims)
		}
		snapshot[i] = doc
	}

	m.mu.Lock()
	m.docs = snapshot
	m.dims = dims
	m.mu.Unlock()
	return nil
}

// Search implements VectorIndex. Equal scores are ordered by entry ID.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.docs) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != m.dims {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vector), m.dims)
	}

	matches := make([]Match, len(m.docs))
	for i, doc := range m.docs {
		matches[i] = Match{Entry: doc.Entry, Score: cosine(vector, doc.Vector)}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Entry.ID < matches[j].Entry.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count implements VectorIndex.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}
