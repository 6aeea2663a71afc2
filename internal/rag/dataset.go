package rag

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/upb/math-agent/models"
)

//go:embed data/math_dataset.yaml
var defaultDataset []byte

// DefaultDataset returns the built-in sample problems.
func DefaultDataset() ([]models.KnowledgeEntry, error) {
	return ParseDataset(defaultDataset, ".yaml")
}

// LoadDataset reads a JSON or YAML dataset from path. An empty path loads
// the built-in dataset.
func LoadDataset(path string) ([]models.KnowledgeEntry, error) {
	if path == "" {
		return DefaultDataset()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return ParseDataset(data, filepath.Ext(path))
}

// ParseDataset decodes entries by file extension. Entries without an ID get
// a positional one; duplicate IDs and entries lacking a question or solution
// are rejected.
func ParseDataset(data []byte, ext string) ([]models.KnowledgeEntry, error) {
	var entries []models.KnowledgeEntry

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode json dataset: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode yaml dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", ext)
	}

	if len(entries) == 0 {
		return nil, ErrEmptyDataset
	}

	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		e := &entries[i]
		e.Question = strings.TrimSpace(e.Question)
		e.Solution = strings.TrimSpace(e.Solution)
		if e.Question == "" || e.Solution == "" {
			return nil, fmt.Errorf("dataset entry %d: question and solution are required", i)
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("entry-%03d", i+1)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("dataset entry %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	return entries, nil
}
