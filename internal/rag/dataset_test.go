package rag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDataset(t *testing.T) {
	entries, err := DefaultDataset()
	require.NoError(t, err)
	assert.Len(t, entries, 20)

	var found bool
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.Steps, e.ID)
		if e.Question == "Solve the quadratic equation x^2 - 5x + 6 = 0" {
			found = true
			assert.Equal(t, "x = 2 or x = 3", e.Solution)
			assert.Equal(t, "algebra", e.Topic)
		}
	}
	assert.True(t, found, "quadratic example missing")
}

func TestParseDataset(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		ext     string
		wantLen int
		wantErr string
	}{
		{
			name:    "json without ids",
			data:    `[{"question":"What is 2+2?","solution":"4","steps":["Add"]},{"question":"What is 3*3?","solution":"9"}]`,
			ext:     ".json",
			wantLen: 2,
		},
		{
			name:    "yaml with citation",
			data:    "- id: pyth\n  question: State the Pythagorean theorem\n  solution: a^2 + b^2 = c^2\n  citation:\n    title: Pythagorean theorem\n    url: https://en.wikipedia.org/wiki/Pythagorean_theorem\n",
			ext:     ".YML",
			wantLen: 1,
		},
		{name: "empty list", data: `[]`, ext: ".json", wantErr: "empty"},
		{name: "missing solution", data: `[{"question":"q"}]`, ext: ".json", wantErr: "required"},
		{name: "duplicate ids", data: `[{"id":"a","question":"q","solution":"s"},{"id":"a","question":"q2","solution":"s2"}]`, ext: ".json", wantErr: "duplicate"},
		{name: "unsupported format", data: `question,solution`, ext: ".csv", wantErr: "unsupported"},
		{name: "malformed json", data: `{`, ext: ".json", wantErr: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ParseDataset([]byte(tt.data), tt.ext)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.wantLen)
		})
	}
}

func TestParseDataset_AssignsIDsAndCitation(t *testing.T) {
	entries, err := ParseDataset([]byte(`[{"question":" q1 ","solution":"s1"},{"id":"named","question":"q2","solution":"s2","citation":{"title":"T","url":"https://example.org/t"}}]`), ".json")
	require.NoError(t, err)

	assert.Equal(t, "entry-001", entries[0].ID)
	assert.Equal(t, "q1", entries[0].Question)
	assert.Equal(t, "named", entries[1].ID)
	require.NotNil(t, entries[1].Citation)
	assert.Equal(t, "https://example.org/t", entries[1].Citation.URL)
}

func TestLoadDataset(t *testing.T) {
	t.Run("empty path uses built-in dataset", func(t *testing.T) {
		entries, err := LoadDataset("")
		require.NoError(t, err)
		assert.NotEmpty(t, entries)
	})

	t.Run("file on disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kb.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"question":"q","solution":"s"}]`), 0o600))

		entries, err := LoadDataset(path)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
