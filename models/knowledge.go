package models

import (
	"fmt"
	"strings"
)

// KnowledgeEntry is a curated problem with its canonical solution.
type KnowledgeEntry struct {
	ID         string     `json:"id" yaml:"id"`
	Question   string     `json:"question" yaml:"question"`
	Solution   string     `json:"solution" yaml:"solution"`
	Steps      []string   `json:"steps" yaml:"steps"`
	Topic      string     `json:"topic" yaml:"topic"`
	Difficulty string     `json:"difficulty" yaml:"difficulty"`
	Tags       []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Citation   *Reference `json:"citation,omitempty" yaml:"citation,omitempty"`
}

// Document renders the entry as the text stored alongside its embedding.
func (e *KnowledgeEntry) Document() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", e.Question)
	if len(e.Steps) > 0 {
		b.WriteString("Steps:\n")
		for i, step := range e.Steps {
			fmt.Fprintf(&b, "Step %d: %s\n", i+1, step)
		}
	}
	fmt.Fprintf(&b, "Answer: %s", e.Solution)
	return b.String()
}
