package synthesis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/upb/math-agent/models"
)

const systemPrompt = `You are an expert mathematics professor.
Generate a clear, step-by-step solution that a student can easily understand.

Format your response as:
**Understanding the Problem:**
[Brief explanation]

**Step-by-Step Solution:**
Step 1: [First step with explanation]
Step 2: [Second step with explanation]
...

**Final Answer:**
[Clear final answer]

**Key Concepts:**
[List important concepts used]
`

const (
	webContextSnippets = 2
	webExcerptRunes    = 500
)

func buildUserPrompt(query string, evidence *models.Evidence, directive Directive) string {
	var b strings.Builder

	if evidence != nil && strings.TrimSpace(evidence.Text) != "" {
		b.WriteString("Use the following reference material to ground your explanation:\n")
		b.WriteString(evidence.Text)
		b.WriteString("\n\n")
	} else {
		b.WriteString("Use your mathematical knowledge to solve this problem step by step.\n\n")
	}

	fmt.Fprintf(&b, "Question: %s\n\nProvide a detailed step-by-step solution.", query)

	if directive.Mode == ModeStrict {
		b.WriteString("\n\nYour previous answer was rejected")
		if directive.Reason != "" {
			fmt.Fprintf(&b, " (%s)", directive.Reason)
		}
		b.WriteString(". Number every step as Step 1, Step 2 and so on, give at least two steps, " +
			"end with the final answer, and discuss nothing but the mathematics of the question.")
	}

	return b.String()
}

// WebContext renders the leading search snippets as grounding text.
func WebContext(snippets []models.SearchSnippet) string {
	if len(snippets) > webContextSnippets {
		snippets = snippets[:webContextSnippets]
	}

	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, fmt.Sprintf("Source: %s\n%s", s.Title, truncateRunes(s.Excerpt, webExcerptRunes)))
	}
	return strings.Join(parts, "\n\n")
}

// renderKnowledgeEntry formats a curated entry without a model call.
func renderKnowledgeEntry(entry *models.KnowledgeEntry, confidence float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Understanding the Problem:**\n%s\n\n**Step-by-Step Solution:**\n", entry.Question)
	for i, step := range entry.Steps {
		fmt.Fprintf(&b, "Step %d: %s\n", i+1, step)
	}

	fmt.Fprintf(&b, "\n**Final Answer:**\n%s\n\n", entry.Solution)
	fmt.Fprintf(&b, "**Key Concepts:**\n- Topic: %s\n- Difficulty: %s\n\n",
		capitalize(entry.Topic, "Mathematics"), capitalize(entry.Difficulty, "Medium"))
	fmt.Fprintf(&b, "**Source:** Knowledge Base (Confidence: %.1f%%)\n", confidence*100)

	return b.String()
}

func capitalize(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
