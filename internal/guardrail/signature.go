package guardrail

import (
	"regexp"
	"strings"
)

// MathKeywords are the stems that mark a text as mathematical.
var MathKeywords = []string{
	"solve", "derivative", "integral", "equation", "calculate", "find", "prove",
	"simplify", "factor", "graph", "matrix", "vector", "trigonometry", "algebra",
	"calculus", "geometry", "probability", "statistics", "theorem", "formula",
	"evaluate", "limit", "sum", "root", "polynomial", "fraction", "logarithm",
	"angle", "triangle", "function", "inequality",
}

// BlockedTopics are subjects the assistant refuses regardless of math content.
var BlockedTopics = []string{
	"politics", "religion", "violence", "adult", "illegal",
	"personal information", "password", "hack", "exploit", "porn",
}

const (
	keywordWeight      = 0.6
	extraKeywordWeight = 0.1
	symbolWeight       = 0.4
)

var (
	keywordPatterns = compileWordPatterns(MathKeywords, `\w*`)
	blockedPatterns = compileWordPatterns(BlockedTopics, `\b`)

	// Digits, dedicated math glyphs, or an operator between operands.
	mathSymbolPattern = regexp.MustCompile(`\d|[=^∫∑√π∞≤≥≠]|(\b[a-zA-Z]\b|\))\s*[+\-*/]\s*(\b[a-zA-Z]\b|\()`)
)

func compileWordPatterns(words []string, suffix string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		stem := regexp.QuoteMeta(w)
		stem = strings.ReplaceAll(stem, " ", `\s+`)
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+stem+suffix))
	}
	return patterns
}

// MathScore rates how strongly text belongs to the mathematics domain, in [0, 1].
func MathScore(text string) float64 {
	hits := 0
	for _, p := range keywordPatterns {
		if p.MatchString(text) {
			hits++
		}
	}

	score := 0.0
	if hits > 0 {
		score = keywordWeight + extraKeywordWeight*float64(hits-1)
	}
	if mathSymbolPattern.MatchString(text) {
		score += symbolWeight
	}
	if score > 1 {
		score = 1
	}
	return score
}

// BlockedTopic returns the first blocked topic mentioned in text, if any.
func BlockedTopic(text string) (string, bool) {
	for i, p := range blockedPatterns {
		if p.MatchString(text) {
			return BlockedTopics[i], true
		}
	}
	return "", false
}
