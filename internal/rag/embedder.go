package rag

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultDimensions is the vector size of the hashing embedder.
const DefaultDimensions = 512

var (
	tokenPattern = regexp.MustCompile(`[a-z]+|\d+(?:\.\d+)?|[^\sa-z\d.,?!:;"']`)

	stopWords = map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "of": {}, "is": {}, "what": {}, "for": {},
		"to": {}, "and": {}, "in": {}, "on": {}, "with": {}, "find": {}, "calculate": {},
	}
)

// HashingEmbedder maps text onto a fixed-size vector by feature hashing
// unigrams and bigrams of its tokens. It needs no model and is deterministic,
// so the same question always produces the same vector.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a hashing embedder. dims <= 0 uses DefaultDimensions.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashingEmbedder{dims: dims}
}

// Dimensions returns the vector size.
func (e *HashingEmbedder) Dimensions() int {
	return e.dims
}

// Embed implements Embedder.
func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	acc := make([]float64, e.dims)
	toks := tokenize(text)

	add := func(feature string) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		acc[sum%uint64(e.dims)] += sign
	}

	for _, tok := range toks {
		add(tok)
	}
	for i := 1; i < len(toks); i++ {
		add(toks[i-1] + " " + toks[i])
	}

	return normalize(acc)
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	toks := raw[:0]
	for _, tok := range raw {
		if _, stop := stopWords[tok]; !stop {
			toks = append(toks, tok)
		}
	}
	return toks
}

func normalize(v []float64) []float32 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

// cosine returns the cosine similarity of a and b. Zero vectors score 0.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
