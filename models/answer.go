package models

// Reference points the reader at material an answer was built from.
type Reference struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SearchSnippet is one ranked hit returned by web search.
type SearchSnippet struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// RetrievalResult is the best knowledge base match for a query.
type RetrievalResult struct {
	MatchedText     string          `json:"matched_text"`
	SimilarityScore float64         `json:"similarity_score"`
	SourceID        string          `json:"source_id"`
	Entry           *KnowledgeEntry `json:"entry,omitempty"`
}

// Evidence is the context handed to the synthesizer by a retrieval tier.
type Evidence struct {
	Source     Source
	Text       string
	References []Reference
	Entry      *KnowledgeEntry
	Confidence float64
}

// Answer is the released result of one solve request.
type Answer struct {
	Solution    string      `json:"solution"`
	Source      Source      `json:"source"`
	References  []Reference `json:"references"`
	Confidence  float64     `json:"confidence"`
	RoutingPath []string    `json:"routing_path"`
}
