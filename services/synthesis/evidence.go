package synthesis

import "github.com/upb/math-agent/models"

// KnowledgeEvidence wraps a knowledge base hit. The entry citation, when
// present, becomes the only reference.
func KnowledgeEvidence(result *models.RetrievalResult) *models.Evidence {
	ev := &models.Evidence{
		Source:     models.SourceKnowledgeBase,
		Text:       result.MatchedText,
		Entry:      result.Entry,
		Confidence: result.SimilarityScore,
		References: []models.Reference{},
	}
	if result.Entry != nil && result.Entry.Citation != nil {
		ev.References = append(ev.References, *result.Entry.Citation)
	}
	return ev
}

// WebEvidence wraps search snippets, or returns nil when there are none.
func WebEvidence(snippets []models.SearchSnippet) *models.Evidence {
	if len(snippets) == 0 {
		return nil
	}

	lead := snippets
	if len(lead) > webContextSnippets {
		lead = lead[:webContextSnippets]
	}
	references := make([]models.Reference, 0, len(lead))
	for _, s := range lead {
		references = append(references, models.Reference{Title: s.Title, URL: s.URL})
	}

	return &models.Evidence{
		Source:     models.SourceWebSearch,
		Text:       WebContext(snippets),
		References: references,
		Confidence: WebConfidence,
	}
}
