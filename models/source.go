package models

import "fmt"

// Source identifies the tier that supplied the context for an answer.
type Source uint8

const (
	sourceUnknown Source = iota
	SourceKnowledgeBase
	SourceWebSearch
	SourceLLMKnowledge
)

// Sources lists every valid Source in cascade order.
var Sources = []Source{SourceKnowledgeBase, SourceWebSearch, SourceLLMKnowledge}

// String returns the wire name of the source
func (s Source) String() string {
	switch s {
	case SourceKnowledgeBase:
		return "knowledge_base"
	case SourceWebSearch:
		return "web_search"
	case SourceLLMKnowledge:
		return "llm_knowledge"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined sources
func (s Source) Valid() bool {
	switch s {
	case SourceKnowledgeBase, SourceWebSearch, SourceLLMKnowledge:
		return true
	default:
		return false
	}
}

// ParseSource converts a wire name into a Source
func ParseSource(name string) (Source, error) {
	for _, s := range Sources {
		if s.String() == name {
			return s, nil
		}
	}
	return sourceUnknown, fmt.Errorf("unknown answer source %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (s Source) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid answer source %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
