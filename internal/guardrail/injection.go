package guardrail

import (
	"regexp"
	"sort"
)

// InjectionType represents different types of prompt injection attacks
type InjectionType string

const (
	InjectionTypeSystemPromptLeak    InjectionType = "system_prompt_leak"
	InjectionTypeRoleManipulation    InjectionType = "role_manipulation"
	InjectionTypeInstructionOverride InjectionType = "instruction_override"
	InjectionTypeCodeExecution       InjectionType = "code_execution"
	InjectionTypeJailbreak           InjectionType = "jailbreak"
	InjectionTypeDelimiterAttack     InjectionType = "delimiter_attack"
)

// InjectionDetection represents a detected injection attempt
type InjectionDetection struct {
	Type       InjectionType
	Confidence float64
	StartPos   int
	EndPos     int
}

type injectionRule struct {
	kind       InjectionType
	confidence float64
	patterns   []*regexp.Regexp
}

// Math questions routinely say "system", "evaluate" and "find", so the code
// execution patterns only fire on call syntax with a quoted argument.
var injectionRules = []injectionRule{
	{
		kind:       InjectionTypeSystemPromptLeak,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)ignore\s+(previous|all|above|prior)\s+(instructions?|prompts?|commands?)`),
			regexp.MustCompile(`(?i)(show|reveal|print|repeat)\s+(me\s+)?(your|the)\s+(system|original|initial|hidden)\s+(prompt|instructions?)`),
			regexp.MustCompile(`(?i)what\s+(is|are|was|were)\s+(your|the)\s+(system|original|initial)\s+(prompt|instructions?)`),
		},
	},
	{
		kind:       InjectionTypeRoleManipulation,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(you|your)\s+(are|role|identity)\s+(now|is\s+now|changed)`),
			regexp.MustCompile(`(?i)assume\s+(the\s+)?(role|identity)\s+of`),
			regexp.MustCompile(`(?i)pretend\s+(to\s+)?be\s+(a|an)\b`),
			regexp.MustCompile(`(?i)from\s+now\s+on[,]?\s+(you|your)\s+(are|will)`),
		},
	},
	{
		kind:       InjectionTypeInstructionOverride,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)disregard\s+(all\s+|any\s+)?(previous\s+|above\s+|prior\s+)?(instructions?|rules|commands?)`),
			regexp.MustCompile(`(?i)override\s+(all\s+|previous\s+|system\s+)+(instructions?|rules|settings?)`),
			regexp.MustCompile(`(?i)forget\s+(everything|all\s+previous|what\s+you\s+learned)`),
		},
	},
	{
		kind:       InjectionTypeCodeExecution,
		confidence: 0.95,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(execute|run)\s+(this|the\s+following)\s+(code|script|command)`),
			regexp.MustCompile("(?i)\\b(eval|exec|system)\\s*\\(\\s*[\"'`]"),
			regexp.MustCompile(`(?i)import\s+(os|sys|subprocess|socket)\b`),
		},
	},
	{
		kind:       InjectionTypeJailbreak,
		confidence: 0.95,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bDAN\s+mode`),
			regexp.MustCompile(`(?i)developer\s+mode`),
			regexp.MustCompile(`(?i)jailbreak`),
			regexp.MustCompile(`(?i)without\s+(any|ethical|moral)\s+(restrictions?|limitations?|guidelines?)`),
		},
	},
	{
		kind:       InjectionTypeDelimiterAttack,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(\[SYSTEM\]|\[/SYSTEM\]|\[USER\]|\[/USER\]|\[ASSISTANT\]|\[/ASSISTANT\])`),
			regexp.MustCompile(`(<\|system\|>|<\|user\|>|<\|assistant\|>|<\|end\|>)`),
			regexp.MustCompile(`(###\s*(SYSTEM|USER|ASSISTANT|INSTRUCTION))`),
		},
	},
}

// DetectInjections returns every injection pattern found in text, ordered by position.
func DetectInjections(text string) []InjectionDetection {
	var detections []InjectionDetection
	for _, rule := range injectionRules {
		for _, pattern := range rule.patterns {
			for _, match := range pattern.FindAllStringIndex(text, -1) {
				detections = append(detections, InjectionDetection{
					Type:       rule.kind,
					Confidence: rule.confidence,
					StartPos:   match[0],
					EndPos:     match[1],
				})
			}
		}
	}
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].StartPos < detections[j].StartPos
	})
	return detections
}

// StrongestInjection returns the highest-confidence detection at or above threshold.
func StrongestInjection(text string, threshold float64) (InjectionDetection, bool) {
	var best InjectionDetection
	found := false
	for _, d := range DetectInjections(text) {
		if d.Confidence >= threshold && (!found || d.Confidence > best.Confidence) {
			best = d
			found = true
		}
	}
	return best, found
}
