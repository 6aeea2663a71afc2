package guardrail

import (
	"regexp"
	"sort"
)

// PIIType names a kind of personal data found in free text.
type PIIType string

const (
	PIIEmail      PIIType = "email"
	PIIPhone      PIIType = "phone"
	PIISSN        PIIType = "ssn"
	PIICreditCard PIIType = "credit_card"
)

// PIIMatch is one detected span, byte offsets into the scanned text.
type PIIMatch struct {
	Type  PIIType
	Start int
	End   int
}

// Patterns require separators for phone numbers so bare digit runs, which are
// common in math, are left alone.
var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,3}[\s.\-])?(?:\(\d{3}\)\s?|\b\d{3}[\s.\-])\d{3}[\s.\-]\d{4}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ \-]?){12,18}\d\b`)
)

// DetectPII returns non-overlapping PII spans ordered by position. When two
// detections overlap the earlier, longer one wins.
func DetectPII(text string) []PIIMatch {
	var found []PIIMatch
	add := func(t PIIType, locs [][]int) {
		for _, loc := range locs {
			found = append(found, PIIMatch{Type: t, Start: loc[0], End: loc[1]})
		}
	}

	add(PIIEmail, emailPattern.FindAllStringIndex(text, -1))
	add(PIISSN, ssnPattern.FindAllStringIndex(text, -1))
	for _, loc := range cardPattern.FindAllStringIndex(text, -1) {
		if luhnValid(text[loc[0]:loc[1]]) {
			found = append(found, PIIMatch{Type: PIICreditCard, Start: loc[0], End: loc[1]})
		}
	}
	add(PIIPhone, phonePattern.FindAllStringIndex(text, -1))

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Start != found[j].Start {
			return found[i].Start < found[j].Start
		}
		return found[i].End > found[j].End
	})

	merged := found[:0]
	lastEnd := -1
	for _, m := range found {
		if m.Start < lastEnd {
			continue
		}
		merged = append(merged, m)
		lastEnd = m.End
	}
	return merged
}

// RedactPII replaces every detected span with a typed placeholder and
// reports which kinds were removed.
func RedactPII(text string) (string, []PIIType) {
	matches := DetectPII(text)
	if len(matches) == 0 {
		return text, nil
	}

	var (
		out   []byte
		kinds []PIIType
		seen  = make(map[PIIType]bool)
		prev  int
	)
	for _, m := range matches {
		out = append(out, text[prev:m.Start]...)
		out = append(out, redaction(m.Type)...)
		prev = m.End
		if !seen[m.Type] {
			seen[m.Type] = true
			kinds = append(kinds, m.Type)
		}
	}
	out = append(out, text[prev:]...)
	return string(out), kinds
}

func redaction(t PIIType) string {
	switch t {
	case PIIEmail:
		return "[EMAIL_REDACTED]"
	case PIIPhone:
		return "[PHONE_REDACTED]"
	case PIISSN:
		return "[SSN_REDACTED]"
	case PIICreditCard:
		return "[CC_REDACTED]"
	default:
		return "[REDACTED]"
	}
}

// luhnValid checks the card checksum over the digits of s.
func luhnValid(s string) bool {
	sum, n := 0, 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
		n++
	}
	return n >= 13 && sum%10 == 0
}
