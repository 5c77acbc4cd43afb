package workhistory

import "strings"

// DefaultNCRTokens are matched case-insensitively as substrings.
var DefaultNCRTokens = []string{"NCR", "NON-CONFORMANCE", "NONCONFORMANCE", "QUALITY ISSUE"}

// Classifier flags non-conformance records from free text. It is a heuristic:
// deterministic for identical input, not authoritative.
type Classifier struct {
	tokens []string
}

// NewClassifier upper-cases the tokens once; an empty list falls back to DefaultNCRTokens.
func NewClassifier(tokens []string) Classifier {
	if len(tokens) == 0 {
		tokens = DefaultNCRTokens
	}
	up := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			up = append(up, t)
		}
	}
	return Classifier{tokens: up}
}

var defaultClassifier = NewClassifier(nil)

// IsNCR reports whether any text field of r contains any NCR token.
func IsNCR(r Record) bool { return defaultClassifier.IsNCR(r) }

func (c Classifier) IsNCR(r Record) bool {
	if len(c.tokens) == 0 {
		return false
	}
	fields := [...]string{
		r.Notes,
		r.OperShortText,
		r.TaskDescription,
		r.PartName,
		r.JobNumber,
		r.BaseWorkCenter,
		r.OperWorkCenter,
	}
	for _, f := range fields {
		if f == "" {
			continue
		}
		up := strings.ToUpper(f)
		for _, tok := range c.tokens {
			if strings.Contains(up, tok) {
				return true
			}
		}
	}
	return false
}

// Note categories used to attribute job losses.
const (
	NoteMaterial = "material"
	NoteDelay    = "delay"
	NoteNone     = ""
)

// NoteCategory looks for material or delay keywords in the notes; material wins.
func NoteCategory(r Record) string {
	n := strings.ToLower(r.Notes)
	switch {
	case n == "":
		return NoteNone
	case strings.Contains(n, "material") || strings.Contains(n, "parts"):
		return NoteMaterial
	case strings.Contains(n, "delay") || strings.Contains(n, "wait"):
		return NoteDelay
	default:
		return NoteNone
	}
}
