// Package analysis implements the PM gateway: a rule-based pre-classifier
// that estimates complexity, priority and risk for a raw task description
// before it is handed to the routing engine.
package analysis

import (
	"sort"
	"strings"
	"unicode"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

// Signal word lists. Matching is done on normalized tokens, so multi-word
// entries match as adjacent token runs.
var (
	urgentSignals = []string{
		"urgent", "asap", "immediately", "critical", "outage", "production down",
		"data loss", "security breach", "hotfix",
	}
	highSignals = []string{
		"blocker", "blocking", "deadline", "today", "high priority", "regression",
	}
	lowSignals = []string{
		"someday", "nice to have", "low priority", "backlog", "eventually", "cleanup",
	}

	complexSignals = []string{
		"architecture", "migration", "refactor", "integration", "distributed",
		"scalable", "microservices", "redesign", "end to end", "multi tenant",
	}
	simpleSignals = []string{
		"typo", "rename", "tweak", "copy change", "one liner", "bump", "wording",
	}

	riskSignals = map[string]string{
		"production":  "touches production systems",
		"database":    "touches persistent data",
		"migration":   "schema or data migration involved",
		"security":    "security-sensitive change",
		"payment":     "payment flow involved",
		"auth":        "authentication flow involved",
		"delete":      "destructive operation mentioned",
		"third party": "external dependency involved",
	}
)

// Effort bands per complexity class, in hours.
var effortHours = map[domain.Complexity]float64{
	domain.ComplexitySimple:   2,
	domain.ComplexityStandard: 8,
	domain.ComplexityComplex:  24,
}

// Gateway classifies task descriptions. It is stateless and safe for
// concurrent use.
type Gateway struct{}

// NewGateway creates a PM analysis gateway.
func NewGateway() *Gateway { return &Gateway{} }

// Analyze classifies the concatenated title+body text. It never fails: an
// empty description classifies as simple/normal with no risk notes.
func (g *Gateway) Analyze(title, body string) domain.TaskAnalysis {
	text := normalize(title + " " + body)

	complexity := classifyComplexity(text)
	priority := classifyPriority(text)

	var risks []string
	for signal, note := range riskSignals {
		if containsPhrase(text, signal) {
			risks = append(risks, note)
		}
	}
	// Map iteration order is random; keep notes deterministic.
	sort.Strings(risks)

	hours := effortHours[complexity]
	if priority == domain.PriorityUrgent {
		// Urgent work gets a tighter estimate band, not a bigger one.
		hours = hours / 2
	}

	return domain.TaskAnalysis{
		Complexity:     complexity,
		Priority:       priority,
		RiskNotes:      risks,
		EstimatedHours: hours,
	}
}

func classifyPriority(text string) domain.Priority {
	for _, s := range urgentSignals {
		if containsPhrase(text, s) {
			return domain.PriorityUrgent
		}
	}
	for _, s := range highSignals {
		if containsPhrase(text, s) {
			return domain.PriorityHigh
		}
	}
	for _, s := range lowSignals {
		if containsPhrase(text, s) {
			return domain.PriorityLow
		}
	}
	return domain.PriorityNormal
}

func classifyComplexity(text string) domain.Complexity {
	for _, s := range simpleSignals {
		if containsPhrase(text, s) {
			return domain.ComplexitySimple
		}
	}

	hits := 0
	for _, s := range complexSignals {
		if containsPhrase(text, s) {
			hits++
		}
	}
	switch {
	case hits >= 1:
		return domain.ComplexityComplex
	case len(strings.Fields(text)) > 60:
		// Long descriptions without explicit signals still tend to hide
		// multi-step work.
		return domain.ComplexityComplex
	case len(strings.Fields(text)) < 6:
		return domain.ComplexitySimple
	default:
		return domain.ComplexityStandard
	}
}

// normalize lowercases and collapses non-alphanumeric runs to single spaces.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// containsPhrase reports whether the normalized phrase occurs as an adjacent
// token run in the normalized text.
func containsPhrase(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+normalize(phrase)+" ")
}
