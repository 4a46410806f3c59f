package routing

import (
	"strings"
	"unicode"
)

// Tokenize normalizes free text for lexical matching: lowercase, split on
// any non-alphanumeric boundary, drop empty tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// keywordWeight returns the score contribution of one matched keyword.
// Multi-word phrases and longer keywords weigh more than short generic
// words, so an agent with a few precise keywords can out-score an agent
// with a large list of vague ones. A flat per-match count would invert
// that ordering.
func keywordWeight(keyword string) float64 {
	tokens := Tokenize(keyword)
	if len(tokens) == 0 {
		return 0
	}
	chars := 0
	for _, t := range tokens {
		chars += len(t)
	}
	lengthBonus := float64(chars) / 16.0
	if lengthBonus > 1.0 {
		lengthBonus = 1.0
	}
	return float64(len(tokens)) + lengthBonus
}

// ScoreKeywords computes the lexical relevance of a profile's keyword set
// against the pre-tokenized query. It returns the raw score (>= 0, unbounded
// above) and the matched keywords for explainability.
//
// Single-word keywords match against the token set; multi-word keywords
// match as token subsequences, so "database design" matches "design a
// database" only when the words appear adjacent in order.
func ScoreKeywords(queryTokens []string, keywords []string) (float64, []string) {
	if len(queryTokens) == 0 || len(keywords) == 0 {
		return 0, nil
	}

	tokenSet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		tokenSet[t] = struct{}{}
	}
	// Space-joined form for phrase containment checks.
	joined := " " + strings.Join(queryTokens, " ") + " "

	var score float64
	var matched []string
	seen := make(map[string]struct{}, len(keywords))

	for _, kw := range keywords {
		norm := strings.Join(Tokenize(kw), " ")
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}

		var hit bool
		if strings.ContainsRune(norm, ' ') {
			hit = strings.Contains(joined, " "+norm+" ")
		} else {
			_, hit = tokenSet[norm]
		}
		if !hit {
			continue
		}

		seen[norm] = struct{}{}
		score += keywordWeight(norm)
		matched = append(matched, kw)
	}

	return score, matched
}
