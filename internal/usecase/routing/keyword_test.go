package routing

import (
	"reflect"
	"testing"
)

func TestTokenizeBasic(t *testing.T) {
	got := Tokenize("Design a REST API, fast!")
	want := []string{"design", "a", "rest", "api", "fast"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize("  ... !!! "); len(got) != 0 {
		t.Errorf("expected no tokens, got %v", got)
	}
}

func TestScoreKeywordsSingleWord(t *testing.T) {
	score, matched := ScoreKeywords(Tokenize("fix the api endpoint"), []string{"api", "database"})
	if score <= 0 {
		t.Fatalf("expected positive score, got %v", score)
	}
	if !reflect.DeepEqual(matched, []string{"api"}) {
		t.Errorf("matched = %v, want [api]", matched)
	}
}

func TestScoreKeywordsPhraseAdjacency(t *testing.T) {
	keywords := []string{"database design"}

	score, _ := ScoreKeywords(Tokenize("review the database design document"), keywords)
	if score <= 0 {
		t.Errorf("adjacent phrase should match, score = %v", score)
	}

	// The words appear, but not adjacent in order.
	score, matched := ScoreKeywords(Tokenize("design a database"), keywords)
	if score != 0 || matched != nil {
		t.Errorf("non-adjacent words must not match a phrase, score = %v matched = %v", score, matched)
	}
}

func TestScoreKeywordsCaseAndPunctuation(t *testing.T) {
	score, _ := ScoreKeywords(Tokenize("Query-Optimization needed ASAP"), []string{"query optimization"})
	if score <= 0 {
		t.Errorf("normalization should make the phrase match, score = %v", score)
	}
}

func TestScoreKeywordsDedup(t *testing.T) {
	once, _ := ScoreKeywords(Tokenize("api work"), []string{"api"})
	twice, _ := ScoreKeywords(Tokenize("api work"), []string{"api", "API", "  api "})
	if once != twice {
		t.Errorf("duplicate keywords must count once: %v != %v", once, twice)
	}
}

func TestKeywordWeightFavorsSpecificity(t *testing.T) {
	short := keywordWeight("sql")
	long := keywordWeight("query optimization")
	if long <= short {
		t.Errorf("longer phrase should outweigh short word: %v <= %v", long, short)
	}

	phrase := keywordWeight("database design")
	word := keywordWeight("database")
	if phrase <= word {
		t.Errorf("phrase should outweigh single word: %v <= %v", phrase, word)
	}
}

func TestScoreKeywordsEmptyInputs(t *testing.T) {
	if score, _ := ScoreKeywords(nil, []string{"api"}); score != 0 {
		t.Errorf("empty query should score 0, got %v", score)
	}
	if score, _ := ScoreKeywords(Tokenize("api"), nil); score != 0 {
		t.Errorf("empty keywords should score 0, got %v", score)
	}
}
