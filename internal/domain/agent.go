package domain

// AgentProfile is a catalog entry describing a named specialist profile the
// router can recommend for a task. Profiles are immutable once loaded; a
// catalog reload swaps the whole profile set, never individual entries.
type AgentProfile struct {
	ID                 string   `json:"id"                   yaml:"id"`
	DisplayName        string   `json:"display_name"         yaml:"display_name"`
	Description        string   `json:"description"          yaml:"description"`
	Keywords           []string `json:"keywords"             yaml:"keywords"`
	Specializations    []string `json:"specializations"      yaml:"specializations"`
	Tools              []string `json:"tools,omitempty"      yaml:"tools,omitempty"`
	MaxConcurrentTasks int      `json:"max_concurrent_tasks" yaml:"max_concurrent_tasks"`
}

// HasSpecialization reports whether the profile carries the given category tag.
func (p AgentProfile) HasSpecialization(category string) bool {
	for _, s := range p.Specializations {
		if s == category {
			return true
		}
	}
	return false
}

// TaskQuery is the transient input to a routing request.
type TaskQuery struct {
	// Text is the free-form task description (title + body concatenated).
	Text string
	// RequiredCategory restricts candidates to agents carrying the given
	// specialization tag. Empty means no filter.
	RequiredCategory string
	// MaxResults caps the number of suggestions returned. Zero means the
	// engine default.
	MaxResults int
	// MinConfidence is the confidence floor used for the low-confidence
	// flag. Zero means the engine default.
	MinConfidence float64
}

// AgentScore is the per-agent intermediate scoring result. All signal fields
// are computed independently per candidate so that scoring is pure and can
// run concurrently within one request.
type AgentScore struct {
	AgentID         string
	KeywordScore    float64 // raw lexical score, >= 0, unbounded above
	SemanticScore   float64 // cosine similarity in [0,1], 0 when disabled
	LearningWeight  float64 // multiplicative, neutral = 1.0
	WorkloadPenalty float64 // multiplicative, 1.0 = no load
	Combined        float64 // final comparable score in [0,1]
	CurrentLoad     int
	MatchedKeywords []string
}

// AgentSuggestion is one ranked routing recommendation.
type AgentSuggestion struct {
	AgentID         string   `json:"agent_id"`
	DisplayName     string   `json:"display_name"`
	Rank            int      `json:"rank"` // 1-based
	Confidence      float64  `json:"confidence"` // [0,1]
	Reasoning       string   `json:"reasoning"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// SuggestResult is the outcome of one routing request.
type SuggestResult struct {
	Suggestions []AgentSuggestion `json:"suggestions"`
	// Degraded is true when an optional signal source (embeddings, workload,
	// outcome history) was unavailable and the engine fell back to defaults.
	Degraded bool `json:"degraded"`
	// LowConfidence is true when no suggestion cleared the confidence floor.
	LowConfidence bool `json:"low_confidence"`
}
