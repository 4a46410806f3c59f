package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

const tracerName = "agents-list/routing"

// Engine defaults.
const (
	defaultMaxResults    = 5
	defaultMinConfidence = 0.25
	defaultKeywordWeight = 0.7
)

// Weights blends the keyword and semantic signals. They are normalized to
// sum to 1 at scoring time; when semantic scoring is disabled for a request
// the keyword weight is forced to 1.
type Weights struct {
	Keyword  float64
	Semantic float64
}

// Options tunes the engine. Zero values select the documented defaults.
type Options struct {
	Weights       Weights
	MaxResults    int
	MinConfidence float64
	// GeneralistID names the fallback agent returned when no candidate
	// matches at all. Empty disables the fallback.
	GeneralistID string
}

// Engine combines the keyword scorer, semantic scorer, learning adjuster and
// workload balancer into ranked agent suggestions. Scoring per candidate is
// pure over the pinned snapshots, so candidates are evaluated concurrently
// within a request without locks.
type Engine struct {
	catalog  *Catalog
	semantic *SemanticScorer   // nil = keyword-only
	learning *LearningAdjuster // nil = neutral weights
	balancer *WorkloadBalancer // nil = no workload signal
	opts     Options
	logger   *slog.Logger
}

// NewEngine creates a routing engine. Only catalog is required; the optional
// collaborators may be nil and the corresponding signal defaults to neutral.
func NewEngine(catalog *Catalog, semantic *SemanticScorer, learning *LearningAdjuster, balancer *WorkloadBalancer, opts Options, logger *slog.Logger) *Engine {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConfidence
	}
	if opts.Weights.Keyword <= 0 {
		opts.Weights = Weights{Keyword: defaultKeywordWeight, Semantic: 1 - defaultKeywordWeight}
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Engine{
		catalog:  catalog,
		semantic: semantic,
		learning: learning,
		balancer: balancer,
		opts:     opts,
		logger:   logger,
	}
}

// candidate pairs a profile with its catalog declaration index, the final
// deterministic tie-break.
type candidate struct {
	profile   domain.AgentProfile
	declIndex int
}

// Suggest produces the ranked agent suggestions for the query.
//
// Failure semantics: an empty or missing catalog fails fast with
// ErrCatalogUnavailable; a category filter that matches nothing fails with
// ErrNoAgentsInCategory. Embedding, workload and history failures never fail
// the request; the affected signal defaults to neutral and the result is
// flagged degraded.
func (e *Engine) Suggest(ctx context.Context, query domain.TaskQuery) (domain.SuggestResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Engine.Suggest")
	defer span.End()

	snap := e.catalog.Snapshot()
	if snap == nil || snap.Len() == 0 {
		return domain.SuggestResult{}, domain.NewDomainError("Engine.Suggest", domain.ErrCatalogUnavailable, "")
	}

	candidates := filterCandidates(snap, query.RequiredCategory)
	if len(candidates) == 0 {
		return domain.SuggestResult{}, domain.NewDomainError("Engine.Suggest", domain.ErrNoAgentsInCategory,
			fmt.Sprintf("category %q", query.RequiredCategory))
	}
	span.SetAttributes(attribute.Int("routing.candidates", len(candidates)))

	queryTokens := Tokenize(query.Text)
	if len(queryTokens) == 0 {
		// An empty query is a valid request with nothing to rank on.
		return domain.SuggestResult{LowConfidence: true}, nil
	}

	var degraded atomic.Bool

	// Semantic is active only when the snapshot carries profile embeddings
	// and the provider answers within its deadline. A configured scorer
	// without profile vectors means the embedding warmup failed; scoring
	// falls back to keyword-only and the result is flagged degraded.
	var queryVec []float32
	if e.semantic != nil {
		if !snap.HasEmbeddings() {
			degraded.Store(true)
		} else {
			queryVec = e.semantic.QueryVector(ctx, query.Text)
			if queryVec == nil {
				degraded.Store(true)
			}
		}
	}

	scores := make([]domain.AgentScore, len(candidates))
	excluded := make([]bool, len(candidates))

	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand candidate) {
			defer wg.Done()
			sc := domain.AgentScore{
				AgentID:         cand.profile.ID,
				LearningWeight:  neutralLearningWeight,
				WorkloadPenalty: 1.0,
			}

			sc.KeywordScore, sc.MatchedKeywords = ScoreKeywords(queryTokens, cand.profile.Keywords)

			if queryVec != nil {
				sc.SemanticScore = CosineSimilarity(queryVec, snap.Embedding(cand.declIndex))
			}

			if e.learning != nil {
				w, deg := e.learning.Weight(ctx, cand.profile.ID)
				sc.LearningWeight = w
				if deg {
					degraded.Store(true)
				}
			}

			if e.balancer != nil {
				penalty, load, excl, deg := e.balancer.Assess(ctx, cand.profile)
				sc.WorkloadPenalty = penalty
				sc.CurrentLoad = load
				excluded[i] = excl
				if deg {
					degraded.Store(true)
				}
			}

			scores[i] = sc
		}(i, cand)
	}
	wg.Wait()

	semanticActive := queryVec != nil
	combine(scores, excluded, e.opts.Weights, semanticActive)

	ranked := rank(candidates, scores, excluded)

	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = e.opts.MaxResults
	}
	minConfidence := query.MinConfidence
	if minConfidence <= 0 {
		minConfidence = e.opts.MinConfidence
	}

	result := e.buildResult(snap, ranked, maxResults, minConfidence, semanticActive)
	result.Degraded = degraded.Load()

	span.SetAttributes(
		attribute.Bool("routing.degraded", result.Degraded),
		attribute.Bool("routing.low_confidence", result.LowConfidence),
		attribute.Int("routing.suggestions", len(result.Suggestions)),
	)
	e.logger.Debug("routing complete",
		"candidates", len(candidates),
		"suggestions", len(result.Suggestions),
		"degraded", result.Degraded,
		"low_confidence", result.LowConfidence,
	)
	return result, nil
}

// filterCandidates applies the optional category filter, preserving catalog
// declaration order.
func filterCandidates(snap *Snapshot, category string) []candidate {
	all := snap.All()
	candidates := make([]candidate, 0, len(all))
	for i, p := range all {
		if category != "" && !p.HasSpecialization(category) {
			continue
		}
		candidates = append(candidates, candidate{profile: p, declIndex: i})
	}
	return candidates
}

// combine folds the per-signal scores into one comparable score per
// candidate. The keyword score is normalized against the per-request maximum
// rather than a fixed global divisor, so a short precise match is not
// penalized for being short.
func combine(scores []domain.AgentScore, excluded []bool, w Weights, semanticActive bool) {
	var maxRaw float64
	for i := range scores {
		if !excluded[i] && scores[i].KeywordScore > maxRaw {
			maxRaw = scores[i].KeywordScore
		}
	}

	wk, ws := 1.0, 0.0
	if semanticActive {
		total := w.Keyword + w.Semantic
		if total <= 0 {
			wk, ws = defaultKeywordWeight, 1-defaultKeywordWeight
		} else {
			wk, ws = w.Keyword/total, w.Semantic/total
		}
	}

	for i := range scores {
		if excluded[i] {
			scores[i].Combined = 0
			continue
		}
		kwNorm := 0.0
		if maxRaw > 0 {
			kwNorm = scores[i].KeywordScore / maxRaw
		}
		combined := (kwNorm*wk + scores[i].SemanticScore*ws) *
			scores[i].LearningWeight * scores[i].WorkloadPenalty
		if combined > 1 {
			combined = 1
		}
		if combined < 0 {
			combined = 0
		}
		scores[i].Combined = combined
	}
}

// scoredCandidate is one rankable entry.
type scoredCandidate struct {
	candidate
	score domain.AgentScore
}

// rank orders candidates by combined score with the documented deterministic
// tie-break: raw keyword score, then lower current load, then catalog
// declaration order.
func rank(candidates []candidate, scores []domain.AgentScore, excluded []bool) []scoredCandidate {
	ranked := make([]scoredCandidate, 0, len(candidates))
	for i := range candidates {
		if excluded[i] {
			continue
		}
		ranked = append(ranked, scoredCandidate{candidate: candidates[i], score: scores[i]})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		sa, sb := ranked[a].score, ranked[b].score
		if sa.Combined != sb.Combined {
			return sa.Combined > sb.Combined
		}
		if sa.KeywordScore != sb.KeywordScore {
			return sa.KeywordScore > sb.KeywordScore
		}
		if sa.CurrentLoad != sb.CurrentLoad {
			return sa.CurrentLoad < sb.CurrentLoad
		}
		return ranked[a].declIndex < ranked[b].declIndex
	})
	return ranked
}

// buildResult maps the ranked candidates onto suggestions, applying the
// generalist fallback when nothing matched at all.
func (e *Engine) buildResult(snap *Snapshot, ranked []scoredCandidate, maxResults int, minConfidence float64, semanticActive bool) domain.SuggestResult {
	anyMatch := false
	for _, rc := range ranked {
		if rc.score.Combined > 0 {
			anyMatch = true
			break
		}
	}

	if !anyMatch {
		if e.opts.GeneralistID != "" {
			if profile, err := snap.Get(e.opts.GeneralistID); err == nil {
				return domain.SuggestResult{
					Suggestions: []domain.AgentSuggestion{{
						AgentID:     profile.ID,
						DisplayName: profile.DisplayName,
						Rank:        1,
						Confidence:  0,
						Reasoning:   "no keyword or semantic match; generalist fallback",
					}},
					LowConfidence: true,
				}
			}
		}
		return domain.SuggestResult{LowConfidence: true}
	}

	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	suggestions := make([]domain.AgentSuggestion, len(ranked))
	lowConfidence := true
	for i, rc := range ranked {
		if rc.score.Combined >= minConfidence {
			lowConfidence = false
		}
		suggestions[i] = domain.AgentSuggestion{
			AgentID:         rc.profile.ID,
			DisplayName:     rc.profile.DisplayName,
			Rank:            i + 1,
			Confidence:      rc.score.Combined,
			Reasoning:       reasoning(rc.score, rc.profile, semanticActive),
			MatchedKeywords: rc.score.MatchedKeywords,
		}
	}

	return domain.SuggestResult{Suggestions: suggestions, LowConfidence: lowConfidence}
}

// reasoning renders a human-readable explanation of one suggestion.
func reasoning(sc domain.AgentScore, profile domain.AgentProfile, semanticActive bool) string {
	var parts []string

	if len(sc.MatchedKeywords) > 0 {
		parts = append(parts, "matched keywords: "+strings.Join(sc.MatchedKeywords, ", "))
	} else {
		parts = append(parts, "no keyword matches")
	}

	if semanticActive {
		parts = append(parts, fmt.Sprintf("semantic similarity %s (%.2f)",
			similarityBand(sc.SemanticScore), sc.SemanticScore))
	}

	if sc.CurrentLoad > 0 {
		parts = append(parts, fmt.Sprintf("workload %d/%d active",
			sc.CurrentLoad, profile.MaxConcurrentTasks))
	} else {
		parts = append(parts, "no active tasks")
	}

	if sc.LearningWeight != neutralLearningWeight {
		parts = append(parts, fmt.Sprintf("history weight %.2f", sc.LearningWeight))
	}

	return strings.Join(parts, "; ")
}

func similarityBand(sim float64) string {
	switch {
	case sim >= 0.75:
		return "high"
	case sim >= 0.5:
		return "moderate"
	case sim > 0:
		return "weak"
	default:
		return "none"
	}
}
