package routing

import (
	"context"
	"log/slog"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

// Learning adjuster defaults. The weight band is deliberately narrow so that
// history can influence ranking but never override an overwhelmingly better
// keyword or semantic match.
const (
	defaultLearningFloor   = 0.7
	defaultLearningCeil    = 1.3
	defaultMinSampleSize   = 5
	neutralLearningWeight  = 1.0
)

// LearningAdjuster converts an agent's aggregated historical success rate
// into a bounded multiplicative weight.
type LearningAdjuster struct {
	history    domain.OutcomeHistory
	floor      float64
	ceil       float64
	minSamples int
	logger     *slog.Logger
}

// NewLearningAdjuster creates an adjuster over the given history store.
// Zero-valued bounds select the defaults.
func NewLearningAdjuster(history domain.OutcomeHistory, floor, ceil float64, minSamples int, logger *slog.Logger) *LearningAdjuster {
	if floor <= 0 {
		floor = defaultLearningFloor
	}
	if ceil <= floor {
		ceil = defaultLearningCeil
	}
	if minSamples <= 0 {
		minSamples = defaultMinSampleSize
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &LearningAdjuster{
		history:    history,
		floor:      floor,
		ceil:       ceil,
		minSamples: minSamples,
		logger:     logger,
	}
}

// Weight returns the multiplicative learning weight for the agent and whether
// the history collaborator was unavailable. A success rate of 0.5 maps to the
// neutral weight 1.0; samples below the minimum sample size stay neutral so a
// statistically insignificant history cannot cause rank inversions.
func (a *LearningAdjuster) Weight(ctx context.Context, agentID string) (float64, bool) {
	if a == nil || a.history == nil {
		return neutralLearningWeight, false
	}

	sr, err := a.history.SuccessRate(ctx, agentID)
	if err != nil {
		a.logger.Warn("outcome history unavailable, using neutral weight",
			"agent_id", agentID, "error", err)
		return neutralLearningWeight, true
	}
	if sr.SampleSize < a.minSamples {
		return neutralLearningWeight, false
	}

	rate := sr.Rate
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}

	// Linear map: rate 0 → floor, rate 1 → ceil, rate 0.5 → midpoint.
	return a.floor + rate*(a.ceil-a.floor), false
}
