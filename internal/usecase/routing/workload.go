package routing

import (
	"context"
	"log/slog"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

// BalancePolicy controls how agents at or over capacity are treated.
type BalancePolicy string

const (
	// PolicySoft keeps overloaded agents in the ranking with a penalty.
	PolicySoft BalancePolicy = "soft"
	// PolicyHard excludes agents at or over capacity from the ranking.
	PolicyHard BalancePolicy = "hard"
)

// Penalty floor keeps an overloaded agent rankable under the soft policy.
const minWorkloadPenalty = 0.1

// WorkloadBalancer converts an agent's current load into a multiplicative
// penalty so busy agents rank below otherwise-equal idle ones. The snapshot
// is read-only and owned by the task store; missing or failing data is
// treated as zero load, never as a routing failure.
type WorkloadBalancer struct {
	snapshot domain.WorkloadSnapshot
	policy   BalancePolicy
	logger   *slog.Logger
}

// NewWorkloadBalancer creates a balancer over the given workload snapshot.
func NewWorkloadBalancer(snapshot domain.WorkloadSnapshot, policy BalancePolicy, logger *slog.Logger) *WorkloadBalancer {
	if policy != PolicyHard {
		policy = PolicySoft
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &WorkloadBalancer{snapshot: snapshot, policy: policy, logger: logger}
}

// Assess returns the penalty factor, the observed load, whether the agent is
// excluded under the hard policy, and whether the snapshot was unavailable.
//
// The penalty decreases strictly with the load/capacity ratio, so an agent at
// capacity always ranks below an otherwise-equal agent with spare capacity.
func (b *WorkloadBalancer) Assess(ctx context.Context, profile domain.AgentProfile) (penalty float64, load int, excluded, degraded bool) {
	if b == nil || b.snapshot == nil {
		return 1.0, 0, false, false
	}

	load, err := b.snapshot.ActiveCount(ctx, profile.ID)
	if err != nil {
		b.logger.Warn("workload snapshot unavailable, assuming zero load",
			"agent_id", profile.ID, "error", err)
		return 1.0, 0, false, true
	}
	if load <= 0 {
		return 1.0, 0, false, false
	}

	capacity := profile.MaxConcurrentTasks
	if capacity <= 0 {
		capacity = defaultMaxConcurrent
	}
	ratio := float64(load) / float64(capacity)

	if ratio >= 1 && b.policy == PolicyHard {
		return 0, load, true, false
	}

	penalty = 1.0 - 0.5*ratio
	if penalty < minWorkloadPenalty {
		penalty = minWorkloadPenalty
	}
	return penalty, load, false, false
}
