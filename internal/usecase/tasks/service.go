// Package tasks implements the CRM task service: create, assign and complete
// tasks, with routing suggestions attached at creation time. Routing is an
// assist, not a gate: a task whose routing fails is still created,
// unassigned.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/zaebee/agents-list-sub002/internal/domain"
	"github.com/zaebee/agents-list-sub002/internal/usecase/analysis"
)

// Suggester produces ranked agent suggestions for a task query.
type Suggester interface {
	Suggest(ctx context.Context, query domain.TaskQuery) (domain.SuggestResult, error)
}

// Service coordinates task persistence, analysis, routing and events.
type Service struct {
	repo     domain.TaskRepository
	outcomes domain.OutcomeRecorder
	engine   Suggester
	pm       *analysis.Gateway
	bus      domain.EventBus
	logger   *slog.Logger
	entropy  *ulid.MonotonicEntropy
}

// NewService creates a task service. outcomes and bus may be nil.
func NewService(repo domain.TaskRepository, outcomes domain.OutcomeRecorder, engine Suggester, pm *analysis.Gateway, bus domain.EventBus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:     repo,
		outcomes: outcomes,
		engine:   engine,
		pm:       pm,
		bus:      bus,
		logger:   logger,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// CreateResult bundles everything produced by one task creation.
type CreateResult struct {
	Task        domain.Task          `json:"task"`
	Analysis    domain.TaskAnalysis  `json:"analysis"`
	Routing     domain.SuggestResult `json:"routing"`
	RoutingErr  string               `json:"routing_error,omitempty"`
}

// Create stores a new task, classifies it and attaches routing suggestions.
// Routing failures are reported in the result, never returned as an error.
func (s *Service) Create(ctx context.Context, title, body, category string) (CreateResult, error) {
	if title == "" {
		return CreateResult{}, domain.NewDomainError("Tasks.Create", domain.ErrInvalidInput, "title is required")
	}

	now := time.Now().UTC()
	task := domain.Task{
		ID:        ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Title:     title,
		Body:      body,
		Status:    domain.TaskStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return CreateResult{}, domain.WrapOp("Tasks.Create", err)
	}

	result := CreateResult{Task: task}
	if s.pm != nil {
		result.Analysis = s.pm.Analyze(title, body)
	}

	s.publish(ctx, domain.Event{
		Type:      domain.EventTaskCreated,
		Timestamp: now,
		TaskID:    task.ID,
	})

	routing, err := s.engine.Suggest(ctx, domain.TaskQuery{
		Text:             title + " " + body,
		RequiredCategory: category,
	})
	if err != nil {
		// The task exists either way; surface the routing failure to the
		// caller in-band and leave the task unassigned.
		s.logger.Warn("routing failed, task left unassigned",
			"task_id", task.ID, "error", err, "code", domain.ErrorCodeOf(err))
		result.RoutingErr = err.Error()
		return result, nil
	}

	result.Routing = routing
	if routing.Degraded {
		s.publish(ctx, domain.Event{
			Type:      domain.EventRoutingDegraded,
			Timestamp: time.Now().UTC(),
			TaskID:    task.ID,
		})
	}
	if len(routing.Suggestions) > 0 {
		payload, _ := json.Marshal(routing.Suggestions)
		s.publish(ctx, domain.Event{
			Type:      domain.EventTaskRouted,
			Timestamp: time.Now().UTC(),
			TaskID:    task.ID,
			AgentID:   routing.Suggestions[0].AgentID,
			Payload:   payload,
		})
	}
	return result, nil
}

// Get returns a task by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.Task, error) {
	return s.repo.Get(ctx, id)
}

// List returns tasks filtered by status. An empty status means all tasks.
func (s *Service) List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	return s.repo.List(ctx, status, limit)
}

// Assign pins a task to an agent, incrementing that agent's live workload.
func (s *Service) Assign(ctx context.Context, taskID, agentID string) (domain.Task, error) {
	task, err := s.repo.Assign(ctx, taskID, agentID)
	if err != nil {
		return domain.Task{}, domain.WrapOp("Tasks.Assign", err)
	}

	s.publish(ctx, domain.Event{
		Type:      domain.EventTaskAssigned,
		Timestamp: time.Now().UTC(),
		TaskID:    task.ID,
		AgentID:   agentID,
	})
	return task, nil
}

// Complete closes a task and, when it was assigned, appends the outcome to
// the history log that feeds the learning adjuster. Outcome write failures
// are logged, not returned: completion must not depend on the history store.
func (s *Service) Complete(ctx context.Context, taskID string, success bool) (domain.Task, error) {
	task, err := s.repo.Complete(ctx, taskID)
	if err != nil {
		return domain.Task{}, domain.WrapOp("Tasks.Complete", err)
	}

	if task.AssignedAgent != "" && s.outcomes != nil {
		completionTime := task.UpdatedAt.Sub(task.CreatedAt)
		if err := s.outcomes.Record(ctx, task.AssignedAgent, task.ID, success, completionTime); err != nil {
			s.logger.Warn("outcome record failed",
				"task_id", task.ID, "agent_id", task.AssignedAgent, "error", err)
		}
	}

	s.publish(ctx, domain.Event{
		Type:      domain.EventTaskCompleted,
		Timestamp: time.Now().UTC(),
		TaskID:    task.ID,
		AgentID:   task.AssignedAgent,
	})
	return task, nil
}

func (s *Service) publish(ctx context.Context, event domain.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

// IsNotFound reports whether err denotes a missing task.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrTaskNotFound) || errors.Is(err, domain.ErrNotFound)
}
