package domain

import (
	"context"
	"time"
)

// TaskStatus is the lifecycle state of a CRM task.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusAssigned  TaskStatus = "assigned"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is a CRM task. AssignedAgent is empty while the task is unassigned;
// an unassigned task is a valid, completable state. Routing is an assist,
// not a gate on task creation.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Body          string     `json:"body,omitempty"`
	Status        TaskStatus `json:"status"`
	AssignedAgent string     `json:"assigned_agent,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Complexity classifies how involved a task is expected to be.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
)

// Priority classifies task urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// TaskRepository persists CRM tasks and owns the live workload counters.
type TaskRepository interface {
	Create(ctx context.Context, task Task) error
	Get(ctx context.Context, id string) (Task, error)
	Assign(ctx context.Context, id, agentID string) (Task, error)
	Complete(ctx context.Context, id string) (Task, error)
	List(ctx context.Context, status TaskStatus, limit int) ([]Task, error)
}

// OutcomeRecorder is the write side of the outcome history log.
type OutcomeRecorder interface {
	Record(ctx context.Context, agentID, taskID string, success bool, completionTime time.Duration) error
}

// TaskAnalysis is the PM gateway's pre-routing classification of a task.
type TaskAnalysis struct {
	Complexity     Complexity `json:"complexity"`
	Priority       Priority   `json:"priority"`
	RiskNotes      []string   `json:"risk_notes,omitempty"`
	EstimatedHours float64    `json:"estimated_hours"`
}
