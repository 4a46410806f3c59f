// Package taskstore persists CRM tasks in SQLite and owns the live per-agent
// workload counters the routing engine reads.
package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

// Store implements domain.TaskRepository and domain.WorkloadSnapshot backed
// by SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) a SQLite database at dbPath, runs migrations, and
// returns a ready Store.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrTaskStore, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrTaskStore, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrTaskStore, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// migrate creates the schema if it doesn't exist.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS tasks (
			id             TEXT PRIMARY KEY,
			title          TEXT NOT NULL,
			body           TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL,
			assigned_agent TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
		CREATE INDEX IF NOT EXISTS idx_tasks_agent  ON tasks(assigned_agent, status);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Create implements domain.TaskRepository.
func (s *Store) Create(ctx context.Context, task domain.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, body, status, assigned_agent, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Body, string(task.Status), task.AssignedAgent,
		task.CreatedAt.Format(time.RFC3339), task.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", domain.ErrTaskStore, err)
	}
	return nil
}

// Get implements domain.TaskRepository.
func (s *Store) Get(ctx context.Context, id string) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, body, status, assigned_agent, created_at, updated_at
		 FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// Assign implements domain.TaskRepository. Completed tasks cannot be
// reassigned.
func (s *Store) Assign(ctx context.Context, id, agentID string) (domain.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if task.Status == domain.TaskStatusCompleted {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskCompleted, id)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, assigned_agent = ?, updated_at = ? WHERE id = ?`,
		string(domain.TaskStatusAssigned), agentID, now.Format(time.RFC3339), id,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%w: assign: %v", domain.ErrTaskStore, err)
	}

	task.Status = domain.TaskStatusAssigned
	task.AssignedAgent = agentID
	task.UpdatedAt = now
	return task, nil
}

// Complete implements domain.TaskRepository.
func (s *Store) Complete(ctx context.Context, id string) (domain.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if task.Status == domain.TaskStatusCompleted {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskCompleted, id)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(domain.TaskStatusCompleted), now.Format(time.RFC3339), id,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%w: complete: %v", domain.ErrTaskStore, err)
	}

	task.Status = domain.TaskStatusCompleted
	task.UpdatedAt = now
	return task, nil
}

// List implements domain.TaskRepository. An empty status returns all tasks.
func (s *Store) List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, title, body, status, assigned_agent, created_at, updated_at
			 FROM tasks ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, title, body, status, assigned_agent, created_at, updated_at
			 FROM tasks WHERE status = ? ORDER BY created_at DESC LIMIT ?`,
			string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", domain.ErrTaskStore, err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ActiveCount implements domain.WorkloadSnapshot: the number of tasks
// currently assigned to the agent.
func (s *Store) ActiveCount(ctx context.Context, agentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE assigned_agent = ? AND status = ?`,
		agentID, string(domain.TaskStatusAssigned),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrWorkloadUnavailable, err)
	}
	return count, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.Task, error) {
	var (
		task       domain.Task
		status     string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&task.ID, &task.Title, &task.Body, &status, &task.AssignedAgent, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("%w: scan: %v", domain.ErrTaskStore, err)
	}

	task.Status = domain.TaskStatus(status)
	if task.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Task{}, fmt.Errorf("%w: parse created_at: %v", domain.ErrTaskStore, err)
	}
	if task.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.Task{}, fmt.Errorf("%w: parse updated_at: %v", domain.ErrTaskStore, err)
	}
	return task, nil
}

// Compile-time interface checks.
var (
	_ domain.TaskRepository   = (*Store)(nil)
	_ domain.WorkloadSnapshot = (*Store)(nil)
)
