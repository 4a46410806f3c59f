// Package history keeps the append-only task outcome log and serves the
// aggregated per-agent success rates the learning adjuster reads.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

// Store implements domain.OutcomeHistory and domain.OutcomeRecorder backed
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
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrOutcomeStore, err)
	}

	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrOutcomeStore, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrOutcomeStore, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// migrate creates the schema if it doesn't exist. Outcomes are append-only;
// there is no update path.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS outcomes (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_id        TEXT NOT NULL,
			task_id         TEXT NOT NULL,
			success         INTEGER NOT NULL,
			completion_secs REAL NOT NULL,
			recorded_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_outcomes_agent ON outcomes(agent_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Record implements domain.OutcomeRecorder.
func (s *Store) Record(ctx context.Context, agentID, taskID string, success bool, completionTime time.Duration) error {
	flag := 0
	if success {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (agent_id, task_id, success, completion_secs, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		agentID, taskID, flag, completionTime.Seconds(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", domain.ErrOutcomeStore, err)
	}
	return nil
}

// SuccessRate implements domain.OutcomeHistory. An agent with no recorded
// outcomes returns a zero sample size; the learning adjuster treats that as
// neutral.
func (s *Store) SuccessRate(ctx context.Context, agentID string) (domain.SuccessRate, error) {
	var (
		total     int
		successes int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(success), 0) FROM outcomes WHERE agent_id = ?`,
		agentID,
	).Scan(&total, &successes)
	if err != nil {
		return domain.SuccessRate{}, fmt.Errorf("%w: %v", domain.ErrHistoryUnavailable, err)
	}
	if total == 0 {
		return domain.SuccessRate{}, nil
	}
	return domain.SuccessRate{
		Rate:       float64(successes) / float64(total),
		SampleSize: total,
	}, nil
}

// Compact removes outcomes older than maxAge, keeping the log bounded.
func (s *Store) Compact(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `DELETE FROM outcomes WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: compact: %v", domain.ErrOutcomeStore, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 && s.logger != nil {
		s.logger.Info("outcome history compacted", "removed", n)
	}
	return n, nil
}

// Compile-time interface checks.
var (
	_ domain.OutcomeHistory  = (*Store)(nil)
	_ domain.OutcomeRecorder = (*Store)(nil)
)
