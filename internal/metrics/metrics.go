package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Execution records metadata for a single generation call.
type Execution struct {
	Mode      string
	Model     string
	Outcome   string
	LatencyMS int64
	Timestamp time.Time
}

// Outcome values for Execution.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Store handles persistence of generation metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, e Execution) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO generation_metrics (mode, model, outcome, latency_ms, timestamp) VALUES (?, ?, ?, ?, ?)",
		e.Mode, e.Model, e.Outcome, e.LatencyMS, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}
	return nil
}

// Recent returns the last n executions, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT mode, model, outcome, latency_ms, timestamp FROM generation_metrics ORDER BY timestamp DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.Mode, &e.Model, &e.Outcome, &e.LatencyMS, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		executions = append(executions, e)
	}
	return executions, rows.Err()
}

// Cleanup removes records older than the given number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, "DELETE FROM generation_metrics WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}
