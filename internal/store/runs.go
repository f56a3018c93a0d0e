package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RunStatus is the terminal state of an EDL execution.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Run is one recorded EDL execution.
type Run struct {
	ID         string    `json:"run_id"`
	EDLSHA256  string    `json:"edl_sha256"`
	OutputPath string    `json:"output_path"`
	Status     RunStatus `json:"status"`
	ErrorCode  string    `json:"error_code,omitempty"`
	OpCount    int       `json:"op_count"`
	Warnings   []string  `json:"warnings"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// DefaultRunLimit caps ListRuns when no limit is given.
const DefaultRunLimit = 20

// RecordRun inserts or replaces a run record.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	payload, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("encode run warnings: %w", err)
	}
	var finished any
	if !run.FinishedAt.IsZero() {
		finished = formatTime(run.FinishedAt)
	}
	var code any
	if run.ErrorCode != "" {
		code = run.ErrorCode
	}
	err = s.exec(ctx, `INSERT OR REPLACE INTO runs
		(run_id, edl_sha256, output_path, status, error_code, op_count, warnings_json, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.EDLSHA256, run.OutputPath, string(run.Status), code, run.OpCount,
		string(payload), formatTime(run.StartedAt), finished)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, edl_sha256, output_path, status, error_code,
		op_count, warnings_json, started_at, finished_at
		FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			status   string
			code     sql.NullString
			warnings string
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.EDLSHA256, &run.OutputPath, &status, &code,
			&run.OpCount, &warnings, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = RunStatus(status)
		run.ErrorCode = code.String
		if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings for run %s: %w", run.ID, err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			run.FinishedAt = parseTime(finished.String)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
