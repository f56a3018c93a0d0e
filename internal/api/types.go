package api

import (
	"cutagent/internal/store"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Tools         map[string]string `json:"tools,omitempty"`
}

// RunItem describes a recorded run in a transport-friendly format.
type RunItem struct {
	RunID      string   `json:"run_id"`
	EDLSHA256  string   `json:"edl_sha256"`
	OutputPath string   `json:"output_path"`
	Status     string   `json:"status"`
	ErrorCode  string   `json:"error_code,omitempty"`
	OpCount    int      `json:"op_count"`
	Warnings   []string `json:"warnings"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at,omitempty"`
}

// RunListResponse wraps a collection of runs.
type RunListResponse struct {
	Runs []RunItem `json:"runs"`
}

// FromRun converts a stored run into its API form.
func FromRun(run store.Run) RunItem {
	item := RunItem{
		RunID:      run.ID,
		EDLSHA256:  run.EDLSHA256,
		OutputPath: run.OutputPath,
		Status:     string(run.Status),
		ErrorCode:  run.ErrorCode,
		OpCount:    run.OpCount,
		Warnings:   run.Warnings,
		StartedAt:  run.StartedAt.UTC().Format(dateTimeFormat),
	}
	if item.Warnings == nil {
		item.Warnings = []string{}
	}
	if !run.FinishedAt.IsZero() {
		item.FinishedAt = run.FinishedAt.UTC().Format(dateTimeFormat)
	}
	return item
}

// FromRuns converts runs preserving order.
func FromRuns(runs []store.Run) []RunItem {
	items := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		items = append(items, FromRun(run))
	}
	return items
}
