package engine

import (
	"context"
	"errors"
	"time"

	"cutagent/internal/logging"
	"cutagent/internal/services"
	"cutagent/internal/store"
)

// HistoryRecorder persists finished runs. *store.Store satisfies it.
type HistoryRecorder interface {
	RecordRun(ctx context.Context, run store.Run) error
}

func runStatus(ctx context.Context, err error) (store.RunStatus, string) {
	if err == nil {
		return store.RunSucceeded, ""
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return store.RunCancelled, ""
	}
	code := services.CodeOf(err)
	if code == "" {
		code = services.CodeUnexpected
	}
	return store.RunFailed, string(code)
}

func (e *Executor) recordRun(ctx context.Context, run store.Run, runErr error) {
	if e.history == nil {
		return
	}
	run.Status, run.ErrorCode = runStatus(ctx, runErr)
	run.FinishedAt = e.now()

	// The run context may already be cancelled; the record must still land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.history.RecordRun(writeCtx, run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "failed to record run history", "history_record",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is missing from cutagent history"))
	}
}
