package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"cutagent/internal/config"
	"cutagent/internal/edl"
	"cutagent/internal/fileutil"
	"cutagent/internal/logging"
	"cutagent/internal/ops"
	"cutagent/internal/services"
	"cutagent/internal/store"
)

// Executor runs EDL documents against a set of tools.
type Executor struct {
	cfg         *config.Config
	tools       ops.Tools
	logger      *slog.Logger
	history     HistoryRecorder
	noOverwrite bool
	now         func() time.Time
	newRunID    func() string
}

// Option customizes an Executor.
type Option func(*Executor)

// WithHistory records every run that gets past parsing.
func WithHistory(recorder HistoryRecorder) Option {
	return func(e *Executor) {
		e.history = recorder
	}
}

// WithNoOverwrite refuses to replace an existing output file.
func WithNoOverwrite(enabled bool) Option {
	return func(e *Executor) {
		e.noOverwrite = enabled
	}
}

// New returns an Executor. cfg supplies the scratch root.
func New(cfg *config.Config, tools ops.Tools, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		cfg:      cfg,
		tools:    tools,
		logger:   logging.NewComponentLogger(logger, "engine"),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute parses raw and executes it.
func (e *Executor) Execute(ctx context.Context, raw []byte, progress ProgressFunc) (ops.Result, error) {
	doc, err := edl.ParseDocument(raw)
	if err != nil {
		return ops.Result{}, err
	}
	return e.execute(ctx, doc, fileutil.HashBytes(raw), progress)
}

// ExecuteDocument executes an already parsed document. The document is not
// modified.
func (e *Executor) ExecuteDocument(ctx context.Context, doc *edl.Document, progress ProgressFunc) (ops.Result, error) {
	return e.execute(ctx, doc, "", progress)
}

func (e *Executor) execute(ctx context.Context, doc *edl.Document, digest string, progress ProgressFunc) (result ops.Result, err error) {
	runID := e.newRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, e.logger)

	if len(doc.Operations) == 0 {
		return ops.Result{}, services.New(services.CodeInvalidEDL, "EDL has no operations", nil).
			WithRecovery("Add at least one operation to the EDL")
	}

	started := e.now()
	defer func() {
		e.recordRun(ctx, store.Run{
			ID:         runID,
			EDLSHA256:  digest,
			OutputPath: doc.Output.Path,
			OpCount:    len(doc.Operations),
			Warnings:   result.Warnings,
			StartedAt:  started,
		}, err)
	}()

	logger.Info("edl execution started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("operations", len(doc.Operations)),
		logging.String("output", doc.Output.Path),
		logging.String("codec", doc.Output.Codec),
	)

	lock, err := acquireOutputLock(doc.Output.Path)
	if err != nil {
		return ops.Result{}, err
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			logger.Warn("output lock not released", logging.Error(releaseErr))
		}
	}()

	if e.noOverwrite {
		if _, statErr := os.Stat(doc.Output.Path); statErr == nil {
			return ops.Result{}, services.New(services.CodeOutputAlreadyExists,
				"Output already exists: "+doc.Output.Path,
				map[string]any{"path": doc.Output.Path})
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return ops.Result{}, fmt.Errorf("stat output: %w", statErr)
		}
	}

	scratch, err := e.createScratch()
	if err != nil {
		return ops.Result{}, err
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			logger.Warn("scratch directory not removed",
				logging.String("scratch", scratch),
				logging.Error(rmErr))
		}
	}()

	r := &run{
		tools:   e.tools,
		doc:     doc,
		table:   edl.NewTable(doc.Inputs),
		scratch: scratch,
		codec:   doc.Output.Codec,
		logger:  e.logger,
	}

	var last ops.Result
	total := len(doc.Operations)
	for idx, op := range doc.Operations {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ops.Result{Warnings: r.warnings}, fmt.Errorf("execution cancelled before operation %d: %w", idx, ctxErr)
		}
		last, err = r.step(ctx, idx, total, op, progress)
		if err != nil {
			return ops.Result{Warnings: r.warnings}, err
		}
	}

	digestOut, err := fileutil.PublishVerified(last.OutputPath, doc.Output.Path)
	if err != nil {
		return ops.Result{Warnings: r.warnings}, services.Wrap(services.ErrExternalTool, "engine", "publish output",
			fmt.Sprintf("copy %s to %s", last.OutputPath, doc.Output.Path), err)
	}

	logger.Info("edl execution completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", doc.Output.Path),
		logging.Int64("size_bytes", digestOut.Size),
		logging.Int("warnings", len(r.warnings)),
		logging.Duration("elapsed", e.now().Sub(started)),
	)

	return ops.Result{
		Success:    true,
		OutputPath: doc.Output.Path,
		Duration:   last.Duration,
		Warnings:   r.warnings,
	}, nil
}

func (e *Executor) createScratch() (string, error) {
	root := e.cfg.ScratchRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "engine", "scratch", "create scratch root "+root, err)
	}
	dir, err := os.MkdirTemp(root, "cutagent_")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "engine", "scratch", "create scratch directory", err)
	}
	return dir, nil
}
