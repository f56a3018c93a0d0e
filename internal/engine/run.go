package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cutagent/internal/edl"
	"cutagent/internal/logging"
	"cutagent/internal/ops"
	"cutagent/internal/services"
)

// run is the state of one execution.
type run struct {
	tools    ops.Tools
	doc      *edl.Document
	table    *edl.Table
	scratch  string
	codec    string
	logger   *slog.Logger
	warnings []string
}

// step executes one operation with progress reporting and records its output.
func (r *run) step(ctx context.Context, idx, total int, op edl.Operation, progress ProgressFunc) (ops.Result, error) {
	kind := string(op.Kind())
	opCtx := services.WithOperation(ctx, kind, idx)
	logger := logging.WithContext(opCtx, r.logger)

	if progress != nil {
		progress(idx+1, total, kind, StatusRunning)
	}
	logger.Debug("operation started", logging.String(logging.FieldEventType, "op_start"))
	start := time.Now()

	res, err := r.dispatch(opCtx, idx, op)
	if err != nil {
		logger.Error("operation failed",
			logging.String(logging.FieldEventType, "op_failure"),
			logging.String(logging.FieldErrorCode, string(services.CodeOf(err))),
			logging.Error(err))
		return ops.Result{}, err
	}

	if r.table.Record(idx, op.OpID(), res.OutputPath) {
		msg := fmt.Sprintf("Duplicate operation id %q; $%s now refers to operation %d", op.OpID(), op.OpID(), idx)
		r.warnings = append(r.warnings, msg)
		logging.WarnWithContext(logger, "duplicate operation id", "duplicate_op_id",
			logging.String("id", op.OpID()),
			logging.String(logging.FieldImpact, "earlier operation is no longer addressable by name"))
	}
	r.warnings = append(r.warnings, res.Warnings...)

	logger.Info("operation completed",
		logging.String(logging.FieldEventType, "op_complete"),
		logging.String("output", res.OutputPath),
		logging.Int("warnings", len(res.Warnings)),
		logging.Duration("elapsed", time.Since(start)))
	if progress != nil {
		progress(idx+1, total, kind, StatusDone)
	}
	return res, nil
}

func (r *run) resolve(value string) (string, error) {
	res, err := r.table.Resolve(value)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

func (r *run) resolveAll(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		path, err := r.resolve(v)
		if err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

// outputPath names the scratch artifact of operation idx.
func (r *run) outputPath(idx int, ext string) string {
	return filepath.Join(r.scratch, fmt.Sprintf("op_%03d%s", idx, ext))
}

func (r *run) outputFor(idx int, source string) string {
	return r.outputPath(idx, ops.ExtensionOf(source))
}

// dispatch runs op. Every edl kind has a case; the default is unreachable for
// documents produced by edl.ParseDocument.
func (r *run) dispatch(ctx context.Context, idx int, op edl.Operation) (ops.Result, error) {
	switch op := op.(type) {
	case edl.Trim:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.Trim(ctx, r.tools, ops.TrimRequest{
			Source: source,
			Start:  op.Start,
			End:    op.End,
			Output: r.outputFor(idx, source),
			Codec:  r.codec,
		})

	case edl.Split:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		prefix := filepath.Join(r.scratch, fmt.Sprintf("op_%03d", idx))
		segments, err := ops.Split(ctx, r.tools, ops.SplitRequest{
			Source: source,
			Points: op.Points,
			Prefix: prefix,
			Codec:  r.codec,
		})
		if err != nil {
			return ops.Result{}, err
		}
		if len(segments) == 0 {
			return ops.Result{Success: true, OutputPath: prefix}, nil
		}
		// Only the first segment is addressable by later operations.
		return segments[0], nil

	case edl.Concat:
		segments, err := r.resolveAll(op.Segments)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.Concat(ctx, r.tools, ops.ConcatRequest{
			Segments:           segments,
			Output:             r.outputPath(idx, firstExtension(segments)),
			Codec:              r.codec,
			Transition:         op.Transition,
			TransitionDuration: op.TransitionSeconds(),
			ListDir:            r.scratch,
		})

	case edl.Reorder:
		segments, err := r.resolveAll(op.Segments)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.Reorder(ctx, r.tools, ops.ReorderRequest{
			Segments: segments,
			Order:    op.Order,
			Output:   r.outputPath(idx, firstExtension(segments)),
			Codec:    r.codec,
			ListDir:  r.scratch,
		})

	case edl.Extract:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		ext := ops.ExtensionOf(source)
		if op.Stream == edl.StreamAudio {
			ext = ".aac"
		}
		return ops.Extract(ctx, r.tools, ops.ExtractRequest{
			Source: source,
			Stream: op.Stream,
			Output: r.outputPath(idx, ext),
		})

	case edl.Fade:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		output := r.outputFor(idx, source)
		if op.Output != nil && *op.Output != "" {
			output = *op.Output
		}
		return ops.Fade(ctx, r.tools, ops.FadeRequest{
			Source:  source,
			Output:  output,
			FadeIn:  op.FadeIn,
			FadeOut: op.FadeOut,
			Codec:   r.codec,
		})

	case edl.Speed:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.Speed(ctx, r.tools, ops.SpeedRequest{
			Source: source,
			Output: r.outputFor(idx, source),
			Factor: op.Factor,
			Codec:  r.codec,
		})

	case edl.MixAudio:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		audio, err := r.resolve(op.Audio)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.Mix(ctx, r.tools, ops.MixRequest{
			Source:   source,
			Audio:    audio,
			Output:   r.outputFor(idx, source),
			MixLevel: op.MixLevel,
			Codec:    r.codec,
		})

	case edl.Volume:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.Volume(ctx, r.tools, ops.VolumeRequest{
			Source: source,
			Output: r.outputFor(idx, source),
			GainDB: op.GainDB,
			Codec:  r.codec,
		})

	case edl.ReplaceAudio:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		audio, err := r.resolve(op.Audio)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.ReplaceAudio(ctx, r.tools, ops.ReplaceAudioRequest{
			Source: source,
			Audio:  audio,
			Output: r.outputFor(idx, source),
			Codec:  r.codec,
		})

	case edl.Normalize:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.Normalize(ctx, r.tools, ops.NormalizeRequest{
			Source:       source,
			Output:       r.outputFor(idx, source),
			TargetLUFS:   op.TargetLUFS,
			TruePeakDBTP: op.TruePeakDBTP,
			Codec:        r.codec,
		})

	case edl.Text:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		return ops.Text(ctx, r.tools, ops.TextRequest{
			Source:  source,
			Entries: op.Entries,
			Output:  r.outputFor(idx, source),
			Codec:   r.codec,
		})

	case edl.Animate:
		source, err := r.resolve(op.Source)
		if err != nil {
			return ops.Result{}, err
		}
		resolved := op.Clone()
		for i := range resolved.Layers {
			layer := &resolved.Layers[i]
			if layer.Type != edl.LayerImage || layer.Path == "" {
				continue
			}
			if layer.Path, err = r.resolve(layer.Path); err != nil {
				return ops.Result{}, err
			}
		}
		return ops.Animate(ctx, r.tools, ops.AnimateRequest{
			Source: source,
			Layers: resolved.Layers,
			FPS:    resolved.FPS,
			Output: r.outputFor(idx, source),
			Codec:  r.codec,
		})

	default:
		return ops.Result{}, services.New(services.CodeInvalidEDL,
			fmt.Sprintf("Unsupported operation at index %d: %s", idx, op.Kind()),
			map[string]any{"operation_index": idx, "op": string(op.Kind())}).
			WithRecovery("Use one of: " + strings.Join(edl.KindNames(), ", "))
	}
}

func firstExtension(segments []string) string {
	if len(segments) == 0 {
		return ops.DefaultExtension
	}
	return ops.ExtensionOf(segments[0])
}
