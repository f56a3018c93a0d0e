package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cutagent/internal/edl"
	"cutagent/internal/media/ffprobe"
	"cutagent/internal/services"
)

// ConcatRequest joins Segments in order.
type ConcatRequest struct {
	Segments           []string
	Output             string
	Codec              string
	Transition         *string
	TransitionDuration float64
	// ListDir holds the temporary concat list; empty means the OS temp dir.
	ListDir string
}

// Concat joins segments with the concat demuxer (stream copy), the concat
// filter (re-encode) or an xfade chain (crossfade).
func Concat(ctx context.Context, tools Tools, req ConcatRequest) (Result, error) {
	if err := CheckSegments(edl.KindConcat, req.Segments); err != nil {
		return Result{}, err
	}
	if req.Transition != nil {
		if err := CheckTransition(req.Transition, req.TransitionDuration, len(req.Segments)); err != nil {
			return Result{}, err
		}
		return crossfade(ctx, tools, req)
	}
	if req.Codec == "" || req.Codec == edl.DefaultCodec {
		return concatDemuxer(ctx, tools, req)
	}
	if err := tools.Encode(ctx, ConcatFilterArgs(req.Segments, req.Output, req.Codec)); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output}, nil
}

func concatDemuxer(ctx context.Context, tools Tools, req ConcatRequest) (Result, error) {
	list, err := os.CreateTemp(req.ListDir, "concat_*.txt")
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ops", "concat list", "create concat list", err)
	}
	listPath := list.Name()
	defer os.Remove(listPath)

	body, err := ConcatList(req.Segments)
	if err != nil {
		list.Close()
		return Result{}, err
	}
	if _, err := list.WriteString(body); err != nil {
		list.Close()
		return Result{}, fmt.Errorf("write concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		return Result{}, fmt.Errorf("close concat list: %w", err)
	}

	if err := tools.Encode(ctx, ConcatDemuxerArgs(listPath, req.Output)); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output}, nil
}

// ConcatList renders the concat demuxer list for segments using absolute paths.
func ConcatList(segments []string) (string, error) {
	var b strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", seg, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return b.String(), nil
}

// ConcatDemuxerArgs builds the lossless concat invocation.
func ConcatDemuxerArgs(listPath, output string) []string {
	return []string{"-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", output}
}

// ConcatFilterArgs builds the re-encoding concat filter invocation.
func ConcatFilterArgs(segments []string, output, codec string) []string {
	args := inputArgs(segments)
	var pads strings.Builder
	for i := range segments {
		fmt.Fprintf(&pads, "[%d:v:0][%d:a:0]", i, i)
	}
	graph := fmt.Sprintf("%sconcat=n=%d:v=1:a=1[outv][outa]", pads.String(), len(segments))
	return append(args,
		"-filter_complex", graph,
		"-map", "[outv]", "-map", "[outa]",
		"-c:v", codec,
		output,
	)
}

func inputArgs(paths []string) []string {
	args := make([]string, 0, 2*len(paths))
	for _, p := range paths {
		args = append(args, "-i", p)
	}
	return args
}

func crossfade(ctx context.Context, tools Tools, req ConcatRequest) (Result, error) {
	infos := make([]ffprobe.Info, 0, len(req.Segments))
	for i, seg := range req.Segments {
		info, err := tools.Probe(ctx, seg)
		if err != nil {
			return Result{}, err
		}
		if err := CheckCrossfadeSegment(i, info.Duration, req.TransitionDuration); err != nil {
			return Result{}, err
		}
		infos = append(infos, info)
	}

	plan := PlanCrossfade(infos, req.TransitionDuration)
	var warnings []string
	if plan.Scale {
		warnings = append(warnings, fmt.Sprintf("Segments have different resolutions; scaled and padded to %dx%d", plan.Width, plan.Height))
	}
	if err := tools.Encode(ctx, CrossfadeArgs(req.Segments, plan, req.Output, req.Codec)); err != nil {
		return Result{}, err
	}
	return Result{
		Success:    true,
		OutputPath: req.Output,
		Duration:   DurationOf(plan.Duration),
		Warnings:   warnings,
	}, nil
}

// CrossfadePlan is the probed layout of an xfade chain.
type CrossfadePlan struct {
	Durations  []float64
	Transition float64
	FPS        float64
	Audio      bool
	Scale      bool
	Width      int
	Height     int
	Duration   float64
}

// PlanCrossfade derives frame rate, canvas and audio handling from segment probes.
// Audio is crossfaded only when every segment has it; mismatched resolutions
// are letterboxed onto the largest width and height.
func PlanCrossfade(infos []ffprobe.Info, transition float64) CrossfadePlan {
	plan := CrossfadePlan{Transition: transition, FPS: 30, Audio: true}
	if v, ok := infos[0].VideoStream(); ok && v.FPS > 0 {
		plan.FPS = v.FPS
	}
	type res struct{ w, h int }
	seen := make(map[res]bool)
	for _, info := range infos {
		plan.Durations = append(plan.Durations, info.Duration)
		plan.Duration += info.Duration
		if !info.HasAudio() {
			plan.Audio = false
		}
		w, h := info.Resolution()
		seen[res{w, h}] = true
		plan.Width = max(plan.Width, w)
		plan.Height = max(plan.Height, h)
	}
	plan.Duration -= float64(len(infos)-1) * transition
	plan.Scale = len(seen) > 1 && plan.Width > 0 && plan.Height > 0
	return plan
}

// CrossfadeArgs builds the xfade/acrossfade invocation for plan.
func CrossfadeArgs(segments []string, plan CrossfadePlan, output, codec string) []string {
	args := inputArgs(segments)
	td := num(plan.Transition)

	var filters []string
	for i := range segments {
		v := fmt.Sprintf("[%d:v]setpts=PTS-STARTPTS,fps=%s,format=yuv420p", i, num(plan.FPS))
		if plan.Scale {
			v += fmt.Sprintf(",scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
				plan.Width, plan.Height, plan.Width, plan.Height)
		}
		filters = append(filters, fmt.Sprintf("%s[vsrc%d]", v, i))
		if plan.Audio {
			filters = append(filters, fmt.Sprintf("[%d:a]asetpts=PTS-STARTPTS[asrc%d]", i, i))
		}
	}

	running := plan.Durations[0]
	prevV, prevA := "vsrc0", "asrc0"
	for i := 1; i < len(segments); i++ {
		offset := max(0, running-plan.Transition)
		outV := fmt.Sprintf("vxf%d", i)
		filters = append(filters, fmt.Sprintf("[%s][vsrc%d]xfade=transition=fade:duration=%s:offset=%s[%s]",
			prevV, i, td, num(offset), outV))
		if plan.Audio {
			outA := fmt.Sprintf("axf%d", i)
			filters = append(filters, fmt.Sprintf("[%s][asrc%d]acrossfade=d=%s[%s]", prevA, i, td, outA))
			prevA = outA
		}
		running += plan.Durations[i] - plan.Transition
		prevV = outV
	}

	args = append(args, "-filter_complex", strings.Join(filters, ";"), "-map", "["+prevV+"]")
	if plan.Audio {
		args = append(args, "-map", "["+prevA+"]", "-c:a", "aac")
	}
	return append(args, "-c:v", EncodeCodec(codec), output)
}

// ReorderRequest concatenates Segments in Order.
type ReorderRequest struct {
	Segments []string
	Order    []int
	Output   string
	Codec    string
	ListDir  string
}

// Reorder validates the order and concatenates the selected segments.
func Reorder(ctx context.Context, tools Tools, req ReorderRequest) (Result, error) {
	if err := CheckSegments(edl.KindReorder, req.Segments); err != nil {
		return Result{}, err
	}
	ordered := make([]string, 0, len(req.Order))
	for _, idx := range req.Order {
		if err := CheckReorderIndex(idx, len(req.Segments)); err != nil {
			return Result{}, err
		}
		ordered = append(ordered, req.Segments[idx])
	}
	if len(ordered) == 0 {
		return Result{}, services.New(services.CodeInvalidEDL, "reorder requires a non-empty order",
			map[string]any{"operation": string(edl.KindReorder)}).
			WithRecovery("List at least one segment index in 'order'")
	}
	return Concat(ctx, tools, ConcatRequest{
		Segments: ordered,
		Output:   req.Output,
		Codec:    req.Codec,
		ListDir:  req.ListDir,
	})
}
