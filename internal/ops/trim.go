package ops

import (
	"context"
	"fmt"
	"sort"

	"cutagent/internal/edl"
	"cutagent/internal/media/ffprobe"
)

// TrimRequest cuts Source between Start and End.
type TrimRequest struct {
	Source string
	Start  edl.Timecode
	End    edl.Timecode
	Output string
	Codec  string
}

// Trim runs a trim. With stream copy it also warns when a cut point is not
// near a keyframe.
func Trim(ctx context.Context, tools Tools, req TrimRequest) (Result, error) {
	startSec, err := req.Start.Seconds()
	if err != nil {
		return Result{}, err
	}
	endSec, err := req.End.Seconds()
	if err != nil {
		return Result{}, err
	}
	if err := CheckTrimRange(req.Start, req.End, startSec, endSec); err != nil {
		return Result{}, err
	}

	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	var warnings []string
	endSec, warning, err := ClampTrimEnd(req.Source, req.Start, req.End, startSec, endSec, info.Duration)
	if err != nil {
		return Result{}, err
	}
	if warning != "" {
		warnings = append(warnings, warning)
	}

	if req.Codec == "" || req.Codec == edl.DefaultCodec {
		warnings = append(warnings, keyframeWarnings(ctx, tools, req.Source, startSec, endSec)...)
	}

	if err := tools.Encode(ctx, TrimArgs(req.Source, startSec, endSec, req.Output, req.Codec)); err != nil {
		return Result{}, err
	}
	return Result{
		Success:    true,
		OutputPath: req.Output,
		Duration:   DurationOf(endSec - startSec),
		Warnings:   warnings,
	}, nil
}

// TrimArgs builds the ffmpeg arguments for a segment cut.
func TrimArgs(source string, start, end float64, output, codec string) []string {
	args := []string{"-ss", num(start), "-to", num(end), "-i", source}
	args = append(args, videoCodecArgs(codec)...)
	return append(args, output)
}

func keyframeWarnings(ctx context.Context, tools Tools, source string, start, end float64) []string {
	kfs, err := tools.Keyframes(ctx, source)
	if err != nil {
		return []string{fmt.Sprintf("Keyframe alignment check skipped: %v", err)}
	}
	if len(kfs) == 0 {
		return nil
	}
	var warnings []string
	for _, cut := range []struct {
		label string
		at    float64
	}{{"start", start}, {"end", end}} {
		if w := KeyframeWarning(kfs, cut.label, cut.at); w != "" {
			warnings = append(warnings, w)
		}
	}
	return warnings
}

// KeyframeWarning reports a cut point further than KeyframeTolerance from
// the nearest keyframe.
func KeyframeWarning(keyframes []float64, label string, at float64) string {
	if len(keyframes) == 0 {
		return ""
	}
	nearest := ffprobe.Nearest(keyframes, at)
	diff := nearest - at
	if diff < 0 {
		diff = -diff
	}
	if diff <= KeyframeTolerance {
		return ""
	}
	return fmt.Sprintf("Cut point %s=%s is not on a keyframe. Nearest keyframe: %s. With codec=copy, the cut may be imprecise.",
		label, edl.FormatTime(at), edl.FormatTime(nearest))
}

// SplitRequest cuts Source into consecutive segments at Points.
type SplitRequest struct {
	Source string
	Points []edl.Timecode
	// Prefix names the segments: <Prefix>_000<ext>, <Prefix>_001<ext>, ...
	Prefix string
	Codec  string
}

// Split runs a split and returns one result per segment, in order.
func Split(ctx context.Context, tools Tools, req SplitRequest) ([]Result, error) {
	points, err := SplitPoints(req.Points)
	if err != nil {
		return nil, err
	}
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	for _, pt := range points {
		if err := CheckSplitPoint(req.Source, pt, info.Duration); err != nil {
			return nil, err
		}
	}

	bounds := append(append([]float64{0}, points...), info.Duration)
	ext := ExtensionOf(req.Source)
	results := make([]Result, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		segPath := SegmentPath(req.Prefix, i, ext)
		if err := tools.Encode(ctx, TrimArgs(req.Source, bounds[i], bounds[i+1], segPath, req.Codec)); err != nil {
			return nil, err
		}
		results = append(results, Result{
			Success:    true,
			OutputPath: segPath,
			Duration:   DurationOf(bounds[i+1] - bounds[i]),
		})
	}
	return results, nil
}

// SplitPoints parses and sorts split points.
func SplitPoints(points []edl.Timecode) ([]float64, error) {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		sec, err := p.Seconds()
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	sort.Float64s(out)
	return out, nil
}

// SegmentPath names the i-th split segment.
func SegmentPath(prefix string, i int, ext string) string {
	return fmt.Sprintf("%s_%03d%s", prefix, i, ext)
}
