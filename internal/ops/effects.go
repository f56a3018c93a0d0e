package ops

import (
	"context"
	"strings"

	"cutagent/internal/edl"
)

// ExtractRequest keeps one stream of Source.
type ExtractRequest struct {
	Source string
	Stream string
	Output string
}

// Extract copies the audio or video stream of a file without re-encoding.
func Extract(ctx context.Context, tools Tools, req ExtractRequest) (Result, error) {
	if err := CheckStream(req.Stream); err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, ExtractArgs(req.Source, req.Stream, req.Output)); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output}, nil
}

// ExtractArgs builds the stream extraction invocation.
func ExtractArgs(source, stream, output string) []string {
	if stream == edl.StreamAudio {
		return []string{"-i", source, "-vn", "-c:a", "copy", output}
	}
	return []string{"-i", source, "-an", "-c:v", "copy", output}
}

// FadeRequest fades Source in and/or out.
type FadeRequest struct {
	Source  string
	Output  string
	FadeIn  float64
	FadeOut float64
	Codec   string
}

// Fade applies matching video and audio fades.
func Fade(ctx context.Context, tools Tools, req FadeRequest) (Result, error) {
	if err := CheckFade(req.FadeIn, req.FadeOut, -1); err != nil {
		return Result{}, err
	}
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	if err := CheckFade(req.FadeIn, req.FadeOut, info.Duration); err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, FadeArgs(req.Source, req.FadeIn, req.FadeOut, info.Duration, req.Output, EncodeCodec(req.Codec))); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output, Duration: DurationOf(info.Duration)}, nil
}

// FadeArgs builds the fade invocation. The fade-out starts fadeOut seconds
// before the end of a clip of the given duration.
func FadeArgs(source string, fadeIn, fadeOut, duration float64, output, codec string) []string {
	var video, audio []string
	if fadeIn > 0 {
		video = append(video, "fade=t=in:st=0:d="+num(fadeIn))
		audio = append(audio, "afade=t=in:st=0:d="+num(fadeIn))
	}
	if fadeOut > 0 {
		st := num(max(0, duration-fadeOut))
		video = append(video, "fade=t=out:st="+st+":d="+num(fadeOut))
		audio = append(audio, "afade=t=out:st="+st+":d="+num(fadeOut))
	}
	args := []string{"-i", source}
	if len(video) > 0 {
		args = append(args, "-vf", strings.Join(video, ","))
	}
	if len(audio) > 0 {
		args = append(args, "-af", strings.Join(audio, ","))
	}
	return append(args, "-c:v", codec, "-c:a", "aac", output)
}

// SpeedRequest retimes Source by Factor.
type SpeedRequest struct {
	Source string
	Output string
	Factor float64
	Codec  string
}

// Speed changes playback rate; factor 2 halves the duration.
func Speed(ctx context.Context, tools Tools, req SpeedRequest) (Result, error) {
	if err := CheckSpeedFactor(req.Factor); err != nil {
		return Result{}, err
	}
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, SpeedArgs(req.Source, req.Factor, req.Output, EncodeCodec(req.Codec))); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output, Duration: DurationOf(info.Duration / req.Factor)}, nil
}

// SpeedArgs builds the retiming invocation.
func SpeedArgs(source string, factor float64, output, codec string) []string {
	return []string{
		"-i", source,
		"-vf", "setpts=PTS/" + num(factor),
		"-af", AtempoChain(factor),
		"-c:v", codec, "-c:a", "aac",
		output,
	}
}

// AtempoChain expresses factor as atempo filters. A single atempo accepts
// 0.5 and up, so slower factors are reached by chaining halvings.
func AtempoChain(factor float64) string {
	if factor >= 0.5 {
		return "atempo=" + num(factor)
	}
	var parts []string
	remaining := factor
	for remaining < 0.5 {
		parts = append(parts, "atempo=0.5")
		remaining /= 0.5
	}
	parts = append(parts, "atempo="+num(remaining))
	return strings.Join(parts, ",")
}
