package ops

import "context"

// MixRequest blends Audio under the existing audio of Source.
type MixRequest struct {
	Source   string
	Audio    string
	Output   string
	MixLevel float64
	Codec    string
}

// Mix overlays a second audio track at MixLevel relative to the original.
func Mix(ctx context.Context, tools Tools, req MixRequest) (Result, error) {
	if err := CheckMixLevel(req.MixLevel); err != nil {
		return Result{}, err
	}
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	if err := RequireAudio(req.Source, info); err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, MixArgs(req.Source, req.Audio, req.MixLevel, req.Output, EncodeCodec(req.Codec))); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output, Duration: DurationOf(info.Duration)}, nil
}

// MixArgs builds the amix invocation. The output ends with the source.
func MixArgs(source, audio string, level float64, output, codec string) []string {
	graph := "[0:a]volume=1.0[a0];[1:a]volume=" + num(level) + "[a1];" +
		"[a0][a1]amix=inputs=2:duration=first:dropout_transition=2[aout]"
	return []string{
		"-i", source,
		"-i", audio,
		"-filter_complex", graph,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", codec,
		"-c:a", "aac",
		"-shortest",
		output,
	}
}

// VolumeRequest applies GainDB to Source.
type VolumeRequest struct {
	Source string
	Output string
	GainDB float64
	Codec  string
}

// Volume adjusts audio gain; video is copied unless a codec is given.
func Volume(ctx context.Context, tools Tools, req VolumeRequest) (Result, error) {
	if err := CheckGain(req.GainDB); err != nil {
		return Result{}, err
	}
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	if err := RequireAudio(req.Source, info); err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, VolumeArgs(req.Source, req.GainDB, req.Output, codecOrCopy(req.Codec))); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output, Duration: DurationOf(info.Duration)}, nil
}

// VolumeArgs builds the gain invocation.
func VolumeArgs(source string, gainDB float64, output, codec string) []string {
	return []string{"-i", source, "-af", "volume=" + num(gainDB) + "dB", "-c:v", codec, "-c:a", "aac", output}
}

// ReplaceAudioRequest pairs the video of Source with Audio.
type ReplaceAudioRequest struct {
	Source string
	Audio  string
	Output string
	Codec  string
}

// ReplaceAudio swaps the audio track, ending at the shorter stream.
func ReplaceAudio(ctx context.Context, tools Tools, req ReplaceAudioRequest) (Result, error) {
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, ReplaceAudioArgs(req.Source, req.Audio, req.Output, codecOrCopy(req.Codec))); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output, Duration: DurationOf(info.Duration)}, nil
}

// ReplaceAudioArgs builds the stream-mapping invocation.
func ReplaceAudioArgs(source, audio, output, codec string) []string {
	return []string{
		"-i", source,
		"-i", audio,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", codec,
		"-c:a", "aac",
		"-shortest",
		output,
	}
}

// NormalizeRequest applies loudness normalization to Source.
type NormalizeRequest struct {
	Source       string
	Output       string
	TargetLUFS   float64
	TruePeakDBTP float64
	Codec        string
}

// Normalize runs single-pass EBU R128 loudnorm.
func Normalize(ctx context.Context, tools Tools, req NormalizeRequest) (Result, error) {
	if err := CheckNormalizeTarget(req.TargetLUFS, req.TruePeakDBTP); err != nil {
		return Result{}, err
	}
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	if err := RequireAudio(req.Source, info); err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, NormalizeArgs(req.Source, req.TargetLUFS, req.TruePeakDBTP, req.Output, EncodeCodec(req.Codec))); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output, Duration: DurationOf(info.Duration)}, nil
}

// NormalizeArgs builds the loudnorm invocation.
func NormalizeArgs(source string, targetLUFS, truePeak float64, output, codec string) []string {
	filter := "loudnorm=I=" + num(targetLUFS) + ":TP=" + num(truePeak) + ":LRA=11"
	return []string{"-i", source, "-af", filter, "-c:v", codec, "-c:a", "aac", output}
}

func codecOrCopy(codec string) string {
	if codec == "" {
		return "copy"
	}
	return codec
}
