package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cutagent/internal/edl"
	"cutagent/internal/ops"
	"cutagent/internal/services"
)

type splitOutput struct {
	Segments []ops.Result `json:"segments"`
	Count    int          `json:"count"`
}

// newOperationCommands returns the single-operation shortcuts. Each runs one
// operation directly against its output path, without an EDL.
func newOperationCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newTrimCommand(ctx),
		newSplitCommand(ctx),
		newConcatCommand(ctx),
		newFadeCommand(ctx),
		newSpeedCommand(ctx),
		newExtractCommand(ctx),
		newMixCommand(ctx),
		newVolumeCommand(ctx),
		newReplaceAudioCommand(ctx),
		newNormalizeCommand(ctx),
	}
}

// runOperation prepares output's directory, runs fn and prints its result.
func (c *commandContext) runOperation(cmd *cobra.Command, output string, fn func(context.Context, ops.Tools) (any, error)) error {
	return c.withRuntime(func(rt *runtime) error {
		if output != "" {
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fail(cmd, fmt.Errorf("create output directory: %w", err), services.ExitSystem)
			}
		}
		res, err := fn(cmd.Context(), rt.tools)
		if err != nil {
			return fail(cmd, err, operationExit(err))
		}
		return writeJSON(cmd, res)
	})
}

// operationExit classifies a coded operation failure: parameter problems are
// validation failures, everything else failed while executing.
func operationExit(err error) int {
	if errors.Is(err, services.ErrValidation) {
		return services.ExitValidation
	}
	return services.ExitExecution
}

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "", "Output file path")
	_ = cmd.MarkFlagRequired("output")
}

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var start, end, output, codec string
	cmd := &cobra.Command{
		Use:   "trim FILE",
		Short: "Trim a video segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.Trim(c, tools, ops.TrimRequest{
					Source: args[0],
					Start:  edl.Timecode(start),
					End:    edl.Timecode(end),
					Output: output,
					Codec:  codec,
				})
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start time")
	cmd.Flags().StringVar(&end, "end", "", "End time")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	addOutputFlag(cmd, &output)
	cmd.Flags().StringVar(&codec, "codec", edl.DefaultCodec, "Codec: 'copy' or an encoder name")
	return cmd
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var at, prefix, codec string
	cmd := &cobra.Command{
		Use:   "split FILE",
		Short: "Split a video at given points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var points []edl.Timecode
			for _, p := range strings.Split(at, ",") {
				points = append(points, edl.Timecode(strings.TrimSpace(p)))
			}
			return ctx.runOperation(cmd, prefix, func(c context.Context, tools ops.Tools) (any, error) {
				segments, err := ops.Split(c, tools, ops.SplitRequest{
					Source: args[0],
					Points: points,
					Prefix: prefix,
					Codec:  codec,
				})
				if err != nil {
					return nil, err
				}
				return splitOutput{Segments: segments, Count: len(segments)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Comma-separated split points (e.g. 00:05:00,00:10:00)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Output file prefix (e.g. 'segment')")
	_ = cmd.MarkFlagRequired("at")
	_ = cmd.MarkFlagRequired("prefix")
	cmd.Flags().StringVar(&codec, "codec", edl.DefaultCodec, "Codec: 'copy' or an encoder name")
	return cmd
}

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var output, codec, transition string
	var transitionDuration float64
	cmd := &cobra.Command{
		Use:   "concat FILE...",
		Short: "Concatenate video files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ops.ConcatRequest{
				Segments:           args,
				Output:             output,
				Codec:              codec,
				TransitionDuration: transitionDuration,
			}
			if cmd.Flags().Changed("transition") {
				req.Transition = &transition
				if cmd.Flags().Changed("codec") && codec == edl.DefaultCodec {
					return fail(cmd, services.New(services.CodeCodecIncompatible,
						"Crossfade transitions cannot use stream copy",
						map[string]any{"codec": codec, "transition": transition}).
						WithRecovery("Omit --codec or pass an encoder such as libx264"), services.ExitValidation)
				}
			}
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.Concat(c, tools, req)
			})
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().StringVar(&codec, "codec", edl.DefaultCodec, "Codec: 'copy' or an encoder name")
	cmd.Flags().StringVar(&transition, "transition", "", "Optional transition type (crossfade)")
	cmd.Flags().Float64Var(&transitionDuration, "transition-duration", edl.DefaultTransitionDuration, "Transition duration in seconds")
	return cmd
}

func newFadeCommand(ctx *commandContext) *cobra.Command {
	var output, codec string
	var fadeIn, fadeOut float64
	cmd := &cobra.Command{
		Use:   "fade FILE",
		Short: "Apply fade-in/fade-out effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.Fade(c, tools, ops.FadeRequest{
					Source:  args[0],
					Output:  output,
					FadeIn:  fadeIn,
					FadeOut: fadeOut,
					Codec:   codec,
				})
			})
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().Float64Var(&fadeIn, "fade-in", 0, "Fade-in duration in seconds")
	cmd.Flags().Float64Var(&fadeOut, "fade-out", 0, "Fade-out duration in seconds")
	cmd.Flags().StringVar(&codec, "codec", ops.DefaultVideoCodec, "Video codec")
	return cmd
}

func newSpeedCommand(ctx *commandContext) *cobra.Command {
	var output, codec string
	var factor float64
	cmd := &cobra.Command{
		Use:   "speed FILE",
		Short: "Change playback speed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.Speed(c, tools, ops.SpeedRequest{
					Source: args[0],
					Output: output,
					Factor: factor,
					Codec:  codec,
				})
			})
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().Float64Var(&factor, "factor", 0, "Speed factor (>1 faster, <1 slower)")
	_ = cmd.MarkFlagRequired("factor")
	cmd.Flags().StringVar(&codec, "codec", ops.DefaultVideoCodec, "Video codec")
	return cmd
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var output, stream string
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract the audio or video stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.Extract(c, tools, ops.ExtractRequest{
					Source: args[0],
					Stream: stream,
					Output: output,
				})
			})
		},
	}
	cmd.Flags().StringVar(&stream, "stream", "", "Stream to extract (audio or video)")
	_ = cmd.MarkFlagRequired("stream")
	addOutputFlag(cmd, &output)
	return cmd
}

func newMixCommand(ctx *commandContext) *cobra.Command {
	var output, audio, codec string
	var mixLevel float64
	cmd := &cobra.Command{
		Use:   "mix FILE",
		Short: "Mix an audio track into a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.Mix(c, tools, ops.MixRequest{
					Source:   args[0],
					Audio:    audio,
					Output:   output,
					MixLevel: mixLevel,
					Codec:    codec,
				})
			})
		},
	}
	cmd.Flags().StringVar(&audio, "audio", "", "Audio file to mix in")
	_ = cmd.MarkFlagRequired("audio")
	addOutputFlag(cmd, &output)
	cmd.Flags().Float64Var(&mixLevel, "mix-level", 0.3, "Level of the mixed track relative to the original (0.0-1.0)")
	cmd.Flags().StringVar(&codec, "codec", ops.DefaultVideoCodec, "Video codec")
	return cmd
}

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	var output, codec string
	var gainDB float64
	cmd := &cobra.Command{
		Use:   "volume FILE",
		Short: "Adjust audio volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.Volume(c, tools, ops.VolumeRequest{
					Source: args[0],
					Output: output,
					GainDB: gainDB,
					Codec:  codec,
				})
			})
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().Float64Var(&gainDB, "gain-db", 0, "Gain in dB (-60 to 60)")
	_ = cmd.MarkFlagRequired("gain-db")
	cmd.Flags().StringVar(&codec, "codec", edl.DefaultCodec, "Video codec")
	return cmd
}

func newReplaceAudioCommand(ctx *commandContext) *cobra.Command {
	var output, audio, codec string
	cmd := &cobra.Command{
		Use:   "replace-audio FILE",
		Short: "Replace a video's audio track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.ReplaceAudio(c, tools, ops.ReplaceAudioRequest{
					Source: args[0],
					Audio:  audio,
					Output: output,
					Codec:  codec,
				})
			})
		},
	}
	cmd.Flags().StringVar(&audio, "audio", "", "Replacement audio file")
	_ = cmd.MarkFlagRequired("audio")
	addOutputFlag(cmd, &output)
	cmd.Flags().StringVar(&codec, "codec", edl.DefaultCodec, "Video codec")
	return cmd
}

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var output, codec string
	var targetLUFS, truePeak float64
	cmd := &cobra.Command{
		Use:   "normalize FILE",
		Short: "Normalize audio loudness (EBU R128)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runOperation(cmd, output, func(c context.Context, tools ops.Tools) (any, error) {
				return ops.Normalize(c, tools, ops.NormalizeRequest{
					Source:       args[0],
					Output:       output,
					TargetLUFS:   targetLUFS,
					TruePeakDBTP: truePeak,
					Codec:        codec,
				})
			})
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().Float64Var(&targetLUFS, "target-lufs", -16.0, "Integrated loudness target in LUFS")
	cmd.Flags().Float64Var(&truePeak, "true-peak-dbtp", -1.5, "True peak ceiling in dBTP")
	cmd.Flags().StringVar(&codec, "codec", ops.DefaultVideoCodec, "Video codec")
	return cmd
}
