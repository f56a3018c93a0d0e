package main

import (
	"strings"

	"github.com/spf13/cobra"

	"cutagent/internal/edl"
	"cutagent/internal/media/analysis"
	"cutagent/internal/services"
)

type scenesOutput struct {
	Path      string           `json:"path"`
	Scenes    []analysis.Scene `json:"scenes"`
	Count     int              `json:"count"`
	Threshold float64          `json:"threshold"`
	OutputDir *string          `json:"output_dir"`
}

type framesOutput struct {
	Path   string           `json:"path"`
	Frames []analysis.Frame `json:"frames"`
	Count  int              `json:"count"`
}

type thumbnailOutput struct {
	Path      string         `json:"path"`
	Thumbnail analysis.Frame `json:"thumbnail"`
}

type silenceOutput struct {
	Path        string             `json:"path"`
	Silences    []analysis.Silence `json:"silences"`
	Count       int                `json:"count"`
	ThresholdDB float64            `json:"threshold_db"`
	MinDuration float64            `json:"min_duration"`
}

type audioLevelsOutput struct {
	Path        string                `json:"path"`
	Interval    float64               `json:"interval"`
	AudioLevels []analysis.AudioLevel `json:"audio_levels"`
	Count       int                   `json:"count"`
}

type summaryOutput struct {
	Summary analysis.Summary `json:"summary"`
}

type beatsOutput struct {
	Path string `json:"path"`
	analysis.BeatReport
}

// newAnalysisCommands returns the read-only content analysis commands.
func newAnalysisCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newScenesCommand(ctx),
		newFramesCommand(ctx),
		newThumbnailCommand(ctx),
		newSilenceCommand(ctx),
		newAudioLevelsCommand(ctx),
		newSummarizeCommand(ctx),
		newBeatsCommand(ctx),
	}
}

// runAnalysis hands fn an Analyzer over the runtime toolchain and prints
// its result.
func (c *commandContext) runAnalysis(cmd *cobra.Command, fn func(*analysis.Analyzer) (any, error)) error {
	return c.withRuntime(func(rt *runtime) error {
		res, err := fn(analysis.New(rt.tools, rt.logger))
		if err != nil {
			return fail(cmd, err, operationExit(err))
		}
		return writeJSON(cmd, res)
	})
}

// parseTimestamps reads a comma-separated --at list. Empty entries are skipped.
func parseTimestamps(raw string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ts, err := edl.ParseTime(part)
		if err != nil {
			return nil, services.New(services.CodeInvalidArgument, err.Error(),
				map[string]any{"at": part}).WithCause(err)
		}
		out = append(out, ts)
	}
	if len(out) == 0 {
		return nil, services.New(services.CodeInvalidArgument, "--at needs at least one timestamp",
			map[string]any{"at": raw})
	}
	return out, nil
}

func newScenesCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	var outputDir string
	cmd := &cobra.Command{
		Use:   "scenes FILE",
		Short: "Detect scene boundaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runAnalysis(cmd, func(a *analysis.Analyzer) (any, error) {
				scenes, err := a.DetectScenes(cmd.Context(), args[0], threshold, outputDir)
				if err != nil {
					return nil, err
				}
				out := scenesOutput{Path: args[0], Scenes: scenes, Count: len(scenes), Threshold: threshold}
				if outputDir != "" {
					out.OutputDir = &outputDir
				}
				return out, nil
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", analysis.DefaultSceneThreshold, "Scene detection threshold (0.0-1.0)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Optional directory for scene preview frames")
	return cmd
}

func newFramesCommand(ctx *commandContext) *cobra.Command {
	var at, outputDir, format string
	cmd := &cobra.Command{
		Use:   "frames FILE",
		Short: "Extract frames at one or more timestamps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runAnalysis(cmd, func(a *analysis.Analyzer) (any, error) {
				timestamps, err := parseTimestamps(at)
				if err != nil {
					return nil, err
				}
				frames, err := a.ExtractFrames(cmd.Context(), args[0], timestamps, outputDir, format, "")
				if err != nil {
					return nil, err
				}
				return framesOutput{Path: args[0], Frames: frames, Count: len(frames)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Comma-separated timestamps")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for extracted frames")
	cmd.Flags().StringVar(&format, "format", "jpg", "Image format (jpg, jpeg, png)")
	_ = cmd.MarkFlagRequired("at")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func newThumbnailCommand(ctx *commandContext) *cobra.Command {
	var at, output string
	cmd := &cobra.Command{
		Use:   "thumbnail FILE",
		Short: "Extract a single thumbnail frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runAnalysis(cmd, func(a *analysis.Analyzer) (any, error) {
				ts, err := edl.ParseTime(at)
				if err != nil {
					return nil, services.New(services.CodeInvalidArgument, err.Error(),
						map[string]any{"at": at}).WithCause(err)
				}
				frame, err := a.Thumbnail(cmd.Context(), args[0], ts, output)
				if err != nil {
					return nil, err
				}
				return thumbnailOutput{Path: args[0], Thumbnail: frame}, nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Thumbnail timestamp")
	_ = cmd.MarkFlagRequired("at")
	addOutputFlag(cmd, &output)
	return cmd
}

func newSilenceCommand(ctx *commandContext) *cobra.Command {
	var threshold, minDuration float64
	cmd := &cobra.Command{
		Use:   "silence FILE",
		Short: "Detect silence intervals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runAnalysis(cmd, func(a *analysis.Analyzer) (any, error) {
				silences, err := a.DetectSilence(cmd.Context(), args[0], threshold, minDuration)
				if err != nil {
					return nil, err
				}
				if silences == nil {
					silences = []analysis.Silence{}
				}
				return silenceOutput{
					Path:        args[0],
					Silences:    silences,
					Count:       len(silences),
					ThresholdDB: threshold,
					MinDuration: minDuration,
				}, nil
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", analysis.DefaultSilenceThreshold, "Silence threshold in dB")
	cmd.Flags().Float64Var(&minDuration, "min-duration", analysis.DefaultMinSilenceDuration, "Minimum silence duration in seconds")
	return cmd
}

func newAudioLevelsCommand(ctx *commandContext) *cobra.Command {
	var interval float64
	cmd := &cobra.Command{
		Use:   "audio-levels FILE",
		Short: "Compute audio levels over time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runAnalysis(cmd, func(a *analysis.Analyzer) (any, error) {
				levels, err := a.AudioLevels(cmd.Context(), args[0], interval)
				if err != nil {
					return nil, err
				}
				return audioLevelsOutput{Path: args[0], Interval: interval, AudioLevels: levels, Count: len(levels)}, nil
			})
		},
	}
	cmd.Flags().Float64Var(&interval, "interval", analysis.DefaultAudioInterval, "Aggregation interval in seconds")
	return cmd
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	opts := analysis.DefaultSummaryOptions()
	cmd := &cobra.Command{
		Use:   "summarize FILE",
		Short: "Build a full content summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runAnalysis(cmd, func(a *analysis.Analyzer) (any, error) {
				summary, err := a.Summarize(cmd.Context(), args[0], opts)
				if err != nil {
					return nil, err
				}
				return summaryOutput{Summary: summary}, nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.FrameDir, "frame-dir", "", "Optional directory for scene preview frames")
	flags.Float64Var(&opts.SceneThreshold, "scene-threshold", opts.SceneThreshold, "Scene detection threshold")
	flags.Float64Var(&opts.SilenceThreshold, "silence-threshold", opts.SilenceThreshold, "Silence threshold in dB")
	flags.Float64Var(&opts.MinSilenceDuration, "min-silence-duration", opts.MinSilenceDuration, "Minimum silence duration")
	flags.Float64Var(&opts.AudioInterval, "audio-interval", opts.AudioInterval, "Audio level interval in seconds")
	flags.BoolVar(&opts.IncludeAudioLevels, "include-audio-levels", false, "Include per-interval audio levels (verbose)")
	return cmd
}

func newBeatsCommand(ctx *commandContext) *cobra.Command {
	opts := analysis.DefaultBeatOptions()
	cmd := &cobra.Command{
		Use:   "beats FILE",
		Short: "Detect rhythmic onsets in the audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runAnalysis(cmd, func(a *analysis.Analyzer) (any, error) {
				report, err := a.DetectBeats(cmd.Context(), args[0], opts)
				if err != nil {
					return nil, err
				}
				return beatsOutput{Path: args[0], BeatReport: report}, nil
			})
		},
	}
	cmd.Flags().Float64Var(&opts.MinInterval, "min-interval", opts.MinInterval, "Minimum seconds between beats")
	cmd.Flags().Float64Var(&opts.EnergyThreshold, "energy-threshold", opts.EnergyThreshold, "Energy ratio over the local mean that marks a beat")
	return cmd
}
