package main

import (
	"github.com/spf13/cobra"

	"cutagent/internal/edl"
	"cutagent/internal/media/ffprobe"
	"cutagent/internal/services"
)

type probeOutput struct {
	ffprobe.Info
	DurationFormatted string `json:"duration_formatted"`
}

type keyframesOutput struct {
	Path      string    `json:"path"`
	Keyframes []float64 `json:"keyframes"`
	Count     int       `json:"count"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE",
		Short: "Probe a media file for metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				info, err := rt.tools.Probe(cmd.Context(), args[0])
				if err != nil {
					return fail(cmd, err, services.ExitValidation)
				}
				return writeJSON(cmd, probeOutput{Info: info, DurationFormatted: edl.FormatTime(info.Duration)})
			})
		},
	}
}

func newKeyframesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keyframes FILE",
		Short: "List keyframe timestamps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := ffprobe.CheckInput(path); err != nil {
				return fail(cmd, err, services.ExitValidation)
			}
			return ctx.withRuntime(func(rt *runtime) error {
				kfs, err := rt.tools.Keyframes(cmd.Context(), path)
				if err != nil {
					return fail(cmd, err, services.ExitValidation)
				}
				if kfs == nil {
					kfs = []float64{}
				}
				return writeJSON(cmd, keyframesOutput{Path: path, Keyframes: kfs, Count: len(kfs)})
			})
		},
	}
}
