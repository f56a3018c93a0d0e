package services

import "fmt"

// Code is a stable, machine-readable failure identifier.
type Code string

// System.
const (
	CodeFFmpegNotFound  Code = "FFMPEG_NOT_FOUND"
	CodeFFprobeNotFound Code = "FFPROBE_NOT_FOUND"
	CodeFFmpegTimeout   Code = "FFMPEG_TIMEOUT"
	CodeFFmpegFailed    Code = "FFMPEG_FAILED"
)

// Input.
const (
	CodeInputNotFound      Code = "INPUT_NOT_FOUND"
	CodeInputNotReadable   Code = "INPUT_NOT_READABLE"
	CodeInputInvalidFormat Code = "INPUT_INVALID_FORMAT"
)

// EDL structure and operation parameters.
const (
	CodeInvalidEDL                Code = "INVALID_EDL"
	CodeUnknownOperation          Code = "UNKNOWN_OPERATION"
	CodeMissingField              Code = "MISSING_FIELD"
	CodeInvalidTimeFormat         Code = "INVALID_TIME_FORMAT"
	CodeTrimBeyondDuration        Code = "TRIM_BEYOND_DURATION"
	CodeTrimStartAfterEnd         Code = "TRIM_START_AFTER_END"
	CodeInvalidReference          Code = "INVALID_REFERENCE"
	CodeSplitPointBeyondDuration  Code = "SPLIT_POINT_BEYOND_DURATION"
	CodeReorderIndexOutOfRange    Code = "REORDER_INDEX_OUT_OF_RANGE"
	CodeInvalidStreamType         Code = "INVALID_STREAM_TYPE"
	CodeCodecIncompatible         Code = "CODEC_INCOMPATIBLE"
	CodeInvalidTransition         Code = "INVALID_TRANSITION"
	CodeInvalidTransitionDuration Code = "INVALID_TRANSITION_DURATION"
	CodeInvalidFadeDuration       Code = "INVALID_FADE_DURATION"
	CodeInvalidSpeedFactor        Code = "INVALID_SPEED_FACTOR"
)

// Audio.
const (
	CodeInvalidMixLevel        Code = "INVALID_MIX_LEVEL"
	CodeInvalidGainValue       Code = "INVALID_GAIN_VALUE"
	CodeAudioStreamMissing     Code = "AUDIO_STREAM_MISSING"
	CodeInvalidNormalizeTarget Code = "INVALID_NORMALIZE_TARGET"
)

// Text and animation.
const (
	CodeEmptyTextEntries         Code = "EMPTY_TEXT_ENTRIES"
	CodeInvalidTextPosition      Code = "INVALID_TEXT_POSITION"
	CodeInvalidFontSize          Code = "INVALID_FONT_SIZE"
	CodeInvalidTextTiming        Code = "INVALID_TEXT_TIMING"
	CodeEmptyAnimationLayers     Code = "EMPTY_ANIMATION_LAYERS"
	CodeInvalidLayerType         Code = "INVALID_LAYER_TYPE"
	CodeInvalidLayerTiming       Code = "INVALID_LAYER_TIMING"
	CodeInvalidAnimationEasing   Code = "INVALID_ANIMATION_EASING"
	CodeInvalidAnimationProperty Code = "INVALID_ANIMATION_PROPERTY"
	CodeMissingLayerField        Code = "MISSING_LAYER_FIELD"
)

// Output.
const (
	CodeOutputDirNotFound   Code = "OUTPUT_DIR_NOT_FOUND"
	CodeOutputAlreadyExists Code = "OUTPUT_ALREADY_EXISTS"
	CodeOutputLocked        Code = "OUTPUT_LOCKED"
)

// Analysis.
const CodeInvalidArgument Code = "INVALID_ARGUMENT"

// Warning-only codes.
const (
	CodeTrimEndClamped       Code = "TRIM_END_CLAMPED"
	CodeKeyframeMisaligned   Code = "KEYFRAME_MISALIGNED"
	CodeResolutionMismatch   Code = "RESOLUTION_MISMATCH"
	CodeDuplicateOperationID Code = "DUPLICATE_OPERATION_ID"
	CodeKeyframeOutsideLayer Code = "KEYFRAME_OUTSIDE_LAYER"
	CodeFilterUnavailable    Code = "FILTER_UNAVAILABLE"
)

// CodeUnexpected marks failures that escaped classification.
const CodeUnexpected Code = "UNEXPECTED_ERROR"

// Marker returns the sentinel used for errors.Is classification of the code.
func (c Code) Marker() error {
	switch c {
	case CodeFFmpegNotFound, CodeFFprobeNotFound:
		return ErrConfiguration
	case CodeFFmpegTimeout:
		return ErrTimeout
	case CodeFFmpegFailed:
		return ErrExternalTool
	case CodeInputNotFound, CodeOutputDirNotFound:
		return ErrNotFound
	case CodeOutputLocked:
		return ErrTransient
	case CodeUnexpected, "":
		return nil
	default:
		return ErrValidation
	}
}

var recoveryMap = map[Code][]string{
	CodeFFmpegNotFound: {
		"Install FFmpeg: https://ffmpeg.org/download.html",
		"Ensure 'ffmpeg' is on your $PATH or set CUTAGENT_FFMPEG",
	},
	CodeFFprobeNotFound: {
		"Install FFmpeg (includes ffprobe): https://ffmpeg.org/download.html",
		"Ensure 'ffprobe' is on your $PATH or set CUTAGENT_FFPROBE",
	},
	CodeInputNotFound: {
		"Check the file path for typos",
		"Use an absolute path to avoid working-directory issues",
	},
	CodeTrimBeyondDuration: {
		"Run 'cutagent probe <file>' to check the actual duration",
		"Set end time to the source duration or earlier",
	},
	CodeTrimStartAfterEnd: {
		"Swap start and end times",
	},
	CodeInvalidReference: {
		"References use $N where N is a 0-based operation index, $input.N for inputs, or $<id> for named operations",
		"Ensure the referenced operation exists earlier in the operations list",
	},
	CodeInvalidTimeFormat: {
		"Use HH:MM:SS, HH:MM:SS.mmm, MM:SS, or plain seconds",
	},
	CodeUnknownOperation: {
		"Use one of: trim, split, concat, reorder, extract, fade, speed, mix_audio, volume, replace_audio, normalize, text, animate",
		"Run 'cutagent capabilities' to see all supported operations",
	},
	CodeInvalidMixLevel: {
		"mix_level must be between 0.0 and 1.0 (e.g., 0.15 for subtle background music)",
	},
	CodeInvalidGainValue: {
		"gain_db must be between -60.0 and 60.0",
	},
	CodeAudioStreamMissing: {
		"The source file has no audio stream",
		"Run 'cutagent probe <file>' to inspect available streams",
	},
	CodeInvalidNormalizeTarget: {
		"target_lufs must be between -70.0 and -5.0 (standard broadcast is -16 or -23)",
		"true_peak_dbtp must be between -10.0 and 0.0 (standard is -1.5)",
	},
	CodeInvalidSpeedFactor: {
		"factor must be between 0.25 and 100.0",
	},
	CodeOutputLocked: {
		"Another run is writing the same output; wait for it or choose a different output path",
	},
	CodeOutputAlreadyExists: {
		"Remove the existing file or drop --no-overwrite",
	},
	CodeInvalidArgument: {
		"Run 'cutagent <command> --help' to see accepted values",
	},
}

// RecoveryHints returns suggestions for the code, with context-specific hints first.
func RecoveryHints(code Code, context map[string]any) []string {
	hints := append([]string{}, recoveryMap[code]...)
	switch code {
	case CodeTrimBeyondDuration:
		if dur, ok := context["duration"].(float64); ok {
			hints = append([]string{fmt.Sprintf("Source duration is %.3fs; set end to %.3f or less", dur, dur)}, hints...)
		}
	case CodeInputNotFound:
		if path, ok := context["path"]; ok {
			hints = append([]string{fmt.Sprintf("File not found: %v", path)}, hints...)
		}
	}
	return hints
}
