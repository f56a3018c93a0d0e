package ops

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"

	"cutagent/internal/edl"
	"cutagent/internal/media/ffprobe"
)

// Tools is the collaborator surface operations run against.
type Tools interface {
	Encode(ctx context.Context, args []string) error
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
	Keyframes(ctx context.Context, path string) ([]float64, error)
}

// DefaultVideoCodec replaces "copy" for operations that must re-encode video.
const DefaultVideoCodec = "libx264"

// DefaultExtension is used when a source has no extension of its own.
const DefaultExtension = ".mp4"

// EncodeCodec returns codec, or DefaultVideoCodec when codec is "copy".
func EncodeCodec(codec string) string {
	if codec == "" || codec == edl.DefaultCodec {
		return DefaultVideoCodec
	}
	return codec
}

// Result describes what an operation (or a whole EDL run) produced.
type Result struct {
	Success    bool
	OutputPath string
	Duration   *float64
	Warnings   []string
}

// DurationOf returns a pointer for Result.Duration.
func DurationOf(seconds float64) *float64 {
	return &seconds
}

// MarshalJSON emits the CLI/API result shape. duration_formatted accompanies
// duration_seconds, and warnings are omitted when empty.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Success           bool     `json:"success"`
		OutputPath        string   `json:"output_path"`
		DurationSeconds   *float64 `json:"duration_seconds,omitempty"`
		DurationFormatted string   `json:"duration_formatted,omitempty"`
		Warnings          []string `json:"warnings,omitempty"`
	}{
		Success:         r.Success,
		OutputPath:      r.OutputPath,
		DurationSeconds: r.Duration,
		Warnings:        r.Warnings,
	}
	if r.Duration != nil {
		out.DurationFormatted = edl.FormatTime(*r.Duration)
	}
	return json.Marshal(out)
}

// ExtensionOf returns the extension of path, or DefaultExtension.
func ExtensionOf(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		return ext
	}
	return DefaultExtension
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// videoCodecArgs selects stream copy or a video encoder.
func videoCodecArgs(codec string) []string {
	if codec == "" || codec == edl.DefaultCodec {
		return []string{"-c", "copy"}
	}
	return []string{"-c:v", codec}
}
