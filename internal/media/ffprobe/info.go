package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"time"

	"cutagent/internal/services"
)

// StreamInfo is the normalized view of one stream.
type StreamInfo struct {
	Index      int     `json:"index"`
	CodecName  string  `json:"codec_name"`
	CodecType  string  `json:"codec_type"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
}

// Info is the probe record consumed by validation and operations.
type Info struct {
	Path       string       `json:"path"`
	Duration   float64      `json:"duration"`
	FormatName string       `json:"format_name"`
	SizeBytes  int64        `json:"size_bytes"`
	BitRate    int64        `json:"bit_rate"`
	Streams    []StreamInfo `json:"streams"`
}

// VideoStream returns the first video stream.
func (i Info) VideoStream() (StreamInfo, bool) {
	return i.firstOfType("video")
}

// AudioStream returns the first audio stream.
func (i Info) AudioStream() (StreamInfo, bool) {
	return i.firstOfType("audio")
}

// HasAudio reports whether any audio stream exists.
func (i Info) HasAudio() bool {
	_, ok := i.AudioStream()
	return ok
}

// Resolution returns the first video stream's dimensions, or zeros.
func (i Info) Resolution() (int, int) {
	v, ok := i.VideoStream()
	if !ok {
		return 0, 0
	}
	return v.Width, v.Height
}

func (i Info) firstOfType(kind string) (StreamInfo, bool) {
	for _, s := range i.Streams {
		if s.CodecType == kind {
			return s, true
		}
	}
	return StreamInfo{}, false
}

// Summarize converts raw ffprobe output into an Info record.
func Summarize(path string, result Result) Info {
	info := Info{
		Path:       path,
		Duration:   result.DurationSeconds(),
		FormatName: result.Format.FormatName,
		SizeBytes:  result.SizeBytes(),
		BitRate:    result.BitRate(),
		Streams:    make([]StreamInfo, 0, len(result.Streams)),
	}
	if info.FormatName == "" {
		info.FormatName = "unknown"
	}
	for _, raw := range result.Streams {
		s := StreamInfo{Index: raw.Index, CodecName: raw.CodecName, CodecType: raw.CodecType}
		if s.CodecName == "" {
			s.CodecName = "unknown"
		}
		if s.CodecType == "" {
			s.CodecType = "unknown"
		}
		switch s.CodecType {
		case "video":
			s.Width, s.Height = raw.Width, raw.Height
			s.FPS = FrameRate(raw.RFrameRate)
		case "audio":
			s.SampleRate, _ = strconv.Atoi(raw.SampleRate)
			s.Channels = raw.Channels
		}
		info.Streams = append(info.Streams, s)
	}
	return info
}

// CheckInput fails with INPUT_NOT_FOUND when path does not exist.
func CheckInput(path string) (os.FileInfo, error) {
	stat, err := os.Stat(path)
	if err == nil {
		return stat, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		ctx := map[string]any{"path": path}
		return nil, services.New(services.CodeInputNotFound, "Input file not found: "+path, ctx)
	}
	ctx := map[string]any{"path": path, "error": err.Error()}
	return nil, services.New(services.CodeInputNotReadable, "Input file not readable: "+path, ctx).WithCause(err)
}

// Probe inspects path and returns its normalized metadata.
func Probe(ctx context.Context, binary, path string, timeout time.Duration) (Info, error) {
	if _, err := CheckInput(path); err != nil {
		return Info{}, err
	}
	result, err := Inspect(ctx, binary, path, timeout)
	if err != nil {
		return Info{}, err
	}
	info := Summarize(path, result)
	if info.Duration == 0 || math.IsNaN(info.Duration) {
		return Info{}, services.New(services.CodeInputInvalidFormat,
			fmt.Sprintf("Could not determine duration for: %s", path),
			map[string]any{"path": path},
		).WithRecovery("Ensure the file is a valid media file with at least one stream")
	}
	return info, nil
}

// ImageSize returns the dimensions of the first video stream of a still
// image. Images carry no duration, so Probe cannot be used for them.
func ImageSize(ctx context.Context, binary, path string, timeout time.Duration) (int, int, error) {
	if _, err := CheckInput(path); err != nil {
		return 0, 0, err
	}
	result, err := Inspect(ctx, binary, path, timeout)
	if err != nil {
		return 0, 0, err
	}
	for _, s := range result.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, services.New(services.CodeInputInvalidFormat,
		fmt.Sprintf("No image stream in: %s", path), map[string]any{"path": path})
}
