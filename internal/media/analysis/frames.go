package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cutagent/internal/logging"
)

// Frame is one extracted still image.
type Frame struct {
	Timestamp float64 `json:"timestamp"`
	Path      string  `json:"path"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
}

// FrameName builds the file name of frame idx taken at ts.
func FrameName(prefix string, idx int, ts float64, ext string) string {
	stamp := strings.ReplaceAll(fmt.Sprintf("%.3f", ts), ".", "_")
	return fmt.Sprintf("%s_%03d_%s.%s", prefix, idx, stamp, ext)
}

// FrameArgs grabs a single frame at ts. JPEG output gets high quality.
func FrameArgs(source string, ts float64, output string) []string {
	args := []string{"-ss", fmt.Sprintf("%.6f", ts), "-i", source, "-frames:v", "1"}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".jpg", ".jpeg":
		args = append(args, "-q:v", "2")
	}
	return append(args, output)
}

func imageExtension(format string) (string, error) {
	f := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	switch f {
	case "":
		return "jpg", nil
	case "jpg", "jpeg":
		return "jpg", nil
	case "png":
		return "png", nil
	}
	return "", invalidArgument("image format must be one of: jpg, jpeg, png", map[string]any{"format": format})
}

// ExtractFrames writes one still per timestamp into dir, in input order.
// Timestamps are clamped to the source duration.
func (a *Analyzer) ExtractFrames(ctx context.Context, path string, timestamps []float64, dir, format, prefix string) ([]Frame, error) {
	ext, err := imageExtension(format)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "frame"
	}
	info, err := a.probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}

	frames := make([]Frame, 0, len(timestamps))
	for idx, raw := range timestamps {
		ts := clamp(raw, 0, info.Duration)
		out := filepath.Join(dir, FrameName(prefix, idx, ts, ext))
		frame, err := a.grab(ctx, path, ts, out)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// Thumbnail writes a single frame at ts to output.
func (a *Analyzer) Thumbnail(ctx context.Context, path string, ts float64, output string) (Frame, error) {
	info, err := a.probe(ctx, path)
	if err != nil {
		return Frame{}, err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Frame{}, fmt.Errorf("create thumbnail directory: %w", err)
	}
	return a.grab(ctx, path, clamp(ts, 0, info.Duration), output)
}

func (a *Analyzer) grab(ctx context.Context, path string, ts float64, output string) (Frame, error) {
	if err := a.tools.Encode(ctx, FrameArgs(path, ts, output)); err != nil {
		return Frame{}, err
	}
	frame := Frame{Timestamp: ts, Path: output}
	w, h, err := a.tools.ImageSize(ctx, output)
	if err != nil {
		logging.WithContext(ctx, a.logger).Debug("frame size unavailable",
			logging.String("path", output),
			logging.Error(err))
		return frame, nil
	}
	frame.Width, frame.Height = w, h
	return frame, nil
}
