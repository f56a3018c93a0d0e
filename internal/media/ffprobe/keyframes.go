package ffprobe

import (
	"bufio"
	"bytes"
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"cutagent/internal/ffmpeg"
)

// Keyframes returns the sorted keyframe timestamps of the first video stream.
func Keyframes(ctx context.Context, binary, path string, timeout time.Duration) ([]float64, error) {
	if _, err := CheckInput(path); err != nil {
		return nil, err
	}
	args := []string{
		"-hide_banner", "-v", "quiet",
		"-select_streams", "v:0",
		"-show_entries", "packet=pts_time,flags",
		"-of", "csv=print_section=0",
		path,
	}
	out, err := ffmpeg.Exec(ctx, "ffprobe", binary, args, timeout)
	if err != nil {
		return nil, err
	}
	return ParseKeyframes(out.Stdout), nil
}

// ParseKeyframes reads `pts_time,flags` CSV rows and keeps those flagged K.
func ParseKeyframes(output []byte) []float64 {
	var stamps []float64
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), ",")
		if len(parts) < 2 || !strings.Contains(parts[1], "K") {
			continue
		}
		ts, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		stamps = append(stamps, ts)
	}
	sort.Float64s(stamps)
	return stamps
}

// Nearest returns the keyframe closest to target, or target when none exist.
func Nearest(keyframes []float64, target float64) float64 {
	if len(keyframes) == 0 {
		return target
	}
	best := keyframes[0]
	for _, kf := range keyframes[1:] {
		if abs(kf-target) < abs(best-target) {
			best = kf
		}
	}
	return best
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
