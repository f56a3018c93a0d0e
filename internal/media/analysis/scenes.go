package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Scene is a contiguous interval between detected cuts.
type Scene struct {
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Duration    float64  `json:"duration"`
	Frames      []string `json:"frames,omitempty"`
	HasAudio    *bool    `json:"has_audio,omitempty"`
	AvgLoudness *float64 `json:"avg_loudness,omitempty"`
}

// previewOffsets place the preview frames of a scene.
var previewOffsets = []float64{0.1, 0.5, 0.9}

// SceneArgs selects frames whose scene score exceeds threshold and logs them
// through showinfo.
func SceneArgs(source string, threshold float64) []string {
	return []string{
		"-i", source,
		"-vf", fmt.Sprintf("select='gt(scene,%s)',showinfo", num(threshold)),
		"-f", "null", "-",
	}
}

// ParseShowinfoTimes extracts every pts_time value printed by showinfo.
func ParseShowinfoTimes(stderr string) []float64 {
	var times []float64
	for _, line := range strings.Split(stderr, "\n") {
		if !strings.Contains(line, "pts_time:") {
			continue
		}
		for _, token := range strings.Fields(line) {
			value, ok := strings.CutPrefix(token, "pts_time:")
			if !ok {
				continue
			}
			if ts, err := strconv.ParseFloat(value, 64); err == nil {
				times = append(times, ts)
			}
		}
	}
	return times
}

// ScenesFromCuts turns cut times into scenes covering [0, duration]. Cuts
// outside (0, duration) and cuts within 1ms of the previous one are dropped.
func ScenesFromCuts(cuts []float64, duration float64) []Scene {
	sorted := append([]float64(nil), cuts...)
	sort.Float64s(sorted)
	starts := []float64{0}
	for _, ts := range sorted {
		if ts <= 0 || ts >= duration {
			continue
		}
		if math.Abs(ts-starts[len(starts)-1]) > 1e-3 {
			starts = append(starts, ts)
		}
	}
	scenes := make([]Scene, 0, len(starts))
	for i, start := range starts {
		end := duration
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if end <= start {
			continue
		}
		scenes = append(scenes, Scene{Start: start, End: end, Duration: end - start})
	}
	return scenes
}

// DetectScenes finds scene boundaries. With frameDir set, three preview
// frames per scene are written there and listed on each scene.
func (a *Analyzer) DetectScenes(ctx context.Context, path string, threshold float64, frameDir string) ([]Scene, error) {
	info, err := a.probe(ctx, path)
	if err != nil {
		return nil, err
	}
	out, err := a.analyze(ctx, "scenes", SceneArgs(path, threshold))
	if err != nil {
		return nil, err
	}
	scenes := ScenesFromCuts(ParseShowinfoTimes(out.Stderr), info.Duration)
	if frameDir == "" || len(scenes) == 0 {
		return scenes, nil
	}

	var stamps []float64
	var owners []int
	for i, scene := range scenes {
		for _, pct := range previewOffsets {
			stamps = append(stamps, scene.Start+scene.Duration*pct)
			owners = append(owners, i)
		}
	}
	frames, err := a.ExtractFrames(ctx, path, stamps, frameDir, "jpg", "scene")
	if err != nil {
		return nil, err
	}
	for i, frame := range frames {
		scenes[owners[i]].Frames = append(scenes[owners[i]].Frames, frame.Path)
	}
	return scenes, nil
}
