package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"cutagent/internal/edl"
)

// SummaryOptions selects the passes Summarize runs.
type SummaryOptions struct {
	FrameDir           string
	SceneThreshold     float64
	SilenceThreshold   float64
	MinSilenceDuration float64
	AudioInterval      float64
	IncludeAudioLevels bool
}

// DefaultSummaryOptions returns the CLI defaults.
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{
		SceneThreshold:     DefaultSceneThreshold,
		SilenceThreshold:   DefaultSilenceThreshold,
		MinSilenceDuration: DefaultMinSilenceDuration,
		AudioInterval:      DefaultAudioInterval,
	}
}

// Summary is a content map of one file with suggested cut points.
type Summary struct {
	Path               string       `json:"path"`
	Duration           float64      `json:"duration"`
	DurationFormatted  string       `json:"duration_formatted"`
	Resolution         *string      `json:"resolution"`
	Scenes             []Scene      `json:"scenes"`
	Silences           []Silence    `json:"silences"`
	AudioLevels        []AudioLevel `json:"audio_levels"`
	SilencePoints      []float64    `json:"silence_points"`
	SuggestedCutPoints []float64    `json:"suggested_cut_points"`
}

// audibleShare is the non-silent share of a scene above which it counts as
// having audio.
const audibleShare = 0.25

// Summarize runs scene, silence and loudness passes and merges them.
func (a *Analyzer) Summarize(ctx context.Context, path string, opts SummaryOptions) (Summary, error) {
	info, err := a.probe(ctx, path)
	if err != nil {
		return Summary{}, err
	}
	scenes, err := a.DetectScenes(ctx, path, opts.SceneThreshold, opts.FrameDir)
	if err != nil {
		return Summary{}, err
	}
	silences, err := a.DetectSilence(ctx, path, opts.SilenceThreshold, opts.MinSilenceDuration)
	if err != nil {
		return Summary{}, err
	}
	levels, err := a.AudioLevels(ctx, path, opts.AudioInterval)
	if err != nil {
		return Summary{}, err
	}

	annotateScenes(scenes, silences, levels)

	summary := Summary{
		Path:               info.Path,
		Duration:           info.Duration,
		DurationFormatted:  edl.FormatTime(info.Duration),
		Scenes:             nonNil(scenes),
		Silences:           nonNil(silences),
		AudioLevels:        []AudioLevel{},
		SilencePoints:      silencePoints(silences),
		SuggestedCutPoints: cutPoints(scenes, silences),
	}
	if summary.Path == "" {
		summary.Path = path
	}
	if w, h := info.Resolution(); w > 0 && h > 0 {
		res := fmt.Sprintf("%dx%d", w, h)
		summary.Resolution = &res
	}
	if opts.IncludeAudioLevels {
		summary.AudioLevels = nonNil(levels)
	}
	return summary, nil
}

// annotateScenes sets avg_loudness and has_audio on every scene.
func annotateScenes(scenes []Scene, silences []Silence, levels []AudioLevel) {
	for i := range scenes {
		scene := &scenes[i]
		var sum float64
		var n int
		for _, lv := range levels {
			if lv.Timestamp >= scene.Start && lv.Timestamp < scene.End {
				sum += lv.RMSDB
				n++
			}
		}
		if n > 0 {
			avg := round3(sum / float64(n))
			scene.AvgLoudness = &avg
		}

		var silent float64
		for _, s := range silences {
			lo, hi := math.Max(scene.Start, s.Start), math.Min(scene.End, s.End)
			if hi > lo {
				silent += hi - lo
			}
		}
		audible := false
		if scene.Duration > 0 {
			audible = math.Max(0, 1-silent/scene.Duration) > audibleShare
		}
		scene.HasAudio = &audible
	}
}

func silencePoints(silences []Silence) []float64 {
	set := make(map[float64]bool, len(silences))
	for _, s := range silences {
		set[round3(s.Start)] = true
	}
	return sortedSet(set)
}

// cutPoints is the union of scene starts and silence bounds.
func cutPoints(scenes []Scene, silences []Silence) []float64 {
	set := make(map[float64]bool, len(scenes)+2*len(silences))
	for _, scene := range scenes {
		set[round3(scene.Start)] = true
	}
	for _, s := range silences {
		set[round3(s.Start)] = true
		set[round3(s.End)] = true
	}
	return sortedSet(set)
}

func sortedSet(set map[float64]bool) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
