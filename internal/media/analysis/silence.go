package analysis

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Silence is an interval quieter than the detection threshold.
type Silence struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

var (
	silenceStartRE = regexp.MustCompile(`silence_start:\s*([0-9]+(?:\.[0-9]+)?)`)
	silenceEndRE   = regexp.MustCompile(`silence_end:\s*([0-9]+(?:\.[0-9]+)?)`)
)

// SilenceArgs runs silencedetect with a dB threshold and minimum length.
func SilenceArgs(source string, thresholdDB, minDuration float64) []string {
	return []string{
		"-i", source,
		"-af", fmt.Sprintf("silencedetect=noise=%sdB:d=%s", num(thresholdDB), num(minDuration)),
		"-f", "null", "-",
	}
}

// ParseSilence pairs silence_start/silence_end lines. A start that never
// ends is closed at duration.
func ParseSilence(stderr string, duration float64) []Silence {
	var intervals []Silence
	var open *float64
	for _, line := range strings.Split(stderr, "\n") {
		if m := silenceStartRE.FindStringSubmatch(line); m != nil {
			start, _ := strconv.ParseFloat(m[1], 64)
			open = &start
			continue
		}
		if m := silenceEndRE.FindStringSubmatch(line); m != nil && open != nil {
			end, _ := strconv.ParseFloat(m[1], 64)
			start := math.Min(*open, end)
			intervals = append(intervals, Silence{Start: start, End: end, Duration: math.Max(0, end-start)})
			open = nil
		}
	}
	if open != nil {
		start := math.Min(*open, duration)
		intervals = append(intervals, Silence{Start: start, End: duration, Duration: math.Max(0, duration-start)})
	}
	sort.SliceStable(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
	return intervals
}

// DetectSilence lists silent intervals of at least minDuration seconds.
func (a *Analyzer) DetectSilence(ctx context.Context, path string, thresholdDB, minDuration float64) ([]Silence, error) {
	if minDuration < 0 {
		return nil, invalidArgument("min duration must be >= 0", map[string]any{"min_duration": minDuration})
	}
	info, err := a.probe(ctx, path)
	if err != nil {
		return nil, err
	}
	out, err := a.analyze(ctx, "silence", SilenceArgs(path, thresholdDB, minDuration))
	if err != nil {
		return nil, err
	}
	return ParseSilence(out.Stderr, info.Duration), nil
}
