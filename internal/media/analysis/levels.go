package analysis

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// AudioLevel is the mean RMS loudness of one interval.
type AudioLevel struct {
	Timestamp   float64 `json:"timestamp"`
	RMSDB       float64 `json:"rms_db"`
	SampleCount int     `json:"sample_count"`
}

// LevelSample is one RMS reading. RMSDB may be -Inf for digital silence.
type LevelSample struct {
	Time  float64
	RMSDB float64
}

const (
	rmsKey    = "lavfi.astats.Overall.RMS_level"
	rmsFilter = "astats=metadata=1:reset=1,ametadata=print:key=" + rmsKey + ":file=-"
	// beatWindowSamples sizes the audio frames beat detection measures.
	beatWindowSamples = 1024
)

var ptsTimeRE = regexp.MustCompile(`pts_time:([0-9]+(?:\.[0-9]+)?)`)

// LevelArgs prints the RMS level of every audio frame to stdout.
func LevelArgs(source string) []string {
	return []string{"-loglevel", "error", "-i", source, "-af", rmsFilter, "-f", "null", "-"}
}

// BeatArgs is LevelArgs over fixed-size frames, giving an even time grid.
func BeatArgs(source string) []string {
	return []string{
		"-loglevel", "error", "-i", source,
		"-af", "asetnsamples=n=" + strconv.Itoa(beatWindowSamples) + "," + rmsFilter,
		"-f", "null", "-",
	}
}

// ParseLevelSamples pairs each RMS line with the preceding pts_time. NaN
// readings and readings before any timestamp are dropped.
func ParseLevelSamples(output string) []LevelSample {
	var samples []LevelSample
	var current *float64
	prefix := rmsKey + "="
	for _, line := range strings.Split(output, "\n") {
		if m := ptsTimeRE.FindStringSubmatch(line); m != nil {
			ts, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				current = &ts
			}
			continue
		}
		raw, ok := strings.CutPrefix(strings.TrimSpace(line), prefix)
		if !ok || current == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(value) {
			continue
		}
		samples = append(samples, LevelSample{Time: *current, RMSDB: value})
	}
	return samples
}

// BucketLevels averages finite samples per interval.
func BucketLevels(samples []LevelSample, interval float64) []AudioLevel {
	buckets := make(map[int][]float64)
	for _, s := range samples {
		if math.IsInf(s.RMSDB, 0) {
			continue
		}
		idx := int(math.Floor(s.Time / interval))
		buckets[idx] = append(buckets[idx], s.RMSDB)
	}
	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	levels := make([]AudioLevel, 0, len(keys))
	for _, k := range keys {
		vals := buckets[k]
		var sum float64
		for _, v := range vals {
			sum += v
		}
		levels = append(levels, AudioLevel{
			Timestamp:   round3(float64(k) * interval),
			RMSDB:       round3(sum / float64(len(vals))),
			SampleCount: len(vals),
		})
	}
	return levels
}

// AudioLevels reports loudness per interval seconds.
func (a *Analyzer) AudioLevels(ctx context.Context, path string, interval float64) ([]AudioLevel, error) {
	if err := requirePositive("interval", interval); err != nil {
		return nil, err
	}
	if _, err := a.probe(ctx, path); err != nil {
		return nil, err
	}
	out, err := a.analyze(ctx, "audio_levels", LevelArgs(path))
	if err != nil {
		return nil, err
	}
	combined := string(out.Stdout) + "\n" + out.Stderr
	return BucketLevels(ParseLevelSamples(combined), interval), nil
}
