package analysis

import (
	"context"
	"math"
	"sort"
)

// Beat is a detected onset. Strength is the energy ratio against the
// preceding window.
type Beat struct {
	Timestamp float64 `json:"timestamp"`
	Strength  float64 `json:"strength"`
}

// BeatReport is the result of DetectBeats.
type BeatReport struct {
	Beats []Beat   `json:"beats"`
	Count int      `json:"count"`
	BPM   *float64 `json:"bpm"`
}

// BeatOptions tunes onset detection.
type BeatOptions struct {
	MinInterval     float64
	EnergyThreshold float64
	WindowSize      int
}

// DefaultBeatOptions returns the CLI defaults.
func DefaultBeatOptions() BeatOptions {
	return BeatOptions{
		MinInterval:     DefaultBeatMinInterval,
		EnergyThreshold: DefaultEnergyThreshold,
		WindowSize:      DefaultBeatWindow,
	}
}

func (o BeatOptions) check() error {
	if o.MinInterval < 0 || math.IsNaN(o.MinInterval) {
		return invalidArgument("min interval must be >= 0", map[string]any{"min_interval": o.MinInterval})
	}
	if err := requirePositive("energy_threshold", o.EnergyThreshold); err != nil {
		return err
	}
	if o.WindowSize < 1 {
		return invalidArgument("window size must be >= 1", map[string]any{"window_size": o.WindowSize})
	}
	return nil
}

// FindBeats marks a sample as an onset when its linear energy is rising and
// at least EnergyThreshold times the mean of the previous WindowSize samples.
// Onsets closer than MinInterval to the previous one are skipped.
func FindBeats(samples []LevelSample, opts BeatOptions) []Beat {
	energy := make([]float64, len(samples))
	for i, s := range samples {
		energy[i] = math.Pow(10, s.RMSDB/10)
	}
	beats := []Beat{}
	last := math.Inf(-1)
	for i := opts.WindowSize; i < len(samples); i++ {
		var sum float64
		for _, e := range energy[i-opts.WindowSize : i] {
			sum += e
		}
		mean := sum / float64(opts.WindowSize)
		if mean <= 0 || energy[i] <= energy[i-1] {
			continue
		}
		ratio := energy[i] / mean
		if ratio < opts.EnergyThreshold {
			continue
		}
		ts := samples[i].Time
		if ts-last < opts.MinInterval-1e-9 {
			continue
		}
		beats = append(beats, Beat{Timestamp: round3(ts), Strength: round3(ratio)})
		last = ts
	}
	return beats
}

// EstimateBPM converts the median gap between beats into beats per minute.
// It returns nil with fewer than two beats.
func EstimateBPM(beats []Beat) *float64 {
	if len(beats) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		gaps = append(gaps, beats[i].Timestamp-beats[i-1].Timestamp)
	}
	sort.Float64s(gaps)
	mid := len(gaps) / 2
	median := gaps[mid]
	if len(gaps)%2 == 0 {
		median = (gaps[mid-1] + gaps[mid]) / 2
	}
	if median <= 0 {
		return nil
	}
	bpm := math.Round(60/median*10) / 10
	return &bpm
}

// DetectBeats finds rhythmic onsets in the audio of path.
func (a *Analyzer) DetectBeats(ctx context.Context, path string, opts BeatOptions) (BeatReport, error) {
	if err := opts.check(); err != nil {
		return BeatReport{}, err
	}
	if _, err := a.probe(ctx, path); err != nil {
		return BeatReport{}, err
	}
	out, err := a.analyze(ctx, "beats", BeatArgs(path))
	if err != nil {
		return BeatReport{}, err
	}
	beats := FindBeats(ParseLevelSamples(string(out.Stdout)+"\n"+out.Stderr), opts)
	return BeatReport{Beats: beats, Count: len(beats), BPM: EstimateBPM(beats)}, nil
}
