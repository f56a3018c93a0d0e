package preflight

import (
	"context"
	"fmt"

	"cutagent/internal/config"
)

// MinScratchBytes is the free space below which the scratch check warns.
const MinScratchBytes uint64 = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`
}

// Report aggregates every check. Healthy is false when any required check fails.
type Report struct {
	Healthy bool     `json:"healthy"`
	Checks  []Result `json:"checks"`
}

// Toolchain is the subset of the ffmpeg toolchain the checks consult.
type Toolchain interface {
	Versions(ctx context.Context) map[string]string
	FilterAvailable(ctx context.Context, name string) (available, known bool)
}

// OptionalFilters are the ffmpeg filters that only some operations need.
var OptionalFilters = []string{"drawtext", "overlay", "xfade"}

// RunAll executes every applicable check for cfg. tc may be nil, in which
// case version and filter checks are skipped.
func RunAll(ctx context.Context, cfg *config.Config, tc Toolchain) Report {
	if cfg == nil {
		return Report{Checks: []Result{}}
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		res := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
		if status.Available {
			res.Detail = status.Command
		} else {
			res.Detail = status.Detail
		}
		results = append(results, res)
	}

	if tc != nil {
		versions := tc.Versions(ctx)
		for _, tool := range []string{"ffmpeg", "ffprobe"} {
			results = append(results, versionResult(tool, versions[tool]))
		}
		for _, name := range OptionalFilters {
			results = append(results, CheckFilter(ctx, tc, name))
		}
	}

	scratch := cfg.ScratchRoot()
	results = append(results,
		CheckDirectoryAccess("Scratch directory", scratch),
		CheckFreeSpace("Scratch free space", scratch, MinScratchBytes),
	)
	if cfg.Store.Enabled {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}

	report := Report{Healthy: true, Checks: results}
	for _, r := range results {
		if !r.Passed && !r.Optional {
			report.Healthy = false
		}
	}
	return report
}

func versionResult(tool, version string) Result {
	name := tool + " version"
	if version == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s -version produced no output", tool)}
	}
	return Result{Name: name, Passed: true, Detail: version}
}
