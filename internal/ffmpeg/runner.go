package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"cutagent/internal/logging"
)

// Runner invokes a resolved ffmpeg binary.
type Runner struct {
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run executes `ffmpeg -hide_banner -y args...`.
func (r *Runner) Run(ctx context.Context, args []string) error {
	full := append([]string{"-hide_banner", "-y"}, args...)
	logger := logging.WithContext(ctx, r.logger())
	logger.Debug("ffmpeg invocation", logging.Any("args", full))

	start := time.Now()
	_, err := Exec(ctx, "ffmpeg", r.Binary, full, r.Timeout)
	if err != nil {
		logger.Debug("ffmpeg failed", logging.Error(err), logging.Duration("elapsed", time.Since(start)))
		return err
	}
	logger.Debug("ffmpeg finished", logging.Duration("elapsed", time.Since(start)))
	return nil
}

// Analyze runs `ffmpeg -hide_banner -nostats args...` for filters that report
// on stderr or stdout rather than writing a file. The output is returned
// alongside any error so callers can parse what ffmpeg printed before failing.
func (r *Runner) Analyze(ctx context.Context, args []string) (Output, error) {
	full := append([]string{"-hide_banner", "-nostats"}, args...)
	logger := logging.WithContext(ctx, r.logger())
	logger.Debug("ffmpeg analysis", logging.Any("args", full))

	start := time.Now()
	out, err := execCapture(ctx, "ffmpeg", r.Binary, full, r.Timeout, maxAnalysisBytes)
	logger.Debug("ffmpeg analysis finished",
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("stderr_bytes", len(out.Stderr)))
	return out, err
}

// Filters lists the filter names reported by `ffmpeg -filters`.
func (r *Runner) Filters(ctx context.Context) (map[string]bool, error) {
	out, err := Exec(ctx, "ffmpeg", r.Binary, []string{"-hide_banner", "-filters"}, r.queryTimeout())
	if err != nil {
		return nil, err
	}
	return ParseFilters(out.Stdout), nil
}

// Version returns the first line of `ffmpeg -version`.
func (r *Runner) Version(ctx context.Context) (string, error) {
	return VersionOf(ctx, "ffmpeg", r.Binary, r.queryTimeout())
}

// VersionOf returns the first line of `<binary> -version`.
func VersionOf(ctx context.Context, tool, binary string, timeout time.Duration) (string, error) {
	out, err := Exec(ctx, tool, binary, []string{"-version"}, timeout)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out.Stdout), "\n")
	return strings.TrimSpace(line), nil
}

// ParseFilters extracts filter names from `ffmpeg -filters` output: the second
// column of every row. Legend rows ("T.. = Timeline support") are skipped.
func ParseFilters(output []byte) map[string]bool {
	filters := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[1] == "=" {
			continue
		}
		filters[fields[1]] = true
	}
	return filters
}

func (r *Runner) queryTimeout() time.Duration {
	if r.Timeout > 0 && r.Timeout < 30*time.Second {
		return r.Timeout
	}
	return 30 * time.Second
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return logging.NewComponentLogger(r.Logger, "ffmpeg")
}
