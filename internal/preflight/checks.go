package preflight

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"cutagent/internal/config"
	"cutagent/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace reports whether the filesystem holding path has at least
// minBytes available to unprivileged users. The result is optional.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)
	if free < minBytes {
		return Result{
			Name:     name,
			Optional: true,
			Detail:   fmt.Sprintf("%s (below %s)", detail, humanize.IBytes(minBytes)),
		}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: detail}
}

// CheckFilter reports whether ffmpeg lists the named filter.
func CheckFilter(ctx context.Context, tc Toolchain, name string) Result {
	label := "Filter " + name
	available, known := tc.FilterAvailable(ctx, name)
	switch {
	case !known:
		return Result{Name: label, Optional: true, Detail: "unknown (filter probe disabled or failed)"}
	case !available:
		return Result{Name: label, Optional: true, Detail: "not compiled into ffmpeg"}
	default:
		return Result{Name: label, Passed: true, Optional: true, Detail: "available"}
	}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Configured locations are resolved first so the report names the binary
// cutagent will actually run.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     resolveCommand("ffmpeg", cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.BinaryDir),
			Description: "Required for every edit operation",
		},
		{
			Name:        "FFprobe",
			Command:     resolveCommand("ffprobe", cfg.FFmpeg.FFprobePath, cfg.FFmpeg.BinaryDir),
			Description: "Required for media inspection and validation",
		},
	}
	return deps.CheckBinaries(requirements)
}

func resolveCommand(name, explicit, dir string) string {
	bin, err := deps.Locate(name, explicit, dir)
	if err != nil {
		return name
	}
	return bin.Path
}
