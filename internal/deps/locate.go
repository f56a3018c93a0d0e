package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"cutagent/internal/services"
)

// Discovery sources reported by Locate.
const (
	SourceExplicit  = "explicit"
	SourceBinaryDir = "binary_dir"
	SourcePath      = "PATH"
)

// Binary is a resolved executable.
type Binary struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Source string `json:"source"`
}

// Locate finds name using, in order: the explicit file path, <dir>/<name>
// (with .exe also tried), and PATH. Candidates that do not exist are skipped.
func Locate(name, explicit, dir string) (Binary, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" && isExecutableFile(explicit) {
		return Binary{Name: name, Path: explicit, Source: SourceExplicit}, nil
	}
	if dir = strings.TrimSpace(dir); dir != "" {
		for _, candidate := range []string{name, name + ".exe"} {
			full := filepath.Join(dir, candidate)
			if isExecutableFile(full) {
				return Binary{Name: name, Path: full, Source: SourceBinaryDir}, nil
			}
		}
	}
	if found, err := exec.LookPath(name); err == nil {
		return Binary{Name: name, Path: found, Source: SourcePath}, nil
	}
	return Binary{Name: name}, notFound(name, explicit, dir)
}

func notFound(name, explicit, dir string) error {
	code := services.CodeFFmpegNotFound
	if name == "ffprobe" {
		code = services.CodeFFprobeNotFound
	}
	ctx := map[string]any{"binary": name}
	if explicit != "" {
		ctx["explicit_path"] = explicit
	}
	if dir != "" {
		ctx["binary_dir"] = dir
	}
	return services.New(code, name+" not found on PATH or in configured locations", ctx)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
