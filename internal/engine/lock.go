package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"cutagent/internal/services"
)

// outputLock is the advisory lock held while a run writes its output.
type outputLock struct {
	lock *flock.Flock
}

func lockPathFor(output string) string {
	return output + ".lock"
}

// acquireOutputLock takes <output>.lock without blocking. Another holder
// yields OUTPUT_LOCKED. The lock file stays on disk after release so every
// run contends on the same inode.
func acquireOutputLock(output string) (*outputLock, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	path := lockPathFor(output)
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, services.New(services.CodeOutputLocked,
			fmt.Sprintf("Output %s is being written by another run", output),
			map[string]any{"path": output, "lock": path})
	}
	return &outputLock{lock: l}, nil
}

func (l *outputLock) release() error {
	if l == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release output lock: %w", err)
	}
	return nil
}
