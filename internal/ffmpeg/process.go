package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"cutagent/internal/services"
)

const (
	// StderrTailLimit bounds the stderr excerpt attached to FFMPEG_FAILED errors.
	StderrTailLimit = 2000
	maxStderrBytes  = 64 * 1024
	// maxAnalysisBytes bounds stderr kept for filters that report through it
	// (showinfo, silencedetect).
	maxAnalysisBytes = 32 << 20
)

var commandContext = exec.CommandContext

// Output captures a finished subprocess.
type Output struct {
	Stdout []byte
	Stderr string
}

// Exec runs binary with args, bounded by timeout when positive. tool names the
// program in error messages ("ffmpeg", "ffprobe").
func Exec(ctx context.Context, tool, binary string, args []string, timeout time.Duration) (Output, error) {
	return execCapture(ctx, tool, binary, args, timeout, maxStderrBytes)
}

func execCapture(ctx context.Context, tool, binary string, args []string, timeout time.Duration, stderrLimit int) (Output, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	command := append([]string{binary}, args...)
	cmd := commandContext(runCtx, binary, args...)
	var stdout bytes.Buffer
	stderr := &tailWriter{limit: stderrLimit}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%s interrupted: %w", tool, ctxErr)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		seconds := int(timeout / time.Second)
		return out, services.New(services.CodeFFmpegTimeout,
			fmt.Sprintf("%s timed out after %ds", tool, seconds),
			map[string]any{"command": command, "timeout": seconds},
		).WithRecovery(
			fmt.Sprintf("Increase timeout (current: %ds)", seconds),
			"Check if input file is corrupt",
		).WithCause(err)
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return out, services.Wrap(services.ErrExternalTool, tool, "start", binary, err)
	}

	tail := Tail(out.Stderr, StderrTailLimit)
	hints := RecoveryHints(tail)
	if tool != "ffmpeg" {
		hints = []string{"Verify the input file exists and is a valid media file"}
	}
	return out, services.New(services.CodeFFmpegFailed,
		fmt.Sprintf("%s exited with code %d", tool, exitErr.ExitCode()),
		map[string]any{
			"command":    command,
			"returncode": exitErr.ExitCode(),
			"stderr":     tail,
		},
	).WithRecovery(hints...).WithCause(err)
}

// Tail returns at most the last limit bytes of s.
func Tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}

// tailWriter keeps only the last limit bytes written to it.
type tailWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.buf.Write(p)
	if w.buf.Len() > w.limit {
		b := w.buf.Bytes()
		kept := append([]byte(nil), b[len(b)-w.limit:]...)
		w.buf.Reset()
		w.buf.Write(kept)
	}
	return n, nil
}

func (w *tailWriter) String() string { return w.buf.String() }
