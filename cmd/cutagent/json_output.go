package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"cutagent/internal/services"
)

// exitError marks a failure that has already been reported on stdout.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fail reports err as a structured error on stdout. Coded errors exit with
// fallback; anything else is unexpected and exits with ExitSystem.
func fail(cmd *cobra.Command, err error, fallback int) error {
	if writeErr := writeJSON(cmd, services.Unexpected(err)); writeErr != nil {
		return writeErr
	}
	return &exitError{code: services.ExitCode(err, fallback), err: err}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
