package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"cutagent/internal/engine"
	"cutagent/internal/logging"
	"cutagent/internal/services"
	"cutagent/internal/validation"
	"cutagent/internal/watch"
)

const edlInputHint = "Check the file path, or use '-' to read from stdin, or use --edl-json"

// readEDL returns the EDL text from --edl-json, stdin ("-") or a file.
func readEDL(cmd *cobra.Command, args []string, inline string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if len(args) == 0 || args[0] == "" {
		return nil, services.New(services.CodeMissingField, "No EDL provided", map[string]any{"field": "edl"}).
			WithRecovery("Pass an EDL file path, '-' to read from stdin, or --edl-json")
	}
	path := args[0]
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read EDL from stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.New(services.CodeInputNotFound, "EDL file not found: "+path,
				map[string]any{"path": path}).WithRecovery(edlInputHint)
		}
		return nil, services.New(services.CodeInputNotReadable, "EDL file not readable: "+path,
			map[string]any{"path": path, "error": err.Error()}).WithCause(err).WithRecovery(edlInputHint)
	}
	return raw, nil
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var edlJSON string
	var watchFlag bool

	cmd := &cobra.Command{
		Use:   "validate [FILE|-]",
		Short: "Validate an EDL without executing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readEDL(cmd, args, edlJSON)
			if err != nil {
				return fail(cmd, err, services.ExitValidation)
			}
			return ctx.withRuntime(func(rt *runtime) error {
				validator := validation.New(rt.tools, rt.logger)
				if watchFlag {
					if edlJSON != "" || args[0] == "-" {
						return fail(cmd, services.New(services.CodeInvalidEDL,
							"--watch needs an EDL file path", nil).
							WithRecovery("Pass the EDL as a file path when using --watch"), services.ExitValidation)
					}
					return watchValidate(cmd, rt, validator, args[0], raw)
				}

				res := validator.Validate(cmd.Context(), raw)
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
				printValidationSummary(cmd.ErrOrStderr(), res)
				if !res.Valid() {
					return &exitError{code: services.ExitValidation}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&edlJSON, "edl-json", "", "Inline EDL JSON string (alternative to a file path)")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "Re-validate whenever the EDL file changes")
	return cmd
}

// watchValidate prints a result for the current file and another after each
// change until the command's context ends.
func watchValidate(cmd *cobra.Command, rt *runtime, validator *validation.Validator, path string, raw []byte) error {
	report := func(ctx context.Context, raw []byte) {
		res := validator.Validate(ctx, raw)
		if err := writeJSON(cmd, res); err != nil {
			rt.logger.Warn("write validation result", logging.Error(err))
		}
		printValidationSummary(cmd.ErrOrStderr(), res)
	}

	w, err := watch.New([]string{path}, watch.Options{Logger: rt.logger})
	if err != nil {
		return fail(cmd, err, services.ExitSystem)
	}
	report(cmd.Context(), raw)

	return w.Run(cmd.Context(), func(ctx context.Context, _ []string) {
		raw, err := readEDL(cmd, []string{path}, "")
		if err != nil {
			// Editors briefly remove the file while saving; the next event retries.
			rt.logger.Debug("edl unreadable after change", logging.Error(err))
			return
		}
		report(ctx, raw)
	})
}

// printValidationSummary writes a one-line colored verdict when stderr is a terminal.
func printValidationSummary(w io.Writer, res validation.Result) {
	if !isTerminal(w) {
		return
	}
	switch {
	case !res.Valid():
		fmt.Fprintln(w, text.FgRed.Sprintf("✗ invalid: %d error(s), %d warning(s)", len(res.Errors), len(res.Warnings)))
	case len(res.Warnings) > 0:
		fmt.Fprintln(w, text.FgYellow.Sprintf("✓ valid with %d warning(s)", len(res.Warnings)))
	default:
		fmt.Fprintln(w, text.FgGreen.Sprint("✓ valid"))
	}
}

func newExecuteCommand(ctx *commandContext) *cobra.Command {
	var edlJSON string
	var quiet bool
	var noOverwrite bool

	cmd := &cobra.Command{
		Use:   "execute [FILE|-]",
		Short: "Execute an EDL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readEDL(cmd, args, edlJSON)
			if err != nil {
				return fail(cmd, err, services.ExitValidation)
			}
			return ctx.withRuntime(func(rt *runtime) error {
				opts := []engine.Option{engine.WithNoOverwrite(noOverwrite)}
				if rt.historyEnabled() {
					opts = append(opts, engine.WithHistory(rt.store))
				}
				executor := engine.New(rt.cfg, rt.tools, rt.logger, opts...)

				var progress engine.ProgressFunc
				if !quiet {
					progress = progressWriter(cmd.ErrOrStderr())
				}
				res, err := executor.Execute(cmd.Context(), raw, progress)
				if err != nil {
					return fail(cmd, err, services.ExitExecution)
				}
				return writeJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&edlJSON, "edl-json", "", "Inline EDL JSON string (alternative to a file path)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output on stderr")
	cmd.Flags().BoolVar(&noOverwrite, "no-overwrite", false, "Fail instead of replacing an existing output file")
	return cmd
}

// progressWriter emits one {"progress":{...}} JSON line per event.
func progressWriter(w io.Writer) engine.ProgressFunc {
	enc := json.NewEncoder(w)
	return func(step, total int, op, status string) {
		_ = enc.Encode(map[string]engine.Progress{
			"progress": {Step: step, Total: total, Op: op, Status: status},
		})
	}
}
