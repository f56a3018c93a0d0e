package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cutagent/internal/preflight"
	"cutagent/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var asTable bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, filters and working directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				report := preflight.RunAll(cmd.Context(), rt.cfg, rt.tools)
				if asTable {
					fmt.Fprintln(cmd.OutOrStdout(), doctorTable(report))
				} else if err := writeJSON(cmd, report); err != nil {
					return err
				}
				if !report.Healthy {
					return &exitError{code: services.ExitSystem}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asTable, "table", false, "Render checks as a table instead of JSON")
	return cmd
}

func doctorTable(report preflight.Report) string {
	title := "cutagent doctor: healthy"
	if !report.Healthy {
		title = "cutagent doctor: problems found"
	}
	view := tableView{title: title, headers: []string{"Check", "Status", "Detail"}}
	for _, check := range report.Checks {
		view.add(check.Name, checkStatus(check), check.Detail)
	}
	return view.render()
}

func checkStatus(check preflight.Result) string {
	switch {
	case check.Passed:
		return "ok"
	case check.Optional:
		return "warn"
	default:
		return "FAIL"
	}
}
