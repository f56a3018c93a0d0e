package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cutagent/internal/api"
	"cutagent/internal/services"
	"cutagent/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent EDL executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if rt.store == nil {
					return fail(cmd, errors.New("run history is unavailable: the state store is disabled"), services.ExitSystem)
				}
				runs, err := rt.store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return fail(cmd, err, services.ExitSystem)
				}
				if asJSON || !isTerminal(cmd.OutOrStdout()) {
					return writeJSON(cmd, api.RunListResponse{Runs: api.FromRuns(runs)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), historyTable(runs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultRunLimit, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Always print JSON, even on a terminal")
	return cmd
}

func historyTable(runs []store.Run) string {
	view := tableView{
		title:   "Recent runs",
		headers: []string{"Run", "Started", "Took", "Status", "Ops", "Output", "Error"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	}
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		view.add(
			id,
			humanize.Time(run.StartedAt),
			run.FinishedAt.Sub(run.StartedAt).Round(100*time.Millisecond).String(),
			string(run.Status),
			strconv.Itoa(run.OpCount),
			run.OutputPath,
			run.ErrorCode,
		)
	}
	return view.render()
}
