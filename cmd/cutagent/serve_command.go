package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cutagent/internal/api"
	"cutagent/internal/engine"
	"cutagent/internal/ops"
	"cutagent/internal/validation"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				addr := strings.TrimSpace(bind)
				if addr == "" {
					addr = rt.cfg.API.Bind
				}

				var opts []engine.Option
				if rt.historyEnabled() {
					opts = append(opts, engine.WithHistory(rt.store))
				}
				executor := engine.New(rt.cfg, rt.tools, rt.logger, opts...)

				var history *api.HistoryService
				if rt.store != nil {
					history = api.NewHistoryService(rt.store)
				}

				srv := api.NewServer(api.ServerConfig{
					Bind:      addr,
					Version:   version,
					Validator: validation.New(rt.tools, rt.logger),
					Executor: api.ExecutorFunc(func(ctx context.Context, raw []byte) (ops.Result, error) {
						return executor.Execute(ctx, raw, nil)
					}),
					History:      history,
					ToolVersions: rt.tools.Versions,
					Logger:       rt.logger,
				})
				if err := srv.Listen(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "cutagent API listening on http://%s\n", srv.Addr())
				return srv.Serve(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to api.bind from the config)")
	return cmd
}
